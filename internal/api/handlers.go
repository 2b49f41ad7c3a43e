package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"florai-occurrence/internal/common"
	"florai-occurrence/internal/features"
	"florai-occurrence/internal/ml"
	"florai-occurrence/internal/notify"
	"florai-occurrence/internal/storage"
)

// PredictionRequest is the inference input. Numeric fields are pointers so a
// missing required field is distinguishable from a legitimate zero; rainHours
// alone defaults to 0 when absent.
type PredictionRequest struct {
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	TemperatureMax   *float64 `json:"temperatureMax"`
	TemperatureMin   *float64 `json:"temperatureMin"`
	Precipitation    *float64 `json:"precipitation"`
	WindSpeed        *float64 `json:"windSpeed"`
	SunshineDuration *float64 `json:"sunshineDuration"`
	RainHours        float64  `json:"rainHours"`

	UserID             string `json:"userId,omitempty"`
	CreateNotification bool   `json:"createNotification,omitempty"`
	SavePrediction     bool   `json:"savePrediction,omitempty"`
}

// observation resolves the request into a validated model input.
func (r *PredictionRequest) observation() (features.Observation, error) {
	required := []struct {
		name  string
		value *float64
	}{
		{"latitude", r.Latitude},
		{"longitude", r.Longitude},
		{"temperatureMax", r.TemperatureMax},
		{"temperatureMin", r.TemperatureMin},
		{"precipitation", r.Precipitation},
		{"windSpeed", r.WindSpeed},
		{"sunshineDuration", r.SunshineDuration},
	}
	for _, f := range required {
		if f.value == nil {
			return features.Observation{}, fmt.Errorf("%s is required", f.name)
		}
	}

	o := features.Observation{
		Latitude:         *r.Latitude,
		Longitude:        *r.Longitude,
		TemperatureMax:   *r.TemperatureMax,
		TemperatureMin:   *r.TemperatureMin,
		Precipitation:    *r.Precipitation,
		WindSpeed:        *r.WindSpeed,
		SunshineDuration: *r.SunshineDuration,
		RainHours:        r.RainHours,
	}
	return o, features.Validate(o)
}

// ClassProbabilities is the full class distribution in the response.
type ClassProbabilities struct {
	Low    float64 `json:"Low"`
	Medium float64 `json:"Medium"`
	High   float64 `json:"High"`
}

func probabilitiesOf(r ml.Result) ClassProbabilities {
	return ClassProbabilities{
		Low:    r.Probabilities[common.Low],
		Medium: r.Probabilities[common.Medium],
		High:   r.Probabilities[common.High],
	}
}

// Location echoes the queried coordinates.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// WeatherSummary echoes the weather inputs that drove the prediction.
type WeatherSummary struct {
	TemperatureMax  float64 `json:"temperature_max"`
	TemperatureMin  float64 `json:"temperature_min"`
	TemperatureMean float64 `json:"temperature_mean"`
	Precipitation   float64 `json:"precipitation"`
	WindSpeed       float64 `json:"wind_speed"`
}

// PredictionResponse is the single-prediction output.
type PredictionResponse struct {
	Likelihood     string             `json:"likelihood"`
	Confidence     float64            `json:"confidence"`
	Probabilities  ClassProbabilities `json:"probabilities"`
	Location       Location           `json:"location"`
	WeatherSummary WeatherSummary     `json:"weather_summary"`

	PredictionID   string `json:"predictionId,omitempty"`
	NotificationID string `json:"notificationId,omitempty"`
}

// BatchPrediction is one entry of the batch output, in input order.
type BatchPrediction struct {
	Location      Location           `json:"location"`
	Likelihood    string             `json:"likelihood"`
	Confidence    float64            `json:"confidence"`
	Probabilities ClassProbabilities `json:"probabilities"`
}

// BatchResponse wraps the order-preserving batch output.
type BatchResponse struct {
	Count       int               `json:"count"`
	Predictions []BatchPrediction `json:"predictions"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Species Occurrence Prediction API",
		"status":       "active",
		"model_loaded": s.predictor != nil,
		"endpoints": map[string]string{
			"predict":       "/predict",
			"predict_batch": "/predict/batch",
			"health":        "/health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if s.predictor == nil {
		status = "degraded"
	}
	body := map[string]any{
		"status":       status,
		"model_loaded": s.predictor != nil,
	}
	if s.predictor != nil {
		body["trained_at"] = s.predictor.TrainedAt().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.validationError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}

	obs, err := req.observation()
	if err != nil {
		s.validationError(w, err)
		return
	}

	if s.predictor == nil {
		writeError(w, http.StatusServiceUnavailable, "model artifacts not loaded")
		return
	}

	result, err := s.predictor.Predict(obs)
	if err != nil {
		log.Error().Err(err).Msg("prediction failed")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("prediction failed: %v", err))
		return
	}

	resp := PredictionResponse{
		Likelihood:    result.Label.String(),
		Confidence:    result.Confidence,
		Probabilities: probabilitiesOf(result),
		Location:      Location{Latitude: obs.Latitude, Longitude: obs.Longitude},
		WeatherSummary: WeatherSummary{
			TemperatureMax:  obs.TemperatureMax,
			TemperatureMin:  obs.TemperatureMin,
			TemperatureMean: (obs.TemperatureMax + obs.TemperatureMin) / 2,
			Precipitation:   obs.Precipitation,
			WindSpeed:       obs.WindSpeed,
		},
	}

	if req.SavePrediction {
		resp.PredictionID = s.savePrediction(r, req, obs, result)
	}
	if req.CreateNotification && req.UserID != "" && s.notifier != nil {
		predictionID := resp.PredictionID
		if predictionID == "" {
			predictionID = uuid.NewString()
		}
		if id, ok := s.notifier.CreateAlert(r.Context(), notify.Alert{
			PredictionID: predictionID,
			UserID:       req.UserID,
			Obs:          obs,
			Result:       result,
		}); ok {
			resp.NotificationID = id
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		s.validationError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if len(reqs) == 0 {
		s.validationError(w, fmt.Errorf("batch must contain at least one item"))
		return
	}

	obs := make([]features.Observation, len(reqs))
	for i := range reqs {
		o, err := reqs[i].observation()
		if err != nil {
			s.validationError(w, fmt.Errorf("item %d: %w", i, err))
			return
		}
		obs[i] = o
	}

	if s.predictor == nil {
		writeError(w, http.StatusServiceUnavailable, "model artifacts not loaded")
		return
	}

	results, err := s.predictor.PredictBatch(obs)
	if err != nil {
		log.Error().Err(err).Msg("batch prediction failed")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("batch prediction failed: %v", err))
		return
	}

	predictions := make([]BatchPrediction, len(results))
	var counts notify.ClassCounts
	var sumLat, sumLon float64
	for i, result := range results {
		predictions[i] = BatchPrediction{
			Location:      Location{Latitude: obs[i].Latitude, Longitude: obs[i].Longitude},
			Likelihood:    result.Label.String(),
			Confidence:    result.Confidence,
			Probabilities: probabilitiesOf(result),
		}
		switch result.Label {
		case common.High:
			counts.High++
		case common.Medium:
			counts.Medium++
		default:
			counts.Low++
		}
		sumLat += obs[i].Latitude
		sumLon += obs[i].Longitude
	}

	if userID := batchNotifyUser(reqs); userID != "" && s.notifier != nil {
		n := float64(len(obs))
		s.notifier.CreateBatchSummary(r.Context(), userID, counts, sumLat/n, sumLon/n)
	}

	writeJSON(w, http.StatusOK, BatchResponse{Count: len(predictions), Predictions: predictions})
}

// batchNotifyUser returns the user to receive the grid summary: the first
// item that opted in with an identity.
func batchNotifyUser(reqs []PredictionRequest) string {
	for i := range reqs {
		if reqs[i].CreateNotification && reqs[i].UserID != "" {
			return reqs[i].UserID
		}
	}
	return ""
}

// savePrediction writes the prediction record best-effort and returns its id,
// or empty when persistence is unavailable or the write failed.
func (s *Server) savePrediction(r *http.Request, req PredictionRequest, obs features.Observation, result ml.Result) string {
	if s.store == nil {
		return ""
	}
	record := storage.PredictionRecord{
		PredictionID:        uuid.NewString(),
		UserID:              req.UserID,
		ModelType:           common.ModelType,
		ModelVersion:        common.ModelVersion,
		Latitude:            obs.Latitude,
		Longitude:           obs.Longitude,
		TemperatureMax:      obs.TemperatureMax,
		TemperatureMin:      obs.TemperatureMin,
		TemperatureMean:     (obs.TemperatureMax + obs.TemperatureMin) / 2,
		Precipitation:       obs.Precipitation,
		WindSpeed:           obs.WindSpeed,
		SunshineDuration:    obs.SunshineDuration,
		RainHours:           obs.RainHours,
		PredictedLikelihood: result.Label.String(),
		Confidence:          result.Confidence,
		ProbabilityLow:      result.Probabilities[common.Low],
		ProbabilityMedium:   result.Probabilities[common.Medium],
		ProbabilityHigh:     result.Probabilities[common.High],
		Source:              "ai_model_click",
		CreatedAt:           time.Now().UTC(),
	}
	if err := s.store.Put(r.Context(), storage.CollectionPredictions, record.PredictionID, record); err != nil {
		log.Warn().Err(err).Str("prediction_id", record.PredictionID).Msg("prediction record write failed")
		return ""
	}
	return record.PredictionID
}

func (s *Server) validationError(w http.ResponseWriter, err error) {
	if s.metrics != nil {
		s.metrics.ValidationErrorsInc()
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
