package storage

import "time"

// PredictionRecord is the document written to the ai_predictions collection
// for every saved prediction. UserID is empty for anonymous predictions.
type PredictionRecord struct {
	PredictionID string `json:"predictionID"`
	UserID       string `json:"userID,omitempty"`
	ModelType    string `json:"modelType"`
	ModelVersion string `json:"modelVersion"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	TemperatureMax   float64 `json:"temperature_max"`
	TemperatureMin   float64 `json:"temperature_min"`
	TemperatureMean  float64 `json:"temperature_mean"`
	Precipitation    float64 `json:"precipitation"`
	WindSpeed        float64 `json:"wind_speed"`
	SunshineDuration float64 `json:"sunshine_duration"`
	RainHours        float64 `json:"rain_hours"`

	PredictedLikelihood string  `json:"predicted_likelihood"`
	Confidence          float64 `json:"confidence"`
	ProbabilityLow      float64 `json:"probability_low"`
	ProbabilityMedium   float64 `json:"probability_medium"`
	ProbabilityHigh     float64 `json:"probability_high"`

	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}
