// Package ml implements the occurrence-likelihood model: a standard scaler,
// a multi-class gradient-boosted tree ensemble, versioned artifact
// persistence, held-out evaluation, and the serving Predictor.
package ml

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"florai-occurrence/internal/common"
	"florai-occurrence/internal/features"
)

// MetricsInterface defines the metrics methods the predictor reports to.
type MetricsInterface interface {
	PredictionsInc()
	PredictionFailuresInc()
	PredictionLatencyObserve(float64)
	ConfidenceObserve(float64)
}

// Result is one model prediction: the arg-max class, its probability as the
// confidence, and the full class distribution in label order.
type Result struct {
	Label         common.Likelihood
	Confidence    float64
	Probabilities [common.NumClasses]float64
}

// Predictor serves predictions from a loaded artifact set. The artifacts are
// immutable after construction, so a single Predictor is safe for concurrent
// use without locking.
type Predictor struct {
	artifacts *Artifacts
	metrics   MetricsInterface
}

// NewPredictor builds a predictor from loaded artifacts. Constructing one
// without a complete artifact set is a startup error, not a per-request one:
// the service must refuse to serve rather than attempt partial inference.
func NewPredictor(artifacts *Artifacts, metrics MetricsInterface) (*Predictor, error) {
	if artifacts == nil || artifacts.Model == nil || artifacts.Scaler == nil {
		return nil, fmt.Errorf("model artifacts not loaded")
	}
	return &Predictor{artifacts: artifacts, metrics: metrics}, nil
}

// TrainedAt reports when the served model was trained.
func (p *Predictor) TrainedAt() time.Time {
	return p.artifacts.TrainedAt
}

// Predict runs derive → scale → model for one observation. The observation
// is assumed boundary-validated; feature values are still checked for
// NaN/Inf before they reach the model.
func (p *Predictor) Predict(o features.Observation) (Result, error) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.PredictionLatencyObserve(time.Since(start).Seconds())
		}
	}()

	result, err := p.predict(o)
	if p.metrics != nil {
		if err != nil {
			p.metrics.PredictionFailuresInc()
		} else {
			p.metrics.PredictionsInc()
			p.metrics.ConfidenceObserve(result.Confidence)
		}
	}
	return result, err
}

// PredictBatch runs predictions independently per input, preserving input
// order. The batch is all-or-nothing: the first failing item aborts it with
// the item index attached. Inference on validated input is deterministic, so
// a partially-failed batch would mean something is wrong with the service,
// not the data.
func (p *Predictor) PredictBatch(obs []features.Observation) ([]Result, error) {
	results := make([]Result, len(obs))
	for i, o := range obs {
		r, err := p.Predict(o)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		results[i] = r
	}
	return results, nil
}

func (p *Predictor) predict(o features.Observation) (Result, error) {
	vec := features.Derive(o)
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Result{}, fmt.Errorf("feature %s is not finite", p.artifacts.Columns[i])
		}
	}

	scaled, err := p.artifacts.Scaler.Transform(vec)
	if err != nil {
		return Result{}, fmt.Errorf("scale features: %w", err)
	}

	probs, err := p.artifacts.Model.Probabilities(scaled)
	if err != nil {
		return Result{}, fmt.Errorf("model inference: %w", err)
	}

	var r Result
	copy(r.Probabilities[:], probs)
	best := argmax(probs)
	r.Label = common.Likelihood(best)
	r.Confidence = probs[best]

	log.Debug().
		Float64("lat", o.Latitude).
		Float64("lon", o.Longitude).
		Str("likelihood", r.Label.String()).
		Float64("confidence", r.Confidence).
		Msg("prediction")
	return r, nil
}
