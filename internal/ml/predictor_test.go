package ml

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"florai-occurrence/internal/common"
	"florai-occurrence/internal/features"
)

// mockMetrics records predictor metric calls.
type mockMetrics struct {
	predictions int
	failures    int
	latencies   int
	confidences []float64
}

func (m *mockMetrics) PredictionsInc()                   { m.predictions++ }
func (m *mockMetrics) PredictionFailuresInc()            { m.failures++ }
func (m *mockMetrics) PredictionLatencyObserve(float64)  { m.latencies++ }
func (m *mockMetrics) ConfidenceObserve(c float64)       { m.confidences = append(m.confidences, c) }

func tropicalObs(rng *rand.Rand) features.Observation {
	return features.Observation{
		Latitude:         12 + rng.Float64()*5,
		Longitude:        118 + rng.Float64()*6,
		TemperatureMax:   30 + rng.Float64()*4,
		TemperatureMin:   22 + rng.Float64()*3,
		Precipitation:    12 + rng.Float64()*10,
		WindSpeed:        8 + rng.Float64()*8,
		SunshineDuration: 30000 + rng.Float64()*8000,
		RainHours:        6 + rng.Float64()*6,
	}
}

func temperateObs(rng *rand.Rand) features.Observation {
	return features.Observation{
		Latitude:         25 + rng.Float64()*8,
		Longitude:        100 + rng.Float64()*10,
		TemperatureMax:   24 + rng.Float64()*3,
		TemperatureMin:   14 + rng.Float64()*3,
		Precipitation:    5 + rng.Float64()*4,
		WindSpeed:        10 + rng.Float64()*10,
		SunshineDuration: 25000 + rng.Float64()*8000,
		RainHours:        2 + rng.Float64()*3,
	}
}

func coldObs(rng *rand.Rand) features.Observation {
	return features.Observation{
		Latitude:         42 + rng.Float64()*10,
		Longitude:        85 + rng.Float64()*10,
		TemperatureMax:   10 + rng.Float64()*6,
		TemperatureMin:   -2 + rng.Float64()*6,
		Precipitation:    rng.Float64() * 3,
		WindSpeed:        15 + rng.Float64()*15,
		SunshineDuration: 20000 + rng.Float64()*8000,
		RainHours:        rng.Float64() * 2,
	}
}

// trainFixture trains a small model on synthetic observations whose class
// is determined by climate regime, and returns the full artifact set.
func trainFixture(t *testing.T) *Artifacts {
	t.Helper()
	rng := rand.New(rand.NewSource(8))

	var X [][]float64
	var y []int
	for i := 0; i < 120; i++ {
		var o features.Observation
		var label common.Likelihood
		switch i % 3 {
		case 0:
			o, label = tropicalObs(rng), common.High
		case 1:
			o, label = temperateObs(rng), common.Medium
		default:
			o, label = coldObs(rng), common.Low
		}
		X = append(X, features.Derive(o))
		y = append(y, int(label))
	}

	scaler, err := FitScaler(X)
	require.NoError(t, err)
	scaled, err := scaler.TransformAll(X)
	require.NoError(t, err)

	cfg := DefaultTrainConfig()
	cfg.Rounds = 40
	cfg.MaxDepth = 4
	model, err := Train(scaled, y, cfg)
	require.NoError(t, err)

	return &Artifacts{
		Model:     model,
		Scaler:    scaler,
		Columns:   features.Columns(),
		TrainedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestNewPredictor_RequiresArtifacts(t *testing.T) {
	t.Parallel()

	_, err := NewPredictor(nil, nil)
	assert.Error(t, err)
	_, err = NewPredictor(&Artifacts{}, nil)
	assert.Error(t, err)
}

func TestPredictor_ResultContract(t *testing.T) {
	t.Parallel()

	p, err := NewPredictor(trainFixture(t), nil)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 10; i++ {
		r, err := p.Predict(tropicalObs(rng))
		require.NoError(t, err)

		var sum float64
		for _, prob := range r.Probabilities {
			assert.GreaterOrEqual(t, prob, 0.0)
			assert.LessOrEqual(t, prob, 1.0)
			sum += prob
		}
		assert.InDelta(t, 1.0, sum, 1e-6, "probabilities must sum to 1")
		assert.Equal(t, r.Probabilities[int(r.Label)], r.Confidence,
			"confidence must equal the probability of the returned label")
	}
}

func TestPredictor_DistinctRegimes(t *testing.T) {
	t.Parallel()

	p, err := NewPredictor(trainFixture(t), nil)
	require.NoError(t, err)

	manila := features.Observation{Latitude: 14.6, Longitude: 121.0, TemperatureMax: 32, TemperatureMin: 24,
		Precipitation: 15, WindSpeed: 12, SunshineDuration: 36000, RainHours: 8}
	cold := features.Observation{Latitude: 45.0, Longitude: 90.0, TemperatureMax: 15, TemperatureMin: 5,
		Precipitation: 2, WindSpeed: 20, SunshineDuration: 25000, RainHours: 1}

	high, err := p.Predict(manila)
	require.NoError(t, err)
	low, err := p.Predict(cold)
	require.NoError(t, err)

	assert.Equal(t, common.High, high.Label)
	assert.Equal(t, common.Low, low.Label)
}

func TestPredictor_BatchOrderPreserved(t *testing.T) {
	t.Parallel()

	p, err := NewPredictor(trainFixture(t), nil)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(10))
	obs := []features.Observation{
		coldObs(rng), tropicalObs(rng), coldObs(rng), tropicalObs(rng), temperateObs(rng),
	}
	results, err := p.PredictBatch(obs)
	require.NoError(t, err)
	require.Len(t, results, len(obs))

	for i, o := range obs {
		single, err := p.Predict(o)
		require.NoError(t, err)
		assert.Equal(t, single, results[i], "batch item %d must match single-mode prediction", i)
	}
}

func TestPredictor_Metrics(t *testing.T) {
	t.Parallel()

	m := &mockMetrics{}
	p, err := NewPredictor(trainFixture(t), m)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(11))
	_, err = p.Predict(tropicalObs(rng))
	require.NoError(t, err)

	assert.Equal(t, 1, m.predictions)
	assert.Equal(t, 0, m.failures)
	assert.Equal(t, 1, m.latencies)
	require.Len(t, m.confidences, 1)
	assert.False(t, math.IsNaN(m.confidences[0]))
}
