package common

import "fmt"

// Likelihood is the ordinal occurrence-risk class predicted by the model.
// The integer values are the class labels the model is trained on and their
// order is the risk order.
type Likelihood int

const (
	Low Likelihood = iota
	Medium
	High
)

// NumClasses is the number of likelihood classes.
const NumClasses = 3

// String returns the API representation of the class.
func (l Likelihood) String() string {
	switch l {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	}
	return fmt.Sprintf("Likelihood(%d)", int(l))
}

// Severity returns the lowercase severity tier used in notification records.
func (l Likelihood) Severity() string {
	switch l {
	case High:
		return "high"
	case Medium:
		return "medium"
	}
	return "low"
}

// ParseLikelihood maps an API/class-name string back to a Likelihood.
func ParseLikelihood(s string) (Likelihood, error) {
	switch s {
	case "Low":
		return Low, nil
	case "Medium":
		return Medium, nil
	case "High":
		return High, nil
	}
	return Low, fmt.Errorf("unknown likelihood %q", s)
}

// Model metadata stamped into persisted prediction and notification records.
const (
	ModelType    = "GBT_ML"
	ModelVersion = "1.0.0"
)

// Environment variable keys
const (
	EnvConfigFile   = "CONFIG_FILE"
	EnvListenPort   = "LISTEN_PORT"
	EnvMetricsPort  = "METRICS_PORT"
	EnvDataPath     = "DATA_PATH"
	EnvModelDir     = "MODEL_DIR"
	EnvLogLevel     = "LOG_LEVEL"
	EnvWeatherURL   = "WEATHER_BASE_URL"
	EnvRESTTimeout  = "REST_TIMEOUT"
	EnvGridSize     = "GRID_SIZE"
	EnvMinDistance  = "MIN_ABSENCE_DISTANCE_KM"
	EnvTrainingSeed = "TRAINING_SEED"
)

// Configuration defaults
const (
	DefaultListenPort    = 8001
	DefaultMetricsPort   = 9090
	DefaultModelDir      = "models"
	DefaultWeatherURL    = "https://archive-api.open-meteo.com"
	DefaultGridSize      = 0.5  // degrees, ~50km at the equator
	DefaultMinDistanceKM = 50.0 // absence exclusion radius
	DefaultTrainingSeed  = 42
)

// Validation constants
const (
	MinPort = 1024
	MaxPort = 65535
)
