// Package cfg loads service configuration from a YAML file pointed at by
// CONFIG_FILE, with environment variables overriding file values, and from
// the environment alone when no file is given.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"florai-occurrence/internal/common"
	"florai-occurrence/internal/ml"
)

// Settings is the resolved service configuration.
type Settings struct {
	ListenPort  int
	MetricsPort int

	DataPath string // record-store directory; empty disables persistence
	ModelDir string
	LogLevel string

	WeatherBaseURL string
	RESTTimeout    time.Duration

	GridSize             float64 // degrees, likelihood-label grid cell
	MinAbsenceDistanceKM float64
	TestFraction         float64

	Training ml.TrainConfig
}

// ConfigFile is the YAML layout.
type ConfigFile struct {
	Server struct {
		ListenPort  int `yaml:"listenPort"`
		MetricsPort int `yaml:"metricsPort"`
	} `yaml:"server"`

	Storage struct {
		DataPath string `yaml:"dataPath"`
	} `yaml:"storage"`

	ML struct {
		ModelDir     string         `yaml:"modelDir"`
		TestFraction float64        `yaml:"testFraction"`
		Training     ml.TrainConfig `yaml:"training"`
	} `yaml:"ml"`

	Sampling struct {
		GridSize             float64 `yaml:"gridSize"`
		MinAbsenceDistanceKM float64 `yaml:"minAbsenceDistanceKM"`
	} `yaml:"sampling"`

	Weather struct {
		BaseURL     string `yaml:"baseURL"`
		RESTTimeout string `yaml:"restTimeout"`
	} `yaml:"weather"`

	System struct {
		LogLevel string `yaml:"logLevel"`
	} `yaml:"system"`
}

// Load resolves settings from CONFIG_FILE when set, falling back to
// environment variables.
func Load() (Settings, error) {
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	restTimeout, err := time.ParseDuration(config.Weather.RESTTimeout)
	if err != nil {
		restTimeout = 10 * time.Second
	}

	settings := Settings{
		ListenPort:           getIntFromEnvOrConfig(common.EnvListenPort, config.Server.ListenPort),
		MetricsPort:          getIntFromEnvOrConfig(common.EnvMetricsPort, config.Server.MetricsPort),
		DataPath:             getEnvOrDefault(common.EnvDataPath, config.Storage.DataPath),
		ModelDir:             getEnvOrDefault(common.EnvModelDir, config.ML.ModelDir),
		LogLevel:             getEnvOrDefault(common.EnvLogLevel, config.System.LogLevel),
		WeatherBaseURL:       getEnvOrDefault(common.EnvWeatherURL, config.Weather.BaseURL),
		RESTTimeout:          getDurationOrDefault(common.EnvRESTTimeout, restTimeout),
		GridSize:             getFloatFromEnvOrConfig(common.EnvGridSize, config.Sampling.GridSize),
		MinAbsenceDistanceKM: getFloatFromEnvOrConfig(common.EnvMinDistance, config.Sampling.MinAbsenceDistanceKM),
		TestFraction:         config.ML.TestFraction,
		Training:             config.ML.Training,
	}
	applyDefaults(&settings)
	applySeedOverride(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ListenPort:           getIntOrDefault(common.EnvListenPort, common.DefaultListenPort),
		MetricsPort:          getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		DataPath:             os.Getenv(common.EnvDataPath), // optional
		ModelDir:             getEnvOrDefault(common.EnvModelDir, common.DefaultModelDir),
		LogLevel:             getEnvOrDefault(common.EnvLogLevel, "info"),
		WeatherBaseURL:       getEnvOrDefault(common.EnvWeatherURL, common.DefaultWeatherURL),
		RESTTimeout:          getDurationOrDefault(common.EnvRESTTimeout, 10*time.Second),
		GridSize:             getFloatOrDefault(common.EnvGridSize, common.DefaultGridSize),
		MinAbsenceDistanceKM: getFloatOrDefault(common.EnvMinDistance, common.DefaultMinDistanceKM),
	}
	applyDefaults(&settings)
	applySeedOverride(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func applyDefaults(s *Settings) {
	if s.ListenPort == 0 {
		s.ListenPort = common.DefaultListenPort
	}
	if s.MetricsPort == 0 {
		s.MetricsPort = common.DefaultMetricsPort
	}
	if s.ModelDir == "" {
		s.ModelDir = common.DefaultModelDir
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.WeatherBaseURL == "" {
		s.WeatherBaseURL = common.DefaultWeatherURL
	}
	if s.RESTTimeout == 0 {
		s.RESTTimeout = 10 * time.Second
	}
	if s.GridSize == 0 {
		s.GridSize = common.DefaultGridSize
	}
	if s.MinAbsenceDistanceKM == 0 {
		s.MinAbsenceDistanceKM = common.DefaultMinDistanceKM
	}
	if s.TestFraction == 0 {
		s.TestFraction = 0.2
	}

	defaults := ml.DefaultTrainConfig()
	if s.Training.Rounds == 0 {
		s.Training.Rounds = defaults.Rounds
	}
	if s.Training.MaxDepth == 0 {
		s.Training.MaxDepth = defaults.MaxDepth
	}
	if s.Training.LearningRate == 0 {
		s.Training.LearningRate = defaults.LearningRate
	}
	if s.Training.Subsample == 0 {
		s.Training.Subsample = defaults.Subsample
	}
	if s.Training.ColSampleByTree == 0 {
		s.Training.ColSampleByTree = defaults.ColSampleByTree
	}
	if s.Training.Lambda == 0 {
		s.Training.Lambda = defaults.Lambda
	}
	if s.Training.MinChildWeight == 0 {
		s.Training.MinChildWeight = defaults.MinChildWeight
	}
	if s.Training.Seed == 0 {
		s.Training.Seed = defaults.Seed
	}
}

// applySeedOverride lets TRAINING_SEED win over both the config file and the
// default, like every other env-backed setting.
func applySeedOverride(s *Settings) {
	if seed := getIntOrDefault(common.EnvTrainingSeed, 0); seed != 0 {
		s.Training.Seed = int64(seed)
	}
}

func validateSettings(s *Settings) error {
	if s.ListenPort < common.MinPort || s.ListenPort > common.MaxPort {
		return fmt.Errorf("listen port %d outside [%d, %d]", s.ListenPort, common.MinPort, common.MaxPort)
	}
	if s.MetricsPort < common.MinPort || s.MetricsPort > common.MaxPort {
		return fmt.Errorf("metrics port %d outside [%d, %d]", s.MetricsPort, common.MinPort, common.MaxPort)
	}
	if s.MetricsPort == s.ListenPort {
		return fmt.Errorf("metrics port and listen port must differ")
	}
	if s.GridSize <= 0 {
		return fmt.Errorf("grid size must be positive, got %v", s.GridSize)
	}
	if s.MinAbsenceDistanceKM < 0 {
		return fmt.Errorf("minimum absence distance must be non-negative, got %v", s.MinAbsenceDistanceKM)
	}
	if s.TestFraction <= 0 || s.TestFraction >= 1 {
		return fmt.Errorf("test fraction must be in (0, 1), got %v", s.TestFraction)
	}
	if s.Training.Rounds <= 0 || s.Training.MaxDepth <= 0 || s.Training.LearningRate <= 0 {
		return fmt.Errorf("invalid training config: rounds=%d depth=%d lr=%v",
			s.Training.Rounds, s.Training.MaxDepth, s.Training.LearningRate)
	}
	if s.Training.Subsample <= 0 || s.Training.Subsample > 1 ||
		s.Training.ColSampleByTree <= 0 || s.Training.ColSampleByTree > 1 {
		return fmt.Errorf("subsample fractions must be in (0, 1]")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	return getIntOrDefault(key, configValue)
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue float64) float64 {
	return getFloatOrDefault(key, configValue)
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
