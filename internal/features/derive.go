// Package features holds the single source of truth for the model feature
// schema. The same derivation runs at training time, in offline prediction,
// and in the serving path; the ordered column list persisted next to the
// model artifacts is checked against Columns() on load, so any drift between
// the two is caught before a single request is served.
package features

import (
	"fmt"
	"math"
)

// Count is the number of model features.
const Count = 18

// Observation is one day of weather at a location, as returned by the
// archive API or supplied by an inference request. Units: °C, mm, km/h,
// seconds, hours.
type Observation struct {
	Latitude         float64
	Longitude        float64
	TemperatureMax   float64
	TemperatureMin   float64
	Precipitation    float64
	WindSpeed        float64
	SunshineDuration float64
	RainHours        float64
}

// Column names in model input order. Names match the training CSV headers.
var columns = [Count]string{
	"decimalLatitude",
	"decimalLongitude",
	"lat_abs",
	"is_equatorial",
	"temperature_max_C",
	"temperature_min_C",
	"temperature_mean_C",
	"temp_range",
	"is_tropical",
	"precipitation_mm",
	"rain_mm",
	"precipitation_hours",
	"is_humid",
	"rain_hours_ratio",
	"windspeed_max_kmh",
	"windgusts_max_kmh",
	"sunshine_duration_s",
	"temp_precip_interaction",
}

// Columns returns the ordered feature names.
func Columns() []string {
	out := make([]string, Count)
	copy(out, columns[:])
	return out
}

// Derive maps an observation to its feature vector. Pure and deterministic;
// inputs are assumed validated (see Validate).
func Derive(o Observation) []float64 {
	tempMean := (o.TemperatureMax + o.TemperatureMin) / 2
	latAbs := math.Abs(o.Latitude)

	isEquatorial := 0.0
	if latAbs < 10 {
		isEquatorial = 1
	}
	isTropical := 0.0
	if tempMean > 20 && tempMean < 30 {
		isTropical = 1
	}
	isHumid := 0.0
	if o.Precipitation > 10 {
		isHumid = 1
	}

	return []float64{
		o.Latitude,
		o.Longitude,
		latAbs,
		isEquatorial,
		o.TemperatureMax,
		o.TemperatureMin,
		tempMean,
		o.TemperatureMax - o.TemperatureMin,
		isTropical,
		o.Precipitation,
		o.Precipitation, // rain_mm mirrors precipitation_mm for schema parity with the training CSV
		o.RainHours,
		isHumid,
		o.RainHours / 24,
		o.WindSpeed,
		o.WindSpeed * 1.5, // gust approximation
		o.SunshineDuration,
		tempMean * o.Precipitation,
	}
}

// Validate rejects observations a request boundary must not let through.
// The returned error names the violated constraint.
func Validate(o Observation) error {
	checks := []struct {
		name  string
		value float64
	}{
		{"latitude", o.Latitude},
		{"longitude", o.Longitude},
		{"temperatureMax", o.TemperatureMax},
		{"temperatureMin", o.TemperatureMin},
		{"precipitation", o.Precipitation},
		{"windSpeed", o.WindSpeed},
		{"sunshineDuration", o.SunshineDuration},
		{"rainHours", o.RainHours},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return fmt.Errorf("%s must be a finite number", c.name)
		}
	}

	switch {
	case o.Latitude < -90 || o.Latitude > 90:
		return fmt.Errorf("latitude must be in [-90, 90], got %v", o.Latitude)
	case o.Longitude < -180 || o.Longitude > 180:
		return fmt.Errorf("longitude must be in [-180, 180], got %v", o.Longitude)
	case o.Precipitation < 0:
		return fmt.Errorf("precipitation must be >= 0, got %v", o.Precipitation)
	case o.WindSpeed < 0:
		return fmt.Errorf("windSpeed must be >= 0, got %v", o.WindSpeed)
	case o.SunshineDuration < 0:
		return fmt.Errorf("sunshineDuration must be >= 0, got %v", o.SunshineDuration)
	case o.RainHours < 0 || o.RainHours > 24:
		return fmt.Errorf("rainHours must be in [0, 24], got %v", o.RainHours)
	}
	return nil
}
