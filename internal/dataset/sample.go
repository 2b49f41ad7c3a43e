// Package dataset builds labeled training data: CSV ingest of occurrence
// records joined with weather, pseudo-absence generation, spatial-density
// likelihood labeling, and the stratified train/test split.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"florai-occurrence/internal/common"
	"florai-occurrence/internal/features"
)

// Sample is a single training row: an observation, its presence flag and,
// once AssignLabels has run, its likelihood class. Never mutated after
// labeling.
type Sample struct {
	Species  string
	Obs      features.Observation
	TempMean float64
	Presence int
	Label    common.Likelihood
}

// Features returns the model feature vector for the sample.
func (s Sample) Features() []float64 {
	return features.Derive(s.Obs)
}

// CSV column names shared with the weather fetcher output.
var csvHeader = []string{
	"species",
	"decimalLatitude",
	"decimalLongitude",
	"temperature_max_C",
	"temperature_min_C",
	"temperature_mean_C",
	"precipitation_mm",
	"rain_mm",
	"precipitation_hours",
	"windspeed_max_kmh",
	"windgusts_max_kmh",
	"sunshine_duration_s",
	"presence",
}

// ReadCSV loads samples from a training CSV. Columns are resolved by header
// name so extra columns are tolerated; rows with unparseable numerics are
// rejected with their line number.
func ReadCSV(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("dataset %s has no data rows", path)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, required := range []string{"decimalLatitude", "decimalLongitude", "temperature_max_C", "temperature_min_C", "precipitation_mm"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("dataset missing required column %q", required)
		}
	}

	samples := make([]Sample, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		get := func(name string) (float64, bool, error) {
			idx, ok := col[name]
			if !ok || idx >= len(row) || row[idx] == "" {
				return 0, false, nil
			}
			v, err := strconv.ParseFloat(row[idx], 64)
			if err != nil {
				return 0, false, fmt.Errorf("line %d: column %s: %w", line, name, err)
			}
			return v, true, nil
		}

		var s Sample
		if idx, ok := col["species"]; ok && idx < len(row) {
			s.Species = row[idx]
		}

		var parseErr error
		read := func(name string, dst *float64) {
			if parseErr != nil {
				return
			}
			v, ok, err := get(name)
			if err != nil {
				parseErr = err
				return
			}
			if ok {
				*dst = v
			}
		}
		read("decimalLatitude", &s.Obs.Latitude)
		read("decimalLongitude", &s.Obs.Longitude)
		read("temperature_max_C", &s.Obs.TemperatureMax)
		read("temperature_min_C", &s.Obs.TemperatureMin)
		read("temperature_mean_C", &s.TempMean)
		read("precipitation_mm", &s.Obs.Precipitation)
		read("precipitation_hours", &s.Obs.RainHours)
		read("windspeed_max_kmh", &s.Obs.WindSpeed)
		read("sunshine_duration_s", &s.Obs.SunshineDuration)
		if parseErr != nil {
			return nil, parseErr
		}

		if s.TempMean == 0 {
			s.TempMean = (s.Obs.TemperatureMax + s.Obs.TemperatureMin) / 2
		}

		presence := 1.0
		if v, ok, err := get("presence"); err != nil {
			return nil, err
		} else if ok {
			presence = v
		}
		s.Presence = int(presence)

		if err := features.Validate(s.Obs); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// WriteCSV writes samples in the shared training CSV layout.
func WriteCSV(path string, samples []Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	fl := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, s := range samples {
		row := []string{
			s.Species,
			fl(s.Obs.Latitude),
			fl(s.Obs.Longitude),
			fl(s.Obs.TemperatureMax),
			fl(s.Obs.TemperatureMin),
			fl(s.TempMean),
			fl(s.Obs.Precipitation),
			fl(s.Obs.Precipitation),
			fl(s.Obs.RainHours),
			fl(s.Obs.WindSpeed),
			fl(s.Obs.WindSpeed * 1.5),
			fl(s.Obs.SunshineDuration),
			strconv.Itoa(s.Presence),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
