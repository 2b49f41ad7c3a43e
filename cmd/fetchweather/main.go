// fetchweather joins a raw occurrence export with historical daily weather
// from the Open-Meteo archive, producing the training CSV the train command
// consumes. Rows without a parseable event date or with a failed weather
// lookup are skipped and counted, not fatal.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"florai-occurrence/internal/cfg"
	"florai-occurrence/internal/dataset"
	"florai-occurrence/internal/features"
	"florai-occurrence/internal/weather"
)

type occurrence struct {
	species string
	lat     float64
	lon     float64
	date    string
}

func main() {
	var (
		inputPath  = flag.String("input", "", "Path to the occurrence CSV export (required)")
		outputPath = flag.String("output", "occurrences_weather.csv", "Output training CSV path")
		delay      = flag.Duration("delay", 100*time.Millisecond, "Delay between archive requests")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *inputPath == "" {
		flag.Usage()
		log.Fatal().Msg("-input is required")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	occurrences, err := readOccurrences(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *inputPath).Msg("failed to read occurrence export")
	}
	log.Info().Int("records", len(occurrences)).Msg("occurrence export loaded")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := weather.NewClient(c.WeatherBaseURL, c.RESTTimeout)

	var samples []dataset.Sample
	var skippedDates, failedFetches int
	for i, o := range occurrences {
		if ctx.Err() != nil {
			log.Warn().Int("processed", i).Msg("interrupted, writing partial output")
			break
		}
		if i > 0 && i%10 == 0 {
			log.Info().Int("processed", i).Int("total", len(occurrences)).Msg("fetching weather")
		}

		date, err := weather.ParseDate(o.date)
		if err != nil {
			skippedDates++
			continue
		}

		d, err := client.FetchDaily(ctx, o.lat, o.lon, date)
		if err != nil {
			log.Warn().Err(err).Float64("lat", o.lat).Float64("lon", o.lon).Str("date", date).Msg("weather fetch failed")
			failedFetches++
			continue
		}

		samples = append(samples, dataset.Sample{
			Species: o.species,
			Obs: features.Observation{
				Latitude:         o.lat,
				Longitude:        o.lon,
				TemperatureMax:   d.TemperatureMax,
				TemperatureMin:   d.TemperatureMin,
				Precipitation:    d.Precipitation,
				WindSpeed:        d.WindSpeedMax,
				SunshineDuration: d.SunshineDuration,
				RainHours:        d.RainHours,
			},
			TempMean: d.TemperatureMean,
			Presence: 1,
		})

		// Archive API rate limit courtesy.
		time.Sleep(*delay)
	}

	if err := dataset.WriteCSV(*outputPath, samples); err != nil {
		log.Fatal().Err(err).Str("path", *outputPath).Msg("failed to write training CSV")
	}
	log.Info().
		Int("written", len(samples)).
		Int("skipped_dates", skippedDates).
		Int("failed_fetches", failedFetches).
		Str("path", *outputPath).
		Msg("training CSV written")
}

// readOccurrences loads the raw export, resolving columns by header name so
// extra columns from the aggregator are tolerated.
func readOccurrences(path string) ([]occurrence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("export %s has no data rows", path)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, required := range []string{"decimalLatitude", "decimalLongitude", "eventDate"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("export missing required column %q", required)
		}
	}

	get := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	occurrences := make([]occurrence, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		lat, err := strconv.ParseFloat(get(row, "decimalLatitude"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: decimalLatitude: %w", line, err)
		}
		lon, err := strconv.ParseFloat(get(row, "decimalLongitude"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: decimalLongitude: %w", line, err)
		}
		occurrences = append(occurrences, occurrence{
			species: get(row, "species"),
			lat:     lat,
			lon:     lon,
			date:    get(row, "eventDate"),
		})
	}
	return occurrences, nil
}
