package dataset

import (
	"math"
	"math/rand"
	"sort"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"florai-occurrence/internal/common"
	"florai-occurrence/internal/features"
	"florai-occurrence/internal/geo"
)

// AbsenceConfig controls pseudo-absence generation.
type AbsenceConfig struct {
	N                 int     // number of absences to generate
	MinDistanceKM     float64 // exclusion radius around presence points
	MaxAttemptsFactor int     // attempt budget = N * factor
	ExtremeProb       float64 // probability of drawing from unsuitable tails
	BoundsMarginDeg   float64 // bounding-box expansion on each side
	Seed              int64   // 0 means non-deterministic
}

// DefaultAbsenceConfig returns the standard sampler settings for n absences.
func DefaultAbsenceConfig(n int) AbsenceConfig {
	return AbsenceConfig{
		N:                 n,
		MinDistanceKM:     common.DefaultMinDistanceKM,
		MaxAttemptsFactor: 20,
		ExtremeProb:       0.7,
		BoundsMarginDeg:   5,
	}
}

// GenerateAbsences produces synthetic non-occurrence samples to balance a
// presence-only dataset: locations drawn over the expanded bounding box of
// the presences, rejected when closer than MinDistanceKM to any presence,
// with weather biased towards the environmental tails of the presence
// distribution (below the 5th or above the 95th percentile) with probability
// ExtremeProb, and realistic mid-range draws otherwise.
//
// If the attempt budget is exhausted before N samples pass the distance gate,
// the partial result is returned — a smaller dataset, not an error.
func GenerateAbsences(presences []Sample, cfg AbsenceConfig) []Sample {
	if len(presences) == 0 || cfg.N <= 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	latLo, latHi := math.Inf(1), math.Inf(-1)
	lonLo, lonHi := math.Inf(1), math.Inf(-1)
	temps := make([]float64, len(presences))
	precips := make([]float64, len(presences))
	for i, p := range presences {
		latLo = math.Min(latLo, p.Obs.Latitude)
		latHi = math.Max(latHi, p.Obs.Latitude)
		lonLo = math.Min(lonLo, p.Obs.Longitude)
		lonHi = math.Max(lonHi, p.Obs.Longitude)
		temps[i] = p.TempMean
		precips[i] = p.Obs.Precipitation
	}
	latLo -= cfg.BoundsMarginDeg
	latHi += cfg.BoundsMarginDeg
	lonLo -= cfg.BoundsMarginDeg
	lonHi += cfg.BoundsMarginDeg

	sort.Float64s(temps)
	sort.Float64s(precips)
	tempLo := stat.Quantile(0.05, stat.Empirical, temps, nil)
	tempHi := stat.Quantile(0.95, stat.Empirical, temps, nil)
	precipLo := stat.Quantile(0.05, stat.Empirical, precips, nil)
	precipHi := stat.Quantile(0.95, stat.Empirical, precips, nil)

	log.Info().
		Int("n", cfg.N).
		Float64("temp_p5", tempLo).Float64("temp_p95", tempHi).
		Float64("precip_p5", precipLo).Float64("precip_p95", precipHi).
		Msg("generating pseudo-absences")

	species := presences[0].Species
	absences := make([]Sample, 0, cfg.N)
	maxAttempts := cfg.N * cfg.MaxAttemptsFactor

	for attempts := 0; len(absences) < cfg.N && attempts < maxAttempts; attempts++ {
		lat := uniform(rng, latLo, latHi)
		lon := uniform(rng, lonLo, lonHi)

		if nearestPresenceKM(lat, lon, presences) < cfg.MinDistanceKM {
			continue
		}

		var temp, precip float64
		if rng.Float64() < cfg.ExtremeProb {
			// Unsuitable conditions: too cold/hot and too dry/wet.
			if rng.Intn(2) == 0 {
				temp = uniform(rng, tempLo-5, tempLo)
			} else {
				temp = uniform(rng, tempHi, tempHi+5)
			}
			if rng.Intn(2) == 0 {
				precip = uniform(rng, 0, precipLo)
			} else {
				precip = uniform(rng, precipHi, precipHi*1.5)
			}
		} else {
			// Some realistic negatives within the presence envelope.
			temp = uniform(rng, tempLo, tempHi)
			precip = uniform(rng, precipLo, precipHi)
		}

		absences = append(absences, Sample{
			Species: species,
			Obs: features.Observation{
				Latitude:         lat,
				Longitude:        lon,
				TemperatureMax:   temp + uniform(rng, 2, 8),
				TemperatureMin:   temp - uniform(rng, 2, 8),
				Precipitation:    math.Max(0, precip),
				WindSpeed:        uniform(rng, 5, 40),
				SunshineDuration: uniform(rng, 0, 43200),
				RainHours:        uniform(rng, 0, 24),
			},
			TempMean: temp,
			Presence: 0,
		})
	}

	if len(absences) < cfg.N {
		log.Warn().
			Int("requested", cfg.N).
			Int("generated", len(absences)).
			Msg("absence sampling exhausted attempt budget")
	}
	return absences
}

func nearestPresenceKM(lat, lon float64, presences []Sample) float64 {
	nearest := math.Inf(1)
	for _, p := range presences {
		d := geo.Haversine(lat, lon, p.Obs.Latitude, p.Obs.Longitude)
		if d < nearest {
			nearest = d
		}
	}
	return nearest
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
