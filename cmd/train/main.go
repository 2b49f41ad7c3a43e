package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"florai-occurrence/internal/cfg"
	"florai-occurrence/internal/dataset"
	"florai-occurrence/internal/features"
	"florai-occurrence/internal/ml"
)

func main() {
	var (
		inputPath  = flag.String("input", "", "Path to the labeled occurrence+weather CSV (required)")
		outputDir  = flag.String("output", "", "Artifact output directory (overrides config)")
		absences   = flag.Int("absences", 0, "Number of pseudo-absences to generate (default: one per presence)")
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
	if *outputDir == "" {
		*outputDir = c.ModelDir
	}

	samples, err := dataset.ReadCSV(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *inputPath).Msg("failed to read training data")
	}

	var presences []dataset.Sample
	for _, s := range samples {
		if s.Presence == 1 {
			presences = append(presences, s)
		}
	}
	log.Info().
		Int("rows", len(samples)).
		Int("presences", len(presences)).
		Msg("training data loaded")

	// Balance the presence-only dataset with synthetic negatives.
	n := *absences
	if n <= 0 {
		n = len(presences)
	}
	absenceCfg := dataset.DefaultAbsenceConfig(n)
	absenceCfg.MinDistanceKM = c.MinAbsenceDistanceKM
	absenceCfg.Seed = c.Training.Seed
	generated := dataset.GenerateAbsences(presences, absenceCfg)
	log.Info().Int("requested", n).Int("generated", len(generated)).Msg("pseudo-absences sampled")

	all := append(samples, generated...)
	dataset.AssignLabels(all, c.GridSize)

	train, test := dataset.StratifiedSplit(all, c.TestFraction, c.Training.Seed)
	log.Info().Int("train", len(train)).Int("test", len(test)).Msg("stratified split")

	trainX, trainY := featureMatrix(train)
	testX, testY := featureMatrix(test)

	// Scaler is fitted on the training split only.
	scaler, err := ml.FitScaler(trainX)
	if err != nil {
		log.Fatal().Err(err).Msg("scaler fit failed")
	}
	scaledTrain, err := scaler.TransformAll(trainX)
	if err != nil {
		log.Fatal().Err(err).Msg("scaling training split failed")
	}
	scaledTest, err := scaler.TransformAll(testX)
	if err != nil {
		log.Fatal().Err(err).Msg("scaling test split failed")
	}

	started := time.Now()
	model, err := ml.Train(scaledTrain, trainY, c.Training)
	if err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}
	log.Info().Dur("elapsed", time.Since(started)).Int("rounds", c.Training.Rounds).Msg("model trained")

	report, err := ml.Evaluate(model, scaledTest, testY)
	if err != nil {
		log.Fatal().Err(err).Msg("evaluation failed")
	}
	report.Log()

	artifacts := &ml.Artifacts{
		Model:     model,
		Scaler:    scaler,
		Columns:   features.Columns(),
		TrainedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := ml.SaveArtifacts(*outputDir, artifacts); err != nil {
		log.Fatal().Err(err).Str("dir", *outputDir).Msg("artifact persistence failed")
	}
	log.Info().Str("dir", *outputDir).Msg("artifacts saved")
}

func featureMatrix(samples []dataset.Sample) ([][]float64, []int) {
	X := make([][]float64, len(samples))
	y := make([]int, len(samples))
	for i, s := range samples {
		X[i] = s.Features()
		y[i] = int(s.Label)
	}
	return X, y
}
