package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"florai-occurrence/internal/api"
	"florai-occurrence/internal/cfg"
	"florai-occurrence/internal/metrics"
	"florai-occurrence/internal/ml"
	"florai-occurrence/internal/notify"
	"florai-occurrence/internal/storage"
)

func main() {
	// Optional .env for local development; the real environment wins.
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	predictor := initializePredictor(c, m)
	notifier := notify.NewService(store, m)

	startMetricsServer(ctx, c)

	server := api.NewServer(c.ListenPort, predictor, store, notifier, m)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("prediction server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}

func setupLogging(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

// initializeStorage opens the record store when DATA_PATH is configured. The
// service runs without persistence otherwise; predictions still work, saves
// and notifications become no-ops.
func initializeStorage(c cfg.Settings) storage.RecordStore {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.NewBoltStore(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without persistence")
		return nil
	}
	return store
}

// initializePredictor loads the artifact set. A load failure leaves the
// service in a degraded state where prediction endpoints answer 503, so a
// fresh deployment without trained artifacts still comes up for health
// checks.
func initializePredictor(c cfg.Settings, m *metrics.Metrics) *ml.Predictor {
	artifacts, err := ml.LoadArtifacts(c.ModelDir)
	if err != nil {
		log.Warn().Err(err).Str("model_dir", c.ModelDir).Msg("model artifacts unavailable, serving degraded")
		m.ModelLoaded.Set(0)
		return nil
	}

	predictor, err := ml.NewPredictor(artifacts, m)
	if err != nil {
		log.Warn().Err(err).Msg("predictor initialization failed, serving degraded")
		m.ModelLoaded.Set(0)
		return nil
	}

	m.ModelLoaded.Set(1)
	m.ModelAge.Set(time.Since(artifacts.TrainedAt).Seconds())
	log.Info().
		Time("trained_at", artifacts.TrainedAt).
		Int("features", len(artifacts.Columns)).
		Msg("model artifacts loaded")
	return predictor
}

// startMetricsServer starts the Prometheus metrics HTTP server.
func startMetricsServer(ctx context.Context, c cfg.Settings) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", c.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// waitForShutdown blocks until a termination signal arrives or a component
// cancels the context.
func waitForShutdown(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context cancelled")
	}
}
