// Package api exposes the prediction service over HTTP: single and batch
// prediction, health, and service info. Handlers validate at the boundary,
// delegate to the predictor, and treat record/notification writes as
// best-effort side channels.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"florai-occurrence/internal/ml"
	"florai-occurrence/internal/notify"
	"florai-occurrence/internal/storage"
)

// MetricsInterface defines the metrics methods the HTTP boundary reports to.
type MetricsInterface interface {
	ValidationErrorsInc()
}

// Server serves the prediction API. A nil predictor means the artifact set
// failed to load; the server still starts so health checks can report the
// degraded state, but prediction endpoints answer 503.
type Server struct {
	predictor *ml.Predictor
	store     storage.RecordStore
	notifier  *notify.Service
	metrics   MetricsInterface
	http      *http.Server
}

// NewServer wires the handlers onto a router and configures the listener.
func NewServer(port int, predictor *ml.Predictor, store storage.RecordStore, notifier *notify.Service, metrics MetricsInterface) *Server {
	s := &Server{
		predictor: predictor,
		store:     store,
		notifier:  notifier,
		metrics:   metrics,
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Router builds the route table. Exposed separately so tests can drive the
// handlers without a listener.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/predict/batch", s.handlePredictBatch).Methods(http.MethodPost, http.MethodOptions)
	r.Use(corsMiddleware)
	return r
}

// Start begins serving HTTP requests. Blocks until shutdown or failure.
func (s *Server) Start() error {
	log.Info().Str("addr", s.http.Addr).Msg("starting prediction server")
	return s.http.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// corsMiddleware keeps the API usable from browser frontends. The service
// sits behind an authenticating gateway, so the policy is permissive.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
