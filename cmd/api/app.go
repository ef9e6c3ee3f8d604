package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jaskrrish/Go-VQA/internal/config"
	"github.com/jaskrrish/Go-VQA/internal/handlers"
	"github.com/jaskrrish/Go-VQA/internal/metrics"
	"github.com/jaskrrish/Go-VQA/internal/vqa/jobs"
	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// app wires the backend, job manager and metrics together
type app struct {
	backend quantum.Backend
	manager *jobs.Manager
	metrics *metrics.Metrics
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	backend, err := newBackend(ctx, cfg.Backend, logger)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	backend = m.Instrument(backend)

	manager := jobs.NewManager(backend,
		jobs.WithDefaults(cfg.Estimation.Options()),
		jobs.WithLogger(logger),
		jobs.WithRecorder(m),
	)
	return &app{backend: backend, manager: manager, metrics: m}, nil
}

// newBackend creates the backend selected by the configuration
func newBackend(ctx context.Context, cfg config.BackendConfig, logger *slog.Logger) (quantum.Backend, error) {
	if cfg.Type == "qiskit" {
		client, err := quantum.NewQiskitClient(ctx, &quantum.QiskitConfig{
			APIKey:            cfg.Qiskit.APIKey,
			BaseURL:           cfg.Qiskit.BaseURL,
			BackendName:       cfg.Qiskit.BackendName,
			HTTPClient:        &http.Client{Timeout: cfg.Qiskit.Timeout},
			PollInterval:      cfg.Qiskit.PollInterval,
			RequestsPerSecond: cfg.Qiskit.RequestsPerSecond,
			Logger:            logger,
		})
		if err != nil {
			return nil, err
		}
		return quantum.NewQiskitBackend(client), nil
	}

	opts := []quantum.SimulatorOption{quantum.WithReadoutError(cfg.ReadoutError)}
	if cfg.Seed != 0 {
		opts = append(opts, quantum.WithSeed(cfg.Seed))
	}
	return quantum.NewSimulatorBackend(opts...), nil
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", handlers.HomeHandler)
	mux.HandleFunc("/health", handlers.HealthHandler(a.backend))
	handlers.NewJobHandler(a.manager).Register(mux)
	mux.Handle("/metrics", a.metrics.Handler())

	return otelhttp.NewHandler(mux, "go-vqa",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
