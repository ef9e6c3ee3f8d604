// Package jobs runs estimation requests against a backend and keeps their history.
package jobs

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	models "github.com/jaskrrish/Go-VQA/internal/models/estimation"
	"github.com/jaskrrish/Go-VQA/internal/vqa/ansatz"
	"github.com/jaskrrish/Go-VQA/internal/vqa/costfn"
	"github.com/jaskrrish/Go-VQA/internal/vqa/estimation"
	"github.com/jaskrrish/Go-VQA/internal/vqa/preprocess"
	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// Recorder observes finished jobs
type Recorder interface {
	ObserveJob(kind models.JobKind, status models.JobStatus, duration time.Duration)
}

// Manager runs estimation jobs on one backend and stores them until they expire
type Manager struct {
	jobs  map[uuid.UUID]*models.Job
	mutex sync.RWMutex

	backend   quantum.Backend
	estimator *estimation.Estimator
	defaults  preprocess.Options
	logger    *slog.Logger
	recorder  Recorder
	now       func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithDefaults sets the preprocessing used by requests that do not choose their own
func WithDefaults(opts preprocess.Options) Option {
	return func(m *Manager) {
		m.defaults = opts
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRecorder reports every finished job to r
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

// WithEstimator replaces the estimator used for standard estimation.
// Its preprocessors are dropped: jobs run the preprocessing their request selects.
func WithEstimator(e *estimation.Estimator) Option {
	return func(m *Manager) {
		if e != nil {
			m.estimator = e
		}
	}
}

// NewManager creates a job manager for backend
func NewManager(backend quantum.Backend, opts ...Option) *Manager {
	m := &Manager{
		jobs:    make(map[uuid.UUID]*models.Job),
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.estimator == nil {
		m.estimator = estimation.NewEstimator(estimation.WithLogger(m.logger))
	}
	m.estimator = m.estimator.With(estimation.WithPreprocessors())
	m.logger = m.logger.With("component", "jobs", "backend", backend.Name())
	return m
}

// Backend returns the backend jobs run on
func (m *Manager) Backend() quantum.Backend {
	return m.backend
}

// RunEstimation estimates every task of the request and records the job.
// Client errors are *models.RequestError and leave no job behind. Estimation
// failures are recorded on the returned job and also returned as the error.
func (m *Manager) RunEstimation(ctx context.Context, req *models.EstimateRequest) (*models.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	tasks, err := buildTasks(req.Tasks)
	if err != nil {
		return nil, err
	}
	stages, err := m.preprocessors(req.Preprocessing)
	if err != nil {
		return nil, err
	}

	job, err := m.createJob(models.KindEstimation, req.Method, req, req.TTLMinutes)
	if err != nil {
		return nil, err
	}

	start := m.now()
	results, err := m.estimate(ctx, req.Method, req.Alpha, tasks, stages)
	if err != nil {
		return m.finishJob(job.JobID, start, nil, nil, err), err
	}
	return m.finishJob(job.JobID, start, toValues(results), nil, nil), nil
}

func (m *Manager) estimate(ctx context.Context, method string, alpha float64, tasks []estimation.Task, stages []estimation.Preprocessor) ([]quantum.ExpectationValues, error) {
	tasks, err := estimation.ApplyPreprocessors(tasks, stages...)
	if err != nil {
		return nil, err
	}
	return m.method(method, alpha).Estimate(ctx, m.backend, tasks)
}

// RunEnergy evaluates a hamiltonian on a hardware-efficient ansatz state
func (m *Manager) RunEnergy(ctx context.Context, req *models.EnergyRequest) (*models.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hamiltonian, err := quantum.ParsePauliSum(req.Hamiltonian)
	if err != nil {
		return nil, &models.RequestError{Message: err.Error()}
	}
	a, err := ansatz.NewHardwareEfficient(req.Ansatz.Layers, req.Ansatz.Qubits)
	if err != nil {
		return nil, &models.RequestError{Message: err.Error()}
	}
	stages, err := m.preprocessors(req.Preprocessing)
	if err != nil {
		return nil, err
	}

	job, err := m.createJob(models.KindEnergy, req.Method, req, req.TTLMinutes)
	if err != nil {
		return nil, err
	}

	factory := costfn.SubstitutionBasedTaskFactory(hamiltonian, a, stages...)
	cost := costfn.New(m.backend, factory, m.method(req.Method, req.Alpha), costfn.WithLogger(m.logger))

	start := m.now()
	energy, err := cost.Evaluate(ctx, req.Params)
	if err != nil {
		return m.finishJob(job.JobID, start, nil, nil, err), err
	}
	return m.finishJob(job.JobID, start, nil, &energy, nil), nil
}

// createJob stores a running job for the request
func (m *Manager) createJob(kind models.JobKind, method string, req any, ttlMinutes int) (*models.Job, error) {
	fingerprint, err := Fingerprint(m.backend.Name(), req)
	if err != nil {
		return nil, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.now()
	job := &models.Job{
		JobID:       uuid.New(),
		Kind:        kind,
		Status:      models.JobRunning,
		Backend:     m.backend.Name(),
		Method:      method,
		Fingerprint: fingerprint,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(ttlMinutes) * time.Minute),
	}
	m.jobs[job.JobID] = job

	return job, nil
}

// finishJob records the outcome of a job and returns a copy of it
func (m *Manager) finishJob(jobID uuid.UUID, start time.Time, values [][]float64, energy *float64, runErr error) *models.Job {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil
	}

	now := m.now()
	job.CompletedAt = &now
	job.DurationMs = now.Sub(start).Milliseconds()
	job.Values = values
	job.NumTasks = len(values)
	job.Energy = energy

	if runErr != nil {
		job.Status = models.JobFailed
		job.Message = runErr.Error()
		m.logger.Warn("job failed",
			slog.String("job_id", jobID.String()),
			slog.String("kind", string(job.Kind)),
			slog.String("error", runErr.Error()),
		)
	} else {
		job.Status = models.JobCompleted
		m.logger.Info("job completed",
			slog.String("job_id", jobID.String()),
			slog.String("kind", string(job.Kind)),
			slog.Int64("duration_ms", job.DurationMs),
		)
	}

	if m.recorder != nil {
		m.recorder.ObserveJob(job.Kind, job.Status, now.Sub(start))
	}
	return cloneJob(job)
}

// Get retrieves a job by ID
func (m *Manager) Get(jobID uuid.UUID) (*models.Job, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists || m.now().After(job.ExpiresAt) {
		return nil, models.ErrJobNotFound
	}
	return cloneJob(job), nil
}

// List returns all unexpired jobs, newest first
func (m *Manager) List() []*models.Job {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	now := m.now()
	out := make([]*models.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if !now.After(job.ExpiresAt) {
			out = append(out, cloneJob(job))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Delete removes a job
func (m *Manager) Delete(jobID uuid.UUID) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.jobs[jobID]; !exists {
		return models.ErrJobNotFound
	}
	delete(m.jobs, jobID)
	return nil
}

// CleanupExpired removes expired jobs and returns how many were removed
func (m *Manager) CleanupExpired() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.now()
	removed := 0
	for id, job := range m.jobs {
		if now.After(job.ExpiresAt) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}

// StartJanitor calls CleanupExpired every interval until ctx is done
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.CleanupExpired(); n > 0 {
					m.logger.Debug("expired jobs removed", slog.Int("count", n))
				}
			}
		}
	}()
}

// Fingerprint identifies a request on a backend: the hex SHA3-256 of both.
// Identical requests on the same backend share a fingerprint.
func Fingerprint(backend string, req any) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}
	h := sha3.New256()
	h.Write([]byte(backend))
	h.Write([]byte{0})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsClientError reports whether err was caused by the request rather than the backend
func IsClientError(err error) bool {
	var reqErr *models.RequestError
	return errors.As(err, &reqErr) ||
		errors.Is(err, estimation.ErrCapabilityNotSupported) ||
		errors.Is(err, estimation.ErrInvalidTask) ||
		errors.Is(err, estimation.ErrInvalidAlpha) ||
		errors.Is(err, quantum.ErrNonDiagonalOperator) ||
		errors.Is(err, preprocess.ErrNotQubitWiseCommuting) ||
		errors.Is(err, preprocess.ErrInvalidShotBudget)
}

func cloneJob(job *models.Job) *models.Job {
	c := *job
	if job.Values != nil {
		c.Values = make([][]float64, len(job.Values))
		for i, v := range job.Values {
			c.Values[i] = append([]float64(nil), v...)
		}
	}
	if job.Energy != nil {
		e := *job.Energy
		c.Energy = &e
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
