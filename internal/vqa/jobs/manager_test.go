package jobs

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "github.com/jaskrrish/Go-VQA/internal/models/estimation"
	"github.com/jaskrrish/Go-VQA/internal/vqa/estimation"
	"github.com/jaskrrish/Go-VQA/internal/vqa/preprocess"
	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

func bellSpec() models.CircuitSpec {
	return models.CircuitSpec{
		NumQubits: 2,
		Gates: []models.GateSpec{
			{Name: "h", Qubits: []int{0}},
			{Name: "cx", Qubits: []int{0, 1}},
		},
	}
}

func intPtr(n int) *int {
	return &n
}

type recordedJob struct {
	kind   models.JobKind
	status models.JobStatus
}

type fakeRecorder struct {
	mu   sync.Mutex
	jobs []recordedJob
}

func (r *fakeRecorder) ObserveJob(kind models.JobKind, status models.JobStatus, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, recordedJob{kind, status})
}

// failingRunner samples nothing and always errors
type failingRunner struct{ err error }

func (f failingRunner) Name() string { return "failing" }

func (f failingRunner) RunBatchAndMeasure(context.Context, []*quantum.Circuit, []int) ([]*quantum.Measurements, error) {
	return nil, f.err
}

// TestRunEstimation tests exact estimation of a Bell state
func TestRunEstimation(t *testing.T) {
	recorder := &fakeRecorder{}
	m := NewManager(quantum.NewSimulatorBackend(), WithRecorder(recorder))

	req := &models.EstimateRequest{
		Tasks: []models.TaskSpec{
			{Operator: "Z0*Z1 + 0.5*X0*X1", Circuit: bellSpec()},
			{Operator: "Z0", Circuit: bellSpec()},
		},
	}

	job, err := m.RunEstimation(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.JobID)
	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, models.KindEstimation, job.Kind)
	assert.Equal(t, models.MethodStandard, job.Method)
	assert.Equal(t, "StateVectorSimulator", job.Backend)
	assert.Equal(t, 2, job.NumTasks)
	require.Len(t, job.Values, 2)
	assert.InDeltaSlice(t, []float64{1, 0.5}, job.Values[0], 1e-12)
	assert.InDeltaSlice(t, []float64{0}, job.Values[1], 1e-12)
	assert.True(t, job.Terminal())
	require.NotNil(t, job.CompletedAt)
	assert.Len(t, job.Fingerprint, 64)

	stored, err := m.Get(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, job.Values, stored.Values)

	assert.Equal(t, []recordedJob{{models.KindEstimation, models.JobCompleted}}, recorder.jobs)
}

// TestRunEstimationSampled tests sampled tasks with preprocessing
func TestRunEstimationSampled(t *testing.T) {
	m := NewManager(quantum.NewSimulatorBackend(quantum.WithSeed(7)))

	req := &models.EstimateRequest{
		Tasks: []models.TaskSpec{
			{Operator: "Z0 + Z1 + Z0*Z1", Circuit: bellSpec(), Shots: intPtr(500)},
		},
		Preprocessing: &models.PreprocessingSpec{
			Grouping:       preprocess.GroupingIndividual,
			ShotAllocation: preprocess.ShotsUniform,
			Shots:          200,
		},
	}

	job, err := m.RunEstimation(context.Background(), req)
	require.NoError(t, err)

	// A Bell state only ever measures 00 or 11: Z0 and Z1 vary, Z0*Z1 is always 1
	require.Len(t, job.Values, 3)
	assert.Equal(t, 3, job.NumTasks)
	assert.InDeltaSlice(t, []float64{1}, job.Values[2], 1e-12)
	for _, v := range job.Values[:2] {
		require.Len(t, v, 1)
		assert.LessOrEqual(t, math.Abs(v[0]), 1.0)
	}
}

// TestRunEstimationDefaults tests that manager defaults apply when a request has no preprocessing
func TestRunEstimationDefaults(t *testing.T) {
	m := NewManager(quantum.NewSimulatorBackend(), WithDefaults(preprocess.Options{Grouping: preprocess.GroupingIndividual}))

	job, err := m.RunEstimation(context.Background(), &models.EstimateRequest{
		Tasks: []models.TaskSpec{{Operator: "Z0 + X1 + 2", Circuit: bellSpec()}},
	})
	require.NoError(t, err)
	assert.Len(t, job.Values, 3)
}

// TestRunEstimationInjectedEstimator tests that preprocessing runs once when the
// injected estimator carries its own stages
func TestRunEstimationInjectedEstimator(t *testing.T) {
	calls := 0
	counting := func(tasks []estimation.Task) ([]estimation.Task, error) {
		calls++
		return tasks, nil
	}
	estimator := estimation.NewEstimator(estimation.WithPreprocessors(counting, preprocess.GroupIndividually))
	m := NewManager(quantum.NewSimulatorBackend(),
		WithEstimator(estimator),
		WithDefaults(preprocess.Options{Grouping: preprocess.GroupingIndividual}),
	)

	job, err := m.RunEstimation(context.Background(), &models.EstimateRequest{
		Tasks: []models.TaskSpec{{Operator: "Z0 + X1 + 2", Circuit: bellSpec()}},
	})
	require.NoError(t, err)
	assert.Len(t, job.Values, 3)
	assert.Zero(t, calls)

	_, err = estimator.Estimate(context.Background(), quantum.NewSimulatorBackend(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "the injected estimator keeps its own stages")
}

// TestRunEstimationCvar tests the CVaR method
func TestRunEstimationCvar(t *testing.T) {
	m := NewManager(quantum.NewSimulatorBackend())

	job, err := m.RunEstimation(context.Background(), &models.EstimateRequest{
		Tasks:  []models.TaskSpec{{Operator: "Z0 + Z1", Circuit: bellSpec()}},
		Method: models.MethodCvar,
		Alpha:  0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MethodCvar, job.Method)
	require.Len(t, job.Values, 1)
	assert.InDelta(t, -2.0, job.Values[0][0], 1e-9)
}

// TestRunEstimationValidation tests request validation
func TestRunEstimationValidation(t *testing.T) {
	m := NewManager(quantum.NewSimulatorBackend())

	tests := []struct {
		name string
		req  *models.EstimateRequest
	}{
		{"No tasks", &models.EstimateRequest{}},
		{"Bad operator", &models.EstimateRequest{Tasks: []models.TaskSpec{{Operator: "Q0", Circuit: bellSpec()}}}},
		{"Unknown gate", &models.EstimateRequest{Tasks: []models.TaskSpec{{
			Operator: "Z0",
			Circuit:  models.CircuitSpec{NumQubits: 1, Gates: []models.GateSpec{{Name: "foo", Qubits: []int{0}}}},
		}}}},
		{"Qubit out of range", &models.EstimateRequest{Tasks: []models.TaskSpec{{
			Operator: "Z0",
			Circuit:  models.CircuitSpec{NumQubits: 1, Gates: []models.GateSpec{{Name: "x", Qubits: []int{3}}}},
		}}}},
		{"Negative shots", &models.EstimateRequest{Tasks: []models.TaskSpec{{Operator: "Z0", Circuit: bellSpec(), Shots: intPtr(-1)}}}},
		{"Cvar without alpha", &models.EstimateRequest{Tasks: []models.TaskSpec{{Operator: "Z0", Circuit: bellSpec()}}, Method: models.MethodCvar}},
		{"Unknown method", &models.EstimateRequest{Tasks: []models.TaskSpec{{Operator: "Z0", Circuit: bellSpec()}}, Method: "magic"}},
		{"TTL too long", &models.EstimateRequest{Tasks: []models.TaskSpec{{Operator: "Z0", Circuit: bellSpec()}}, TTLMinutes: models.MaxTTLMinutes + 1}},
		{"Uniform without shots", &models.EstimateRequest{
			Tasks:         []models.TaskSpec{{Operator: "Z0", Circuit: bellSpec()}},
			Preprocessing: &models.PreprocessingSpec{ShotAllocation: preprocess.ShotsUniform},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := m.RunEstimation(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, job)
			assert.True(t, IsClientError(err), "expected a client error, got %v", err)
		})
	}

	assert.Empty(t, m.List())
}

// TestRunEstimationCapability tests that a sampling-only backend rejects exact tasks
func TestRunEstimationCapability(t *testing.T) {
	m := NewManager(failingRunner{err: errors.New("unused")})

	job, err := m.RunEstimation(context.Background(), &models.EstimateRequest{
		Tasks: []models.TaskSpec{{Operator: "Z0", Circuit: bellSpec()}},
	})
	require.ErrorIs(t, err, estimation.ErrCapabilityNotSupported)
	assert.True(t, IsClientError(err))
	require.NotNil(t, job)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Contains(t, job.Message, "capability not supported")
}

// TestRunEstimationBackendFailure tests that backend errors fail the job
func TestRunEstimationBackendFailure(t *testing.T) {
	errDevice := errors.New("device offline")
	recorder := &fakeRecorder{}
	m := NewManager(failingRunner{err: errDevice}, WithRecorder(recorder))

	job, err := m.RunEstimation(context.Background(), &models.EstimateRequest{
		Tasks: []models.TaskSpec{{Operator: "Z0", Circuit: bellSpec(), Shots: intPtr(10)}},
	})
	require.ErrorIs(t, err, errDevice)
	assert.False(t, IsClientError(err))
	require.NotNil(t, job)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, "device offline", job.Message)
	assert.Empty(t, job.Values)

	stored, err := m.Get(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, stored.Status)
	assert.Equal(t, []recordedJob{{models.KindEstimation, models.JobFailed}}, recorder.jobs)
}

// TestRunEnergy tests energy evaluation on the hardware-efficient ansatz
func TestRunEnergy(t *testing.T) {
	m := NewManager(quantum.NewSimulatorBackend())

	// One layer on one qubit: RY(θ) then RZ(φ), so <Z> = cos θ
	theta := 0.7
	job, err := m.RunEnergy(context.Background(), &models.EnergyRequest{
		Hamiltonian: "Z0 + 0.5",
		Ansatz:      models.AnsatzSpec{Layers: 1, Qubits: 1},
		Params:      []float64{theta, 0.2},
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindEnergy, job.Kind)
	assert.Equal(t, models.JobCompleted, job.Status)
	require.NotNil(t, job.Energy)
	assert.InDelta(t, math.Cos(theta)+0.5, *job.Energy, 1e-12)

	_, err = m.RunEnergy(context.Background(), &models.EnergyRequest{
		Hamiltonian: "Z0",
		Ansatz:      models.AnsatzSpec{Layers: 1, Qubits: 1},
		Params:      []float64{0},
	})
	assert.True(t, IsClientError(err))

	_, err = m.RunEnergy(context.Background(), &models.EnergyRequest{
		Hamiltonian: "Z0 +",
		Ansatz:      models.AnsatzSpec{Layers: 1, Qubits: 1},
		Params:      []float64{0, 0},
	})
	assert.True(t, IsClientError(err))
}

// TestJobNotFound tests lookups of unknown jobs
func TestJobNotFound(t *testing.T) {
	m := NewManager(quantum.NewSimulatorBackend())

	_, err := m.Get(uuid.New())
	assert.ErrorIs(t, err, models.ErrJobNotFound)
	assert.ErrorIs(t, m.Delete(uuid.New()), models.ErrJobNotFound)
}

// TestListAndDelete tests listing order and deletion
func TestListAndDelete(t *testing.T) {
	m := NewManager(quantum.NewSimulatorBackend())
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	req := func() *models.EstimateRequest {
		return &models.EstimateRequest{Tasks: []models.TaskSpec{{Operator: "Z0", Circuit: bellSpec()}}}
	}
	first, err := m.RunEstimation(context.Background(), req())
	require.NoError(t, err)
	clock = clock.Add(time.Second)
	second, err := m.RunEstimation(context.Background(), req())
	require.NoError(t, err)

	jobs := m.List()
	require.Len(t, jobs, 2)
	assert.Equal(t, second.JobID, jobs[0].JobID)
	assert.Equal(t, first.JobID, jobs[1].JobID)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)

	// Returned jobs are copies
	jobs[0].Values[0][0] = 42
	stored, err := m.Get(second.JobID)
	require.NoError(t, err)
	assert.NotEqual(t, 42.0, stored.Values[0][0])

	require.NoError(t, m.Delete(first.JobID))
	_, err = m.Get(first.JobID)
	assert.ErrorIs(t, err, models.ErrJobNotFound)
	assert.Len(t, m.List(), 1)
}

// TestCleanupExpired tests job expiration
func TestCleanupExpired(t *testing.T) {
	m := NewManager(quantum.NewSimulatorBackend())
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	short, err := m.RunEstimation(context.Background(), &models.EstimateRequest{
		Tasks:      []models.TaskSpec{{Operator: "Z0", Circuit: bellSpec()}},
		TTLMinutes: 1,
	})
	require.NoError(t, err)
	long, err := m.RunEstimation(context.Background(), &models.EstimateRequest{
		Tasks:      []models.TaskSpec{{Operator: "Z0", Circuit: bellSpec()}},
		TTLMinutes: 10,
	})
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)

	// Expired jobs are hidden before the janitor removes them
	_, err = m.Get(short.JobID)
	assert.ErrorIs(t, err, models.ErrJobNotFound)
	assert.Len(t, m.List(), 1)

	assert.Equal(t, 1, m.CleanupExpired())
	assert.Equal(t, 0, m.CleanupExpired())

	_, err = m.Get(long.JobID)
	assert.NoError(t, err)
}

// TestStartJanitor tests the background cleanup loop
func TestStartJanitor(t *testing.T) {
	m := NewManager(quantum.NewSimulatorBackend())
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	m.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}

	_, err := m.RunEstimation(context.Background(), &models.EstimateRequest{
		Tasks:      []models.TaskSpec{{Operator: "Z0", Circuit: bellSpec()}},
		TTLMinutes: 1,
	})
	require.NoError(t, err)

	mu.Lock()
	clock = clock.Add(time.Hour)
	mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		m.mutex.RLock()
		defer m.mutex.RUnlock()
		return len(m.jobs) == 0
	}, time.Second, 5*time.Millisecond)
}

// TestFingerprint tests request fingerprints
func TestFingerprint(t *testing.T) {
	req := &models.EstimateRequest{Tasks: []models.TaskSpec{{Operator: "Z0", Circuit: bellSpec()}}}

	a, err := Fingerprint("StateVectorSimulator", req)
	require.NoError(t, err)
	b, err := Fingerprint("StateVectorSimulator", req)
	require.NoError(t, err)
	c, err := Fingerprint("qiskit", req)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)

	_, err = Fingerprint("StateVectorSimulator", math.NaN())
	assert.Error(t, err)
}

// TestConcurrentJobs tests that the manager is safe for concurrent use
func TestConcurrentJobs(t *testing.T) {
	m := NewManager(quantum.NewSimulatorBackend())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.RunEstimation(context.Background(), &models.EstimateRequest{
				Tasks: []models.TaskSpec{{Operator: "Z0*Z1", Circuit: bellSpec(), Shots: intPtr(50)}},
			})
			assert.NoError(t, err)
			m.List()
		}()
	}
	wg.Wait()

	assert.Len(t, m.List(), 8)
}
