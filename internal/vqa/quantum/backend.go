package quantum

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Backend is anything that can run circuits. What it can compute is expressed
// through the capability interfaces below; a backend implements one or more of them.
type Backend interface {
	// Name returns the name of the quantum backend
	Name() string
}

// ExactEvaluable is a backend that computes expectation values analytically
type ExactEvaluable interface {
	Backend

	// ExactExpectationValues returns one value per term of op for the state prepared by circuit
	ExactExpectationValues(ctx context.Context, circuit *Circuit, op PauliSum) (ExpectationValues, error)
}

// BatchSampleable is a backend that executes a batch of circuits in a single call.
// circuits and shots are parallel; the result is aligned with circuits.
type BatchSampleable interface {
	Backend

	// RunBatchAndMeasure samples each circuit shots[i] times in the computational basis
	RunBatchAndMeasure(ctx context.Context, circuits []*Circuit, shots []int) ([]*Measurements, error)
}

// DistributionEvaluable is a backend that returns the exact bitstring distribution of a circuit
type DistributionEvaluable interface {
	Backend

	// BitstringDistribution returns the probability of every basis state with non-zero weight
	BitstringDistribution(ctx context.Context, circuit *Circuit) (map[string]float64, error)
}

// ErrMismatchedBatch is returned when circuits and shots of a batch differ in length
var ErrMismatchedBatch = errors.New("circuits and shots must have the same length")

// ValidateBatch checks the runner-boundary preconditions of a batch
func ValidateBatch(circuits []*Circuit, shots []int) error {
	if len(circuits) != len(shots) {
		return fmt.Errorf("%w: %d circuits, %d shot counts", ErrMismatchedBatch, len(circuits), len(shots))
	}
	for i, n := range shots {
		if n < 1 {
			return fmt.Errorf("circuit %d: number of shots must be positive, got %d", i, n)
		}
		if circuits[i] == nil {
			return fmt.Errorf("circuit %d is nil", i)
		}
	}
	return nil
}

// SimulatorBackend implements a state-vector simulator for development and testing.
// It supports exact evaluation, exact distributions and batched sampling.
type SimulatorBackend struct {
	name         string
	readoutError float64

	mu  sync.Mutex
	rng *rand.Rand
}

// SimulatorOption configures a SimulatorBackend
type SimulatorOption func(*SimulatorBackend)

// WithSeed makes sampling reproducible
func WithSeed(seed int64) SimulatorOption {
	return func(s *SimulatorBackend) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithReadoutError flips every sampled bit with the given probability (0.0 to 1.0)
func WithReadoutError(p float64) SimulatorOption {
	return func(s *SimulatorBackend) {
		if p >= 0 && p <= 1 {
			s.readoutError = p
		}
	}
}

// WithName overrides the backend name
func WithName(name string) SimulatorOption {
	return func(s *SimulatorBackend) {
		s.name = name
	}
}

// NewSimulatorBackend creates a new state-vector simulator backend
func NewSimulatorBackend(opts ...SimulatorOption) *SimulatorBackend {
	s := &SimulatorBackend{
		name: "StateVectorSimulator",
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the name of the simulator backend
func (s *SimulatorBackend) Name() string {
	return s.name
}

// GetNoiseLevel returns the readout error of the simulator
func (s *SimulatorBackend) GetNoiseLevel() float64 {
	return s.readoutError
}

// IsSimulator returns true since this is a simulator
func (s *SimulatorBackend) IsSimulator() bool {
	return true
}

// ExactExpectationValues computes ⟨ψ|c·P|ψ⟩ for every term of op
func (s *SimulatorBackend) ExactExpectationValues(ctx context.Context, circuit *Circuit, op PauliSum) (ExpectationValues, error) {
	if err := ctx.Err(); err != nil {
		return ExpectationValues{}, err
	}
	state, err := Simulate(circuit, op.NumQubits())
	if err != nil {
		return ExpectationValues{}, err
	}

	values := make([]complex128, len(op))
	for i, term := range op {
		expectation, err := state.TermExpectation(term)
		if err != nil {
			return ExpectationValues{}, err
		}
		values[i] = term.Coefficient * expectation
	}
	return ToReal(values), nil
}

// BitstringDistribution returns the exact outcome probabilities of circuit
func (s *SimulatorBackend) BitstringDistribution(ctx context.Context, circuit *Circuit) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state, err := Simulate(circuit, circuit.NumQubits)
	if err != nil {
		return nil, err
	}
	return state.Probabilities(), nil
}

// RunBatchAndMeasure simulates each circuit and samples it the requested number of times
func (s *SimulatorBackend) RunBatchAndMeasure(ctx context.Context, circuits []*Circuit, shots []int) ([]*Measurements, error) {
	if err := ValidateBatch(circuits, shots); err != nil {
		return nil, err
	}

	results := make([]*Measurements, len(circuits))
	for i, circuit := range circuits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state, err := Simulate(circuit, circuit.NumQubits)
		if err != nil {
			return nil, fmt.Errorf("circuit %d: %w", i, err)
		}

		s.mu.Lock()
		counts := state.Sample(s.rng, shots[i], s.readoutError)
		s.mu.Unlock()

		results[i] = &Measurements{NumQubits: state.NumQubits, Counts: counts}
	}
	return results, nil
}
