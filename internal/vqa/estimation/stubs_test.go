package estimation_test

import (
	"context"
	"strings"
	"sync"

	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// stubSimulator only evaluates exactly. Every term is reported with ⟨P⟩ = 1,
// so each value equals its coefficient, unless values overrides the answer.
type stubSimulator struct {
	mu     sync.Mutex
	calls  int
	values map[string][]float64
	err    error
}

func (s *stubSimulator) Name() string { return "stub-simulator" }

func (s *stubSimulator) ExactExpectationValues(_ context.Context, _ *quantum.Circuit, op quantum.PauliSum) (quantum.ExpectationValues, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return quantum.ExpectationValues{}, s.err
	}
	if v, ok := s.values[op.String()]; ok {
		return quantum.ExpectationValues{Values: v}, nil
	}
	return quantum.ConstantExpectationValues(op), nil
}

func (s *stubSimulator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubRunner only samples. By default every shot measures all zeros,
// so each Z-only term is reported as its coefficient.
type stubRunner struct {
	mu      sync.Mutex
	batches [][]int
	counts  map[int]map[string]int
	err     error
	short   bool
}

func (r *stubRunner) Name() string { return "stub-runner" }

func (r *stubRunner) RunBatchAndMeasure(_ context.Context, circuits []*quantum.Circuit, shots []int) ([]*quantum.Measurements, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]int(nil), shots...))
	if r.err != nil {
		return nil, r.err
	}
	if err := quantum.ValidateBatch(circuits, shots); err != nil {
		return nil, err
	}

	out := make([]*quantum.Measurements, len(circuits))
	for i, c := range circuits {
		counts, ok := r.counts[i]
		if !ok {
			counts = map[string]int{strings.Repeat("0", c.NumQubits): shots[i]}
		}
		out[i] = &quantum.Measurements{NumQubits: c.NumQubits, Counts: counts}
	}
	if r.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (r *stubRunner) batchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

// stubBackend has both capabilities
type stubBackend struct {
	*stubSimulator
	*stubRunner
}

func newStubBackend() *stubBackend {
	return &stubBackend{stubSimulator: &stubSimulator{}, stubRunner: &stubRunner{}}
}

func (b *stubBackend) Name() string { return "stub-backend" }

// nameOnlyBackend has no capabilities at all
type nameOnlyBackend struct{}

func (nameOnlyBackend) Name() string { return "bare" }
