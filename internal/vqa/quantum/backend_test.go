package quantum

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSimulatorCapabilities tests that the simulator advertises every capability
func TestSimulatorCapabilities(t *testing.T) {
	var backend Backend = NewSimulatorBackend()

	_, exact := backend.(ExactEvaluable)
	_, sampler := backend.(BatchSampleable)
	_, dist := backend.(DistributionEvaluable)

	assert.True(t, exact)
	assert.True(t, sampler)
	assert.True(t, dist)
	assert.Equal(t, "StateVectorSimulator", backend.Name())
	assert.Equal(t, "custom", NewSimulatorBackend(WithName("custom")).Name())
}

// TestSimulatorExactBellState tests exact correlations of |Φ+⟩
func TestSimulatorExactBellState(t *testing.T) {
	sim := NewSimulatorBackend()
	op := MustParsePauliSum("Z0*Z1 + X0*X1 + Y0*Y1 + 0.5*Z0 + 2")

	values, err := sim.ExactExpectationValues(context.Background(), BellPairCircuit(), op)
	require.NoError(t, err)
	require.Len(t, values.Values, 5)

	assert.InDelta(t, 1.0, values.Values[0], 1e-12)
	assert.InDelta(t, 1.0, values.Values[1], 1e-12)
	assert.InDelta(t, -1.0, values.Values[2], 1e-12)
	assert.InDelta(t, 0.0, values.Values[3], 1e-12)
	assert.InDelta(t, 2.0, values.Values[4], 1e-12)
}

// TestSimulatorExactRotation tests ⟨Z⟩ = cos θ after RY(θ)
func TestSimulatorExactRotation(t *testing.T) {
	sim := NewSimulatorBackend()

	for _, theta := range []float64{0, 0.3, math.Pi / 2, 2.1, math.Pi} {
		circuit := NewCircuit(1, NewGate(GateRY, []int{0}, theta))

		values, err := sim.ExactExpectationValues(context.Background(), circuit, MustParsePauliSum("Z0 + X0"))
		require.NoError(t, err)

		assert.InDelta(t, math.Cos(theta), values.Values[0], 1e-12)
		assert.InDelta(t, math.Sin(theta), values.Values[1], 1e-12)
	}
}

// TestSimulatorExactWidensRegister tests operators acting beyond the circuit register
func TestSimulatorExactWidensRegister(t *testing.T) {
	sim := NewSimulatorBackend()
	circuit := NewCircuit(1, NewGate(GateX, []int{0}))

	values, err := sim.ExactExpectationValues(context.Background(), circuit, MustParsePauliSum("Z0 + Z2"))
	require.NoError(t, err)
	assert.InDelta(t, -1.0, values.Values[0], 1e-12)
	assert.InDelta(t, 1.0, values.Values[1], 1e-12)
}

// TestSimulatorExactHonorsContext tests cancellation before evaluation
func TestSimulatorExactHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSimulatorBackend().ExactExpectationValues(ctx, BellPairCircuit(), MustParsePauliSum("Z0"))
	assert.ErrorIs(t, err, context.Canceled)
}

// TestSimulatorBitstringDistribution tests exact outcome probabilities
func TestSimulatorBitstringDistribution(t *testing.T) {
	dist, err := NewSimulatorBackend().BitstringDistribution(context.Background(), BellPairCircuit())
	require.NoError(t, err)

	require.Len(t, dist, 2)
	assert.InDelta(t, 0.5, dist["00"], 1e-12)
	assert.InDelta(t, 0.5, dist["11"], 1e-12)
}

// TestSimulatorRunBatchAndMeasure tests sampling a batch of circuits
func TestSimulatorRunBatchAndMeasure(t *testing.T) {
	sim := NewSimulatorBackend(WithSeed(42))
	circuits := []*Circuit{
		NewCircuit(2, NewGate(GateX, []int{0})),
		BellPairCircuit(),
	}

	results, err := sim.RunBatchAndMeasure(context.Background(), circuits, []int{100, 1000})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, map[string]int{"10": 100}, results[0].Counts, "qubit 0 is the first character")

	assert.Equal(t, 1000, results[1].Shots())
	for _, b := range results[1].Bitstrings() {
		assert.Contains(t, []string{"00", "11"}, b)
	}
	assert.InDelta(t, 500, results[1].Counts["00"], 100)
}

// TestSimulatorSeededSamplingIsReproducible tests that seeds fix the outcomes
func TestSimulatorSeededSamplingIsReproducible(t *testing.T) {
	circuits := []*Circuit{NewCircuit(1, NewGate(GateH, []int{0}))}

	a, err := NewSimulatorBackend(WithSeed(7)).RunBatchAndMeasure(context.Background(), circuits, []int{500})
	require.NoError(t, err)
	b, err := NewSimulatorBackend(WithSeed(7)).RunBatchAndMeasure(context.Background(), circuits, []int{500})
	require.NoError(t, err)

	assert.Equal(t, a[0].Counts, b[0].Counts)
}

// TestSimulatorReadoutError tests bit flips on measurement
func TestSimulatorReadoutError(t *testing.T) {
	sim := NewSimulatorBackend(WithSeed(3), WithReadoutError(1.0))
	assert.Equal(t, 1.0, sim.GetNoiseLevel())

	results, err := sim.RunBatchAndMeasure(context.Background(), []*Circuit{NewCircuit(2)}, []int{10})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"11": 10}, results[0].Counts)

	assert.Equal(t, 0.0, NewSimulatorBackend(WithReadoutError(1.5)).GetNoiseLevel(), "out of range values are ignored")
}

// TestValidateBatch tests runner-boundary preconditions
func TestValidateBatch(t *testing.T) {
	circuits := []*Circuit{BellPairCircuit(), BellPairCircuit()}

	assert.NoError(t, ValidateBatch(circuits, []int{1, 2}))
	assert.ErrorIs(t, ValidateBatch(circuits, []int{1}), ErrMismatchedBatch)
	assert.Error(t, ValidateBatch(circuits, []int{1, 0}))
	assert.Error(t, ValidateBatch([]*Circuit{nil}, []int{1}))

	_, err := NewSimulatorBackend().RunBatchAndMeasure(context.Background(), circuits, []int{10})
	assert.ErrorIs(t, err, ErrMismatchedBatch)
}
