package preprocess

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaskrrish/Go-VQA/internal/vqa/estimation"
	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

func operators(tasks []estimation.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Operator().String()
	}
	return out
}

// TestGroupIndividually tests one task per term
func TestGroupIndividually(t *testing.T) {
	task := estimation.NewSampledTask(quantum.MustParsePauliSum("Z0 + 2*X1 + 0.5"), quantum.NewCircuit(2), 30)

	tasks, err := GroupIndividually([]estimation.Task{task})
	require.NoError(t, err)

	assert.Equal(t, []string{"1*Z0", "2*X1", "0.5"}, operators(tasks))
	for _, g := range tasks {
		shots, ok := g.NumberOfShots()
		assert.True(t, ok)
		assert.Equal(t, 30, shots)
	}
}

// TestGroupGreedily tests first-fit grouping of qubit-wise commuting terms
func TestGroupGreedily(t *testing.T) {
	t.Run("Commuting groups", func(t *testing.T) {
		task := estimation.NewTask(quantum.MustParsePauliSum("Z0 + Z1 + X0 + Z0*Z1 + X1 + 0.25"), quantum.NewCircuit(2))

		tasks, err := GroupGreedily(false)([]estimation.Task{task})
		require.NoError(t, err)

		assert.Equal(t, []string{"1*Z0 + 1*Z1 + 1*Z0*Z1", "1*X0 + 1*X1", "0.25"}, operators(tasks))
		for _, g := range tasks {
			assert.True(t, g.Operator().QubitWiseCommuting())
		}
	})

	t.Run("Sorted by coefficient magnitude", func(t *testing.T) {
		task := estimation.NewTask(quantum.MustParsePauliSum("0.1*Z0 + 2*X0 + 0.5*Z1"), quantum.NewCircuit(2))

		unsorted, err := GroupGreedily(false)([]estimation.Task{task})
		require.NoError(t, err)
		assert.Equal(t, []string{"0.1*Z0 + 0.5*Z1", "2*X0"}, operators(unsorted))

		sorted, err := GroupGreedily(true)([]estimation.Task{task})
		require.NoError(t, err)
		assert.Equal(t, []string{"2*X0 + 0.5*Z1", "0.1*Z0"}, operators(sorted))
	})

	t.Run("Input is not modified", func(t *testing.T) {
		input := []estimation.Task{estimation.NewTask(quantum.MustParsePauliSum("Z0 + X0"), quantum.NewCircuit(1))}

		_, err := GroupGreedily(true)(input)
		require.NoError(t, err)
		assert.Equal(t, "1*Z0 + 1*X0", input[0].Operator().String())
	})
}

// TestPerformContextSelection tests basis rotations
func TestPerformContextSelection(t *testing.T) {
	task := estimation.NewTask(quantum.MustParsePauliSum("X0*Y2 + X0 + Z1 + 0.5"), quantum.NewCircuit(3, quantum.NewGate(quantum.GateH, []int{1})))

	tasks, err := PerformContextSelection([]estimation.Task{task})
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	assert.Equal(t, "1*Z0*Z2 + 1*Z0 + 1*Z1 + 0.5", tasks[0].Operator().String())
	assert.True(t, tasks[0].Operator().IsDiagonal())

	ops := tasks[0].Circuit().Operations
	require.Len(t, ops, 3)
	assert.Equal(t, quantum.GateH, ops[0].Name)
	assert.Equal(t, quantum.NewGate(quantum.GateRY, []int{0}, -math.Pi/2), ops[1])
	assert.Equal(t, quantum.NewGate(quantum.GateRX, []int{2}, math.Pi/2), ops[2])

	assert.Len(t, task.Circuit().Operations, 1, "original task is untouched")

	_, err = PerformContextSelection([]estimation.Task{
		estimation.NewTask(quantum.MustParsePauliSum("X0 + Z0"), quantum.NewCircuit(1)),
	})
	assert.ErrorIs(t, err, ErrNotQubitWiseCommuting)
}

// TestContextSelectionPreservesExpectationValues tests that rotated tasks measure the same observable
func TestContextSelectionPreservesExpectationValues(t *testing.T) {
	sim := quantum.NewSimulatorBackend()
	circuit := quantum.NewCircuit(2,
		quantum.NewGate(quantum.GateRY, []int{0}, 0.7),
		quantum.NewGate(quantum.GateRX, []int{1}, -1.3),
		quantum.NewGate(quantum.GateCX, []int{0, 1}),
	)

	for _, expr := range []string{"X0", "Y1", "X0*Y1", "Y0*X1 + Y0"} {
		task := estimation.NewTask(quantum.MustParsePauliSum(expr), circuit)
		rotated, err := PerformContextSelection([]estimation.Task{task})
		require.NoError(t, err)

		want, err := estimation.Estimate(context.Background(), sim, []estimation.Task{task})
		require.NoError(t, err)
		got, err := estimation.Estimate(context.Background(), sim, rotated)
		require.NoError(t, err)

		assert.InDeltaSlice(t, want[0].Values, got[0].Values, 1e-12, expr)
	}
}

// TestAllocateShotsUniformly tests uniform shot allocation
func TestAllocateShotsUniformly(t *testing.T) {
	tasks := []estimation.Task{
		estimation.NewTask(quantum.MustParsePauliSum("Z0"), quantum.NewCircuit(1)),
		estimation.NewSampledTask(quantum.MustParsePauliSum("Z1"), quantum.NewCircuit(2), 5),
	}

	out, err := AllocateShotsUniformly(64)(tasks)
	require.NoError(t, err)
	for _, task := range out {
		shots, ok := task.NumberOfShots()
		assert.True(t, ok)
		assert.Equal(t, 64, shots)
	}

	_, err = AllocateShotsUniformly(0)(tasks)
	assert.ErrorIs(t, err, ErrInvalidShotBudget)
}

// TestAllocateShotsProportionally tests shots proportional to estimator deviation
func TestAllocateShotsProportionally(t *testing.T) {
	tasks := []estimation.Task{
		estimation.NewTask(quantum.MustParsePauliSum("Z0 + 3*Z1"), quantum.NewCircuit(2)),
		estimation.NewTask(quantum.MustParsePauliSum("Z0"), quantum.NewCircuit(1)),
		estimation.NewTask(quantum.MustParsePauliSum("2"), quantum.NewCircuit(1)),
	}
	shotsOf := func(tasks []estimation.Task) []int {
		out := make([]int, len(tasks))
		for i, task := range tasks {
			out[i], _ = task.NumberOfShots()
		}
		return out
	}

	t.Run("Without priors", func(t *testing.T) {
		out, err := AllocateShotsProportionally(1000, nil)(tasks)
		require.NoError(t, err)
		assert.Equal(t, []int{759, 240, 0}, shotsOf(out))
		assert.Equal(t, 1, len(estimation.Split(out).NotToMeasure), "constant task is evaluated exactly")
	})

	t.Run("With priors", func(t *testing.T) {
		out, err := AllocateShotsProportionally(1000, []float64{0, 1, 0.5, 0})(tasks)
		require.NoError(t, err)
		assert.Equal(t, []int{535, 464, 0}, shotsOf(out))
	})

	t.Run("Tiny budgets still sample every task", func(t *testing.T) {
		out, err := AllocateShotsProportionally(1, nil)(tasks)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 1, 0}, shotsOf(out))
	})

	t.Run("Invalid input", func(t *testing.T) {
		_, err := AllocateShotsProportionally(0, nil)(tasks)
		assert.ErrorIs(t, err, ErrInvalidShotBudget)

		_, err = AllocateShotsProportionally(100, []float64{0, 0})(tasks)
		assert.ErrorIs(t, err, ErrInvalidShotBudget)

		_, err = AllocateShotsProportionally(100, []float64{0, 2, 0, 0})(tasks)
		assert.ErrorIs(t, err, ErrInvalidShotBudget)
	})
}

// TestPipeline tests stage selection from options
func TestPipeline(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		stages  int
		wantErr error
	}{
		{"Nothing", Options{}, 0, nil},
		{"Full", Options{Grouping: GroupingGreedy, ContextSelection: true, ShotAllocation: ShotsProportional, Shots: 100}, 3, nil},
		{"Individual uniform", Options{Grouping: GroupingIndividual, ShotAllocation: ShotsUniform, Shots: 10}, 2, nil},
		{"Unknown grouping", Options{Grouping: "clique"}, 0, ErrUnknownStrategy},
		{"Unknown allocation", Options{ShotAllocation: "random"}, 0, ErrUnknownStrategy},
		{"Missing shots", Options{ShotAllocation: ShotsUniform}, 0, ErrInvalidShotBudget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages, err := Pipeline(tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, stages, tt.stages)
		})
	}
}

// TestPipelineEndToEnd tests grouping, context selection and sampling on a Bell pair
func TestPipelineEndToEnd(t *testing.T) {
	hamiltonian := quantum.MustParsePauliSum("Z0*Z1 + X0*X1 + Y0*Y1 + 0.5")
	task := estimation.NewTask(hamiltonian, quantum.BellPairCircuit())

	for _, allocation := range []string{ShotsNone, ShotsUniform, ShotsProportional} {
		stages, err := Pipeline(Options{
			Grouping:         GroupingGreedy,
			ContextSelection: true,
			ShotAllocation:   allocation,
			Shots:            3000,
		})
		require.NoError(t, err)

		estimator := estimation.NewEstimator(estimation.WithPreprocessors(stages...))
		results, err := estimator.Estimate(context.Background(), quantum.NewSimulatorBackend(quantum.WithSeed(1)), []estimation.Task{task})
		require.NoError(t, err)
		require.Len(t, results, 4, "three measured groups and the constant")

		var energy float64
		for _, r := range results {
			energy += r.Sum()
		}
		assert.InDelta(t, 1.5, energy, 1e-9, allocation)
	}
}
