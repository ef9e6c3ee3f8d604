package preprocess

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/jaskrrish/Go-VQA/internal/vqa/estimation"
)

// ErrInvalidShotBudget is returned for non-positive shot counts or malformed priors
var ErrInvalidShotBudget = errors.New("invalid shot budget")

// AllocateShotsUniformly returns a stage that gives every task n shots
func AllocateShotsUniformly(n int) estimation.Preprocessor {
	return func(tasks []estimation.Task) ([]estimation.Task, error) {
		if n <= 0 {
			return nil, fmt.Errorf("%w: number of shots must be positive, got %d", ErrInvalidShotBudget, n)
		}
		out := make([]estimation.Task, len(tasks))
		for i, task := range tasks {
			out[i] = task.WithShots(n)
		}
		return out, nil
	}
}

// AllocateShotsProportionally returns a stage that splits total shots between tasks
// in proportion to the standard deviation of their estimators,
// σ = sqrt(Σ c²(1 - ⟨P⟩²)) over the non-constant terms of each task.
//
// priors, when given, holds one prior expectation value ⟨P⟩ per operator term of all
// tasks in order, constant terms included. Without priors every ⟨P⟩ is taken as 0.
// Tasks with σ = 0 get no shots and are evaluated exactly; every other task gets at
// least one shot.
func AllocateShotsProportionally(total int, priors []float64) estimation.Preprocessor {
	return func(tasks []estimation.Task) ([]estimation.Task, error) {
		if total <= 0 {
			return nil, fmt.Errorf("%w: total number of shots must be positive, got %d", ErrInvalidShotBudget, total)
		}

		sigmas, err := estimatorDeviations(tasks, priors)
		if err != nil {
			return nil, err
		}

		var sum float64
		for _, s := range sigmas {
			sum += s
		}

		out := make([]estimation.Task, len(tasks))
		for i, task := range tasks {
			if sigmas[i] == 0 {
				out[i] = task.WithShots(0)
				continue
			}
			shots := int(math.Floor(float64(total) * sigmas[i] / sum))
			out[i] = task.WithShots(max(shots, 1))
		}
		return out, nil
	}
}

func estimatorDeviations(tasks []estimation.Task, priors []float64) ([]float64, error) {
	numTerms := 0
	for _, task := range tasks {
		numTerms += len(task.Operator())
	}
	if priors != nil && len(priors) != numTerms {
		return nil, fmt.Errorf("%w: %d prior expectation values for %d terms", ErrInvalidShotBudget, len(priors), numTerms)
	}

	sigmas := make([]float64, len(tasks))
	k := 0
	for i, task := range tasks {
		var variance float64
		for _, term := range task.Operator() {
			prior := 0.0
			if priors != nil {
				prior = priors[k]
			}
			k++
			if term.IsConstant() {
				continue
			}
			if prior < -1 || prior > 1 {
				return nil, fmt.Errorf("%w: prior expectation value %g outside [-1, 1]", ErrInvalidShotBudget, prior)
			}
			c := cmplx.Abs(term.Coefficient)
			variance += c * c * (1 - prior*prior)
		}
		sigmas[i] = math.Sqrt(variance)
	}
	return sigmas, nil
}
