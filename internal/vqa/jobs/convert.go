package jobs

import (
	"fmt"

	models "github.com/jaskrrish/Go-VQA/internal/models/estimation"
	"github.com/jaskrrish/Go-VQA/internal/vqa/estimation"
	"github.com/jaskrrish/Go-VQA/internal/vqa/preprocess"
	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// buildCircuit turns a request circuit into a validated circuit
func buildCircuit(spec models.CircuitSpec) (*quantum.Circuit, error) {
	ops := make([]quantum.Gate, len(spec.Gates))
	for i, g := range spec.Gates {
		ops[i] = quantum.NewGate(g.Name, g.Qubits, g.Params...)
	}
	circuit := quantum.NewCircuit(spec.NumQubits, ops...)
	if err := circuit.Validate(); err != nil {
		return nil, err
	}
	return circuit, nil
}

// buildTasks converts request tasks; any parse failure is a client error
func buildTasks(specs []models.TaskSpec) ([]estimation.Task, error) {
	tasks := make([]estimation.Task, len(specs))
	for i, spec := range specs {
		op, err := quantum.ParsePauliSum(spec.Operator)
		if err != nil {
			return nil, &models.RequestError{Message: fmt.Sprintf("task %d: %v", i, err)}
		}
		circuit, err := buildCircuit(spec.Circuit)
		if err != nil {
			return nil, &models.RequestError{Message: fmt.Sprintf("task %d: %v", i, err)}
		}

		task := estimation.NewTask(op, circuit)
		if spec.Shots != nil {
			task = task.WithShots(*spec.Shots)
		}
		tasks[i] = task
	}
	return tasks, nil
}

// preprocessors builds the stages for a request, falling back to the manager defaults
func (m *Manager) preprocessors(spec *models.PreprocessingSpec) ([]estimation.Preprocessor, error) {
	opts := m.defaults
	if spec != nil {
		opts = preprocess.Options{
			Grouping:         spec.Grouping,
			SortTerms:        spec.SortTerms,
			ContextSelection: spec.ContextSelection,
			ShotAllocation:   spec.ShotAllocation,
			Shots:            spec.Shots,
			Priors:           spec.Priors,
		}
	}
	stages, err := preprocess.Pipeline(opts)
	if err != nil {
		return nil, &models.RequestError{Message: err.Error()}
	}
	return stages, nil
}

// method picks the estimation method named in a request
func (m *Manager) method(name string, alpha float64) estimation.Method {
	if name == models.MethodCvar {
		return estimation.CvarEstimator{Alpha: alpha}
	}
	return m.estimator
}

func toValues(results []quantum.ExpectationValues) [][]float64 {
	out := make([][]float64, len(results))
	for i, r := range results {
		out[i] = append([]float64(nil), r.Values...)
	}
	return out
}
