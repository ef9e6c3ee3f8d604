package estimation

import (
	"fmt"

	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// Task asks for the expectation value of an operator on the state a circuit prepares.
// Tasks are immutable; the With* methods return modified copies.
type Task struct {
	operator quantum.PauliSum
	circuit  *quantum.Circuit
	shots    int
	sampled  bool
}

// NewTask creates a task that is evaluated exactly
func NewTask(op quantum.PauliSum, circuit *quantum.Circuit) Task {
	return Task{operator: cloneOperator(op), circuit: circuit.Clone()}
}

// NewSampledTask creates a task estimated from the given number of shots
func NewSampledTask(op quantum.PauliSum, circuit *quantum.Circuit, shots int) Task {
	return NewTask(op, circuit).WithShots(shots)
}

// Operator returns a copy of the task's operator
func (t Task) Operator() quantum.PauliSum {
	return cloneOperator(t.operator)
}

// Circuit returns a copy of the task's state-preparation circuit
func (t Task) Circuit() *quantum.Circuit {
	return t.circuit.Clone()
}

// NumberOfShots returns the shot budget; ok is false when the task has none
func (t Task) NumberOfShots() (shots int, ok bool) {
	return t.shots, t.sampled
}

// WithShots returns a copy of the task with a shot budget
func (t Task) WithShots(shots int) Task {
	t.shots = shots
	t.sampled = true
	return t
}

// WithoutShots returns a copy of the task that is evaluated exactly
func (t Task) WithoutShots() Task {
	t.shots = 0
	t.sampled = false
	return t
}

// WithOperator returns a copy of the task with a different operator
func (t Task) WithOperator(op quantum.PauliSum) Task {
	t.operator = cloneOperator(op)
	return t
}

// WithCircuit returns a copy of the task with a different circuit
func (t Task) WithCircuit(circuit *quantum.Circuit) Task {
	t.circuit = circuit.Clone()
	return t
}

// Validate reports malformed tasks before they reach a backend
func (t Task) Validate() error {
	if t.circuit == nil {
		return fmt.Errorf("%w: task has no circuit", ErrInvalidTask)
	}
	if t.sampled && t.shots < 0 {
		return fmt.Errorf("%w: negative number of shots %d", ErrInvalidTask, t.shots)
	}
	if n := t.operator.NumQubits(); n > t.circuit.NumQubits {
		return fmt.Errorf("%w: operator acts on %d qubits but the circuit has %d", ErrInvalidTask, n, t.circuit.NumQubits)
	}
	return nil
}

func (t Task) String() string {
	if t.sampled {
		return fmt.Sprintf("Task(%s, %d shots)", t.operator, t.shots)
	}
	return fmt.Sprintf("Task(%s, exact)", t.operator)
}

// requiresSampling reports whether the task goes to the sampling evaluator
func (t Task) requiresSampling() bool {
	return t.sampled && t.shots > 0 && !t.operator.IsConstant()
}

func cloneOperator(op quantum.PauliSum) quantum.PauliSum {
	if op == nil {
		return nil
	}
	out := make(quantum.PauliSum, len(op))
	for i, term := range op {
		out[i] = term.WithCoefficient(term.Coefficient)
	}
	return out
}
