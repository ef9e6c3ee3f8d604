package preprocess

import (
	"errors"
	"fmt"
	"math"

	"github.com/jaskrrish/Go-VQA/internal/vqa/estimation"
	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// ErrNotQubitWiseCommuting is returned when a task's terms cannot share one measurement context
var ErrNotQubitWiseCommuting = errors.New("operator terms do not commute qubit-wise")

// PerformContextSelection rotates every X and Y measured by a task into the Z basis.
// Basis-change gates are appended to the circuit and the operator is rewritten to
// contain only Z, so the task can be estimated from computational-basis samples.
// Every task must already be qubit-wise commuting, e.g. after grouping.
func PerformContextSelection(tasks []estimation.Task) ([]estimation.Task, error) {
	out := make([]estimation.Task, len(tasks))
	for i, task := range tasks {
		op := task.Operator()
		if !op.QubitWiseCommuting() {
			return nil, fmt.Errorf("task %d: %w: %s", i, ErrNotQubitWiseCommuting, op)
		}

		bases := make(map[int]quantum.Pauli)
		for _, term := range op {
			for q, p := range term.Ops {
				bases[q] = p
			}
		}

		circuit := task.Circuit()
		if circuit != nil {
			circuit = circuit.Append(basisChange(bases)...)
		}

		out[i] = task.WithOperator(toZBasis(op)).WithCircuit(circuit)
	}
	return out, nil
}

// basisChange maps the eigenstates of each qubit's Pauli onto those of Z, qubits ascending
func basisChange(bases map[int]quantum.Pauli) []quantum.Gate {
	var gates []quantum.Gate
	for _, q := range sortedQubits(bases) {
		switch bases[q] {
		case quantum.PauliX:
			gates = append(gates, quantum.NewGate(quantum.GateRY, []int{q}, -math.Pi/2))
		case quantum.PauliY:
			gates = append(gates, quantum.NewGate(quantum.GateRX, []int{q}, math.Pi/2))
		}
	}
	return gates
}

func toZBasis(op quantum.PauliSum) quantum.PauliSum {
	out := make(quantum.PauliSum, len(op))
	for i, term := range op {
		ops := make(map[int]quantum.Pauli, len(term.Ops))
		for q := range term.Ops {
			ops[q] = quantum.PauliZ
		}
		out[i] = quantum.NewPauliTerm(term.Coefficient, ops)
	}
	return out
}

func sortedQubits(bases map[int]quantum.Pauli) []int {
	term := quantum.NewPauliTerm(1, bases)
	return term.Qubits()
}
