// Package ansatz builds parameterised state-preparation circuits.
package ansatz

import (
	"errors"
	"fmt"

	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// ErrWrongParameterCount is returned when a parameter vector does not fit the ansatz
var ErrWrongParameterCount = errors.New("wrong number of parameters")

// Ansatz maps a parameter vector to a circuit
type Ansatz interface {
	NumberOfQubits() int
	NumberOfParams() int
	Circuit(params []float64) (*quantum.Circuit, error)
}

// HardwareEfficient is the layered ansatz of alternating single-qubit rotations
// and a nearest-neighbour CX ladder. Each layer applies RY then RZ to every qubit.
type HardwareEfficient struct {
	Layers int
	Qubits int
}

// NewHardwareEfficient creates a hardware-efficient ansatz
func NewHardwareEfficient(layers, qubits int) (*HardwareEfficient, error) {
	if layers < 1 {
		return nil, fmt.Errorf("ansatz needs at least one layer, got %d", layers)
	}
	if qubits < 1 {
		return nil, fmt.Errorf("ansatz needs at least one qubit, got %d", qubits)
	}
	return &HardwareEfficient{Layers: layers, Qubits: qubits}, nil
}

// NumberOfQubits returns the register size
func (h *HardwareEfficient) NumberOfQubits() int {
	return h.Qubits
}

// NumberOfParams returns 2 rotations per qubit per layer
func (h *HardwareEfficient) NumberOfParams() int {
	return 2 * h.Qubits * h.Layers
}

// Circuit binds params in layer-major order: for each layer all RY angles, then all RZ angles
func (h *HardwareEfficient) Circuit(params []float64) (*quantum.Circuit, error) {
	if len(params) != h.NumberOfParams() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrWrongParameterCount, len(params), h.NumberOfParams())
	}

	ops := make([]quantum.Gate, 0, h.NumberOfParams()+h.Layers*(h.Qubits-1))
	k := 0
	for layer := 0; layer < h.Layers; layer++ {
		for q := 0; q < h.Qubits; q++ {
			ops = append(ops, quantum.NewGate(quantum.GateRY, []int{q}, params[k]))
			k++
		}
		for q := 0; q < h.Qubits; q++ {
			ops = append(ops, quantum.NewGate(quantum.GateRZ, []int{q}, params[k]))
			k++
		}
		for q := 0; q+1 < h.Qubits; q++ {
			ops = append(ops, quantum.NewGate(quantum.GateCX, []int{q, q + 1}))
		}
	}
	return quantum.NewCircuit(h.Qubits, ops...), nil
}
