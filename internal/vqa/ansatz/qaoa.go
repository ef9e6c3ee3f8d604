package ansatz

import (
	"fmt"

	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// QAOAFarhi is the quantum approximate optimisation ansatz of Farhi et al.
// It prepares |+...+> and then applies Layers rounds of exp(-iγH) followed by
// exp(-iβΣX), where H is the diagonal cost hamiltonian.
type QAOAFarhi struct {
	Layers          int
	CostHamiltonian quantum.PauliSum
}

// NewQAOAFarhi creates a QAOA ansatz for a diagonal cost hamiltonian
func NewQAOAFarhi(layers int, cost quantum.PauliSum) (*QAOAFarhi, error) {
	if layers < 1 {
		return nil, fmt.Errorf("ansatz needs at least one layer, got %d", layers)
	}
	if cost.IsConstant() {
		return nil, fmt.Errorf("cost hamiltonian %s acts on no qubits", cost)
	}
	if !cost.IsDiagonal() {
		return nil, fmt.Errorf("%w: %s", quantum.ErrNonDiagonalOperator, cost)
	}
	return &QAOAFarhi{Layers: layers, CostHamiltonian: cost}, nil
}

// NumberOfQubits returns the number of qubits the cost hamiltonian acts on
func (a *QAOAFarhi) NumberOfQubits() int {
	return a.CostHamiltonian.NumQubits()
}

// NumberOfParams returns one γ and one β per layer
func (a *QAOAFarhi) NumberOfParams() int {
	return 2 * a.Layers
}

// Circuit binds params as γ1, β1, γ2, β2, ...
func (a *QAOAFarhi) Circuit(params []float64) (*quantum.Circuit, error) {
	if len(params) != a.NumberOfParams() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrWrongParameterCount, len(params), a.NumberOfParams())
	}
	if !a.CostHamiltonian.IsDiagonal() {
		return nil, fmt.Errorf("%w: %s", quantum.ErrNonDiagonalOperator, a.CostHamiltonian)
	}

	n := a.NumberOfQubits()
	ops := make([]quantum.Gate, 0, n)
	for q := 0; q < n; q++ {
		ops = append(ops, quantum.NewGate(quantum.GateH, []int{q}))
	}
	for layer := 0; layer < a.Layers; layer++ {
		gamma, beta := params[2*layer], params[2*layer+1]
		for _, term := range a.CostHamiltonian {
			ops = append(ops, zExponential(term, gamma)...)
		}
		for q := 0; q < n; q++ {
			ops = append(ops, quantum.NewGate(quantum.GateRX, []int{q}, 2*beta))
		}
	}
	return quantum.NewCircuit(n, ops...), nil
}

// zExponential returns the gates of exp(-iγcZ...Z) for a Z-only term with coefficient c.
// The parity of the term's qubits is gathered on the last one by a CX ladder.
// Constant terms only contribute a global phase and give no gates.
func zExponential(term quantum.PauliTerm, gamma float64) []quantum.Gate {
	qubits := term.Qubits()
	if len(qubits) == 0 {
		return nil
	}
	var ladder []quantum.Gate
	for i := 0; i+1 < len(qubits); i++ {
		ladder = append(ladder, quantum.NewGate(quantum.GateCX, []int{qubits[i], qubits[i+1]}))
	}

	ops := make([]quantum.Gate, 0, 2*len(ladder)+1)
	ops = append(ops, ladder...)
	ops = append(ops, quantum.NewGate(quantum.GateRZ, []int{qubits[len(qubits)-1]}, 2*gamma*real(term.Coefficient)))
	for i := len(ladder) - 1; i >= 0; i-- {
		ops = append(ops, ladder[i])
	}
	return ops
}
