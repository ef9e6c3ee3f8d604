package quantum

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNonDiagonalOperator is returned when samples in the computational basis are asked
// for the expectation value of a term containing X or Y
var ErrNonDiagonalOperator = errors.New("operator is not diagonal in the computational basis")

// ExpectationValues holds one real expectation value per term of the originating operator.
// Values include the term coefficients, so their sum is the expectation value of the operator.
type ExpectationValues struct {
	Values []float64 `json:"values"`
}

// Sum returns the total of all values
func (e ExpectationValues) Sum() float64 {
	total := 0.0
	for _, v := range e.Values {
		total += v
	}
	return total
}

// ToReal keeps the real part of complex expectation values.
// Imaginary parts of Hermitian operators only come from numerical or sampling noise.
func ToReal(values []complex128) ExpectationValues {
	out := ExpectationValues{Values: make([]float64, len(values))}
	for i, v := range values {
		out.Values[i] = real(v)
	}
	return out
}

// ConstantExpectationValues evaluates an operator made only of identity terms
func ConstantExpectationValues(op PauliSum) ExpectationValues {
	values := make([]complex128, len(op))
	for i, term := range op {
		values[i] = term.Coefficient
	}
	return ToReal(values)
}

// Measurements is the set of bitstrings sampled from one circuit.
// Character i of a bitstring holds the outcome of qubit i.
type Measurements struct {
	NumQubits int            `json:"num_qubits"`
	Counts    map[string]int `json:"counts"`
}

// NewMeasurements creates measurements from bitstring counts
func NewMeasurements(numQubits int, counts map[string]int) (*Measurements, error) {
	m := &Measurements{
		NumQubits: numQubits,
		Counts:    make(map[string]int, len(counts)),
	}
	for bitstring, count := range counts {
		if len(bitstring) != numQubits {
			return nil, fmt.Errorf("bitstring %q does not have %d bits", bitstring, numQubits)
		}
		for _, r := range bitstring {
			if r != '0' && r != '1' {
				return nil, fmt.Errorf("bitstring %q contains non-binary character %q", bitstring, r)
			}
		}
		if count < 0 {
			return nil, fmt.Errorf("negative count %d for bitstring %q", count, bitstring)
		}
		if count > 0 {
			m.Counts[bitstring] += count
		}
	}
	return m, nil
}

// Shots returns the total number of samples
func (m *Measurements) Shots() int {
	total := 0
	for _, count := range m.Counts {
		total += count
	}
	return total
}

// Distribution returns the relative frequency of each observed bitstring
func (m *Measurements) Distribution() map[string]float64 {
	totalShots := m.Shots()
	probabilities := make(map[string]float64, len(m.Counts))
	if totalShots == 0 {
		return probabilities
	}
	for outcome, count := range m.Counts {
		probabilities[outcome] = float64(count) / float64(totalShots)
	}
	return probabilities
}

// Bitstrings returns the observed bitstrings in lexical order
func (m *Measurements) Bitstrings() []string {
	out := make([]string, 0, len(m.Counts))
	for b := range m.Counts {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// ExpectationValues estimates the per-term expectation values of a diagonal operator
// by averaging the parity of the measured qubits of each term over all samples
func (m *Measurements) ExpectationValues(op PauliSum) (ExpectationValues, error) {
	if !op.IsDiagonal() {
		return ExpectationValues{}, fmt.Errorf("%w: %s", ErrNonDiagonalOperator, op)
	}
	totalShots := m.Shots()
	if totalShots == 0 && !op.IsConstant() {
		return ExpectationValues{}, errors.New("no samples to estimate expectation values from")
	}

	values := make([]complex128, len(op))
	for i, term := range op {
		if term.IsConstant() {
			values[i] = term.Coefficient
			continue
		}
		for _, q := range term.Qubits() {
			if q >= m.NumQubits {
				return ExpectationValues{}, fmt.Errorf("%w: term %s acts on qubit %d but only %d qubits were measured", ErrQubitOutOfRange,
					term, q, m.NumQubits)
			}
		}
		var acc float64
		for bitstring, count := range m.Counts {
			acc += float64(count) * ParityEigenvalue(bitstring, term)
		}
		values[i] = term.Coefficient * complex(acc/float64(totalShots), 0)
	}
	return ToReal(values), nil
}

// ParityEigenvalue returns +1 or -1: the eigenvalue of the Z-only term on the given basis state
func ParityEigenvalue(bitstring string, term PauliTerm) float64 {
	eigenvalue := 1.0
	for q := range term.Ops {
		if q < len(bitstring) && bitstring[q] == '1' {
			eigenvalue = -eigenvalue
		}
	}
	return eigenvalue
}

// Energy returns the real eigenvalue of a diagonal operator on a basis state
func Energy(bitstring string, op PauliSum) float64 {
	var e float64
	for _, term := range op {
		e += real(term.Coefficient) * ParityEigenvalue(bitstring, term)
	}
	return e
}
