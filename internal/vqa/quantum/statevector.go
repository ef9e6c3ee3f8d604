package quantum

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"
	"sort"
	"strings"
)

// maxSimulatedQubits bounds the state vector to 2^24 amplitudes
const maxSimulatedQubits = 24

// StateVector holds the 2^n amplitudes of an n-qubit register.
// Bit q of an amplitude index is the value of qubit q.
type StateVector struct {
	Amplitudes []complex128
	NumQubits  int
}

// NewStateVector creates the |0...0⟩ state
func NewStateVector(numQubits int) (*StateVector, error) {
	if numQubits < 1 || numQubits > maxSimulatedQubits {
		return nil, fmt.Errorf("cannot simulate %d qubits (supported: 1-%d)", numQubits, maxSimulatedQubits)
	}
	amps := make([]complex128, 1<<numQubits)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}, nil
}

// Simulate runs a circuit from |0...0⟩ on a register of at least numQubits qubits
func Simulate(circuit *Circuit, numQubits int) (*StateVector, error) {
	if err := circuit.Validate(); err != nil {
		return nil, err
	}
	if circuit.NumQubits > numQubits {
		numQubits = circuit.NumQubits
	}
	state, err := NewStateVector(numQubits)
	if err != nil {
		return nil, err
	}
	for _, op := range circuit.Operations {
		state.Apply(op)
	}
	return state, nil
}

// Apply applies a validated gate to the state
func (s *StateVector) Apply(g Gate) {
	switch g.Name {
	case GateI:
	case GateX:
		s.apply1(g.Qubits[0], [2][2]complex128{{0, 1}, {1, 0}})
	case GateY:
		s.apply1(g.Qubits[0], [2][2]complex128{{0, -1i}, {1i, 0}})
	case GateZ:
		s.apply1(g.Qubits[0], [2][2]complex128{{1, 0}, {0, -1}})
	case GateH:
		h := complex(1/math.Sqrt2, 0)
		s.apply1(g.Qubits[0], [2][2]complex128{{h, h}, {h, -h}})
	case GateS:
		s.apply1(g.Qubits[0], [2][2]complex128{{1, 0}, {0, 1i}})
	case GateSdg:
		s.apply1(g.Qubits[0], [2][2]complex128{{1, 0}, {0, -1i}})
	case GateT:
		s.apply1(g.Qubits[0], [2][2]complex128{{1, 0}, {0, cmplx.Exp(1i * math.Pi / 4)}})
	case GateTdg:
		s.apply1(g.Qubits[0], [2][2]complex128{{1, 0}, {0, cmplx.Exp(-1i * math.Pi / 4)}})
	case GateRX:
		c, sn := rotation(g.Params[0])
		s.apply1(g.Qubits[0], [2][2]complex128{{c, -1i * sn}, {-1i * sn, c}})
	case GateRY:
		c, sn := rotation(g.Params[0])
		s.apply1(g.Qubits[0], [2][2]complex128{{c, -sn}, {sn, c}})
	case GateRZ:
		half := g.Params[0] / 2
		s.apply1(g.Qubits[0], [2][2]complex128{{cmplx.Exp(complex(0, -half)), 0}, {0, cmplx.Exp(complex(0, half))}})
	case GateCX:
		s.applyCX(g.Qubits[0], g.Qubits[1])
	case GateCZ:
		s.applyCZ(g.Qubits[0], g.Qubits[1])
	case GateSWAP:
		s.applySWAP(g.Qubits[0], g.Qubits[1])
	}
}

func rotation(theta float64) (complex128, complex128) {
	return complex(math.Cos(theta/2), 0), complex(math.Sin(theta/2), 0)
}

// apply1 applies a 2x2 unitary to qubit q
func (s *StateVector) apply1(q int, m [2][2]complex128) {
	bit := 1 << q
	for i := range s.Amplitudes {
		if i&bit == 0 {
			j := i | bit
			a0, a1 := s.Amplitudes[i], s.Amplitudes[j]
			s.Amplitudes[i] = m[0][0]*a0 + m[0][1]*a1
			s.Amplitudes[j] = m[1][0]*a0 + m[1][1]*a1
		}
	}
}

func (s *StateVector) applyCX(control, target int) {
	cbit := 1 << control
	tbit := 1 << target
	for i := range s.Amplitudes {
		if i&cbit != 0 && i&tbit == 0 {
			j := i | tbit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

func (s *StateVector) applyCZ(q1, q2 int) {
	mask := (1 << q1) | (1 << q2)
	for i := range s.Amplitudes {
		if i&mask == mask {
			s.Amplitudes[i] = -s.Amplitudes[i]
		}
	}
}

func (s *StateVector) applySWAP(q1, q2 int) {
	b1 := 1 << q1
	b2 := 1 << q2
	for i := range s.Amplitudes {
		if i&b1 != 0 && i&b2 == 0 {
			j := (i &^ b1) | b2
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

// TermExpectation returns ⟨ψ|P|ψ⟩ for the operator part of the term (coefficient excluded)
func (s *StateVector) TermExpectation(term PauliTerm) (complex128, error) {
	flip := 0
	for q, p := range term.Ops {
		if q >= s.NumQubits {
			return 0, fmt.Errorf("term %s acts on qubit %d outside the %d-qubit register", term, q, s.NumQubits)
		}
		if p == PauliX || p == PauliY {
			flip |= 1 << q
		}
	}

	var acc complex128
	for i, amp := range s.Amplitudes {
		if amp == 0 {
			continue
		}
		phase := complex128(1)
		for q, p := range term.Ops {
			set := i&(1<<q) != 0
			switch p {
			case PauliY:
				if set {
					phase *= -1i
				} else {
					phase *= 1i
				}
			case PauliZ:
				if set {
					phase = -phase
				}
			}
		}
		acc += cmplx.Conj(s.Amplitudes[i^flip]) * phase * amp
	}
	return acc, nil
}

// Probabilities returns |amplitude|^2 keyed by bitstring, omitting zero entries
func (s *StateVector) Probabilities() map[string]float64 {
	out := make(map[string]float64)
	for i, amp := range s.Amplitudes {
		p := real(amp)*real(amp) + imag(amp)*imag(amp)
		if p > 1e-15 {
			out[indexToBitstring(i, s.NumQubits)] = p
		}
	}
	return out
}

// Sample draws shots bitstrings from the state's distribution.
// Each measured bit is flipped with probability readoutError.
func (s *StateVector) Sample(rng *rand.Rand, shots int, readoutError float64) map[string]int {
	cumulative := make([]float64, len(s.Amplitudes))
	total := 0.0
	for i, amp := range s.Amplitudes {
		total += real(amp)*real(amp) + imag(amp)*imag(amp)
		cumulative[i] = total
	}

	counts := make(map[string]int)
	for n := 0; n < shots; n++ {
		r := rng.Float64() * total
		idx := sort.Search(len(cumulative), func(i int) bool { return cumulative[i] > r })
		if idx >= len(cumulative) {
			idx = len(cumulative) - 1
		}
		if readoutError > 0 {
			for q := 0; q < s.NumQubits; q++ {
				if rng.Float64() < readoutError {
					idx ^= 1 << q
				}
			}
		}
		counts[indexToBitstring(idx, s.NumQubits)]++
	}
	return counts
}

func indexToBitstring(index, numQubits int) string {
	var sb strings.Builder
	sb.Grow(numQubits)
	for q := 0; q < numQubits; q++ {
		if index&(1<<q) != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
