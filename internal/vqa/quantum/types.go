package quantum

import (
	"errors"
	"fmt"
	"strings"
)

// Gate names understood by the simulator and the QASM builder
const (
	GateI    = "I"
	GateX    = "X"
	GateY    = "Y"
	GateZ    = "Z"
	GateH    = "H"
	GateS    = "S"
	GateSdg  = "SDG"
	GateT    = "T"
	GateTdg  = "TDG"
	GateRX   = "RX"
	GateRY   = "RY"
	GateRZ   = "RZ"
	GateCX   = "CX"
	GateCZ   = "CZ"
	GateSWAP = "SWAP"
)

// gateSpec describes the arity of a supported gate
type gateSpec struct {
	qubits int
	params int
}

var gateSpecs = map[string]gateSpec{
	GateI:    {1, 0},
	GateX:    {1, 0},
	GateY:    {1, 0},
	GateZ:    {1, 0},
	GateH:    {1, 0},
	GateS:    {1, 0},
	GateSdg:  {1, 0},
	GateT:    {1, 0},
	GateTdg:  {1, 0},
	GateRX:   {1, 1},
	GateRY:   {1, 1},
	GateRZ:   {1, 1},
	GateCX:   {2, 0},
	GateCZ:   {2, 0},
	GateSWAP: {2, 0},
}

// gateAliases maps alternative spellings onto canonical gate names
var gateAliases = map[string]string{
	"CNOT": GateCX,
	"SDAG": GateSdg,
	"TDAG": GateTdg,
	"ID":   GateI,
}

// Circuit validation errors
var (
	ErrUnknownGate     = errors.New("unknown gate")
	ErrGateArity       = errors.New("wrong number of qubits or parameters for gate")
	ErrQubitOutOfRange = errors.New("qubit index out of range")
	ErrDuplicateQubit  = errors.New("gate acts twice on the same qubit")
)

// Gate is a single operation applied to one or two qubits
type Gate struct {
	Name   string    `json:"name"`
	Qubits []int     `json:"qubits"`
	Params []float64 `json:"params,omitempty"`
}

// NewGate creates a gate, normalising its name to the canonical upper-case form
func NewGate(name string, qubits []int, params ...float64) Gate {
	return Gate{
		Name:   CanonicalGateName(name),
		Qubits: append([]int(nil), qubits...),
		Params: append([]float64(nil), params...),
	}
}

// CanonicalGateName returns the canonical spelling of a gate name
func CanonicalGateName(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if alias, ok := gateAliases[upper]; ok {
		return alias
	}
	return upper
}

func (g Gate) String() string {
	var sb strings.Builder
	sb.WriteString(g.Name)
	if len(g.Params) > 0 {
		sb.WriteString("(")
		for i, p := range g.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%g", p)
		}
		sb.WriteString(")")
	}
	for i, q := range g.Qubits {
		if i == 0 {
			sb.WriteString(" ")
		} else {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "q[%d]", q)
	}
	return sb.String()
}

// Validate checks the gate against the supported gate set for a register of numQubits
func (g Gate) Validate(numQubits int) error {
	spec, ok := gateSpecs[g.Name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownGate, g.Name)
	}
	if len(g.Qubits) != spec.qubits || len(g.Params) != spec.params {
		return fmt.Errorf("%w: %s takes %d qubit(s) and %d parameter(s), got %d and %d",
			ErrGateArity, g.Name, spec.qubits, spec.params, len(g.Qubits), len(g.Params))
	}
	for _, q := range g.Qubits {
		if q < 0 || q >= numQubits {
			return fmt.Errorf("%w: %s on qubit %d (register size %d)", ErrQubitOutOfRange, g.Name, q, numQubits)
		}
	}
	if spec.qubits == 2 && g.Qubits[0] == g.Qubits[1] {
		return fmt.Errorf("%w: %s on qubit %d", ErrDuplicateQubit, g.Name, g.Qubits[0])
	}
	return nil
}

// Circuit is a state-preparation program over a fixed register.
// Circuits are treated as values: methods that change a circuit return a new one.
type Circuit struct {
	NumQubits  int    `json:"num_qubits"`
	Operations []Gate `json:"operations"`
}

// NewCircuit creates a circuit from the given operations
func NewCircuit(numQubits int, ops ...Gate) *Circuit {
	c := &Circuit{
		NumQubits:  numQubits,
		Operations: make([]Gate, 0, len(ops)),
	}
	for _, op := range ops {
		c.Operations = append(c.Operations, NewGate(op.Name, op.Qubits, op.Params...))
	}
	return c
}

// Validate checks every operation of the circuit
func (c *Circuit) Validate() error {
	if c == nil {
		return errors.New("circuit is nil")
	}
	if c.NumQubits < 1 {
		return fmt.Errorf("circuit must have at least one qubit, got %d", c.NumQubits)
	}
	for i, op := range c.Operations {
		if err := op.Validate(c.NumQubits); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return nil
}

// Append returns a copy of the circuit with ops added at the end
func (c *Circuit) Append(ops ...Gate) *Circuit {
	out := c.Clone()
	for _, op := range ops {
		out.Operations = append(out.Operations, NewGate(op.Name, op.Qubits, op.Params...))
		for _, q := range op.Qubits {
			if q >= out.NumQubits {
				out.NumQubits = q + 1
			}
		}
	}
	return out
}

// Plus concatenates two circuits; the register grows to fit both
func (c *Circuit) Plus(other *Circuit) *Circuit {
	out := c.Append(other.Operations...)
	if other.NumQubits > out.NumQubits {
		out.NumQubits = other.NumQubits
	}
	return out
}

// Clone returns a deep copy of the circuit
func (c *Circuit) Clone() *Circuit {
	if c == nil {
		return nil
	}
	out := &Circuit{
		NumQubits:  c.NumQubits,
		Operations: make([]Gate, len(c.Operations)),
	}
	for i, op := range c.Operations {
		out.Operations[i] = NewGate(op.Name, op.Qubits, op.Params...)
	}
	return out
}

func (c *Circuit) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Circuit(%d qubits)", c.NumQubits)
	for _, op := range c.Operations {
		sb.WriteString("; ")
		sb.WriteString(op.String())
	}
	return sb.String()
}
