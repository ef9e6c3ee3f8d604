package quantum

import (
	"fmt"
	"strconv"
	"strings"
)

// QASMBuilder builds OpenQASM 2.0 programs
type QASMBuilder struct {
	version      string
	includeStmt  string
	registers    []string
	gates        []string
	measurements []string
}

// qasmNames maps canonical gate names onto qelib1.inc gate names
var qasmNames = map[string]string{
	GateI:    "id",
	GateX:    "x",
	GateY:    "y",
	GateZ:    "z",
	GateH:    "h",
	GateS:    "s",
	GateSdg:  "sdg",
	GateT:    "t",
	GateTdg:  "tdg",
	GateRX:   "rx",
	GateRY:   "ry",
	GateRZ:   "rz",
	GateCX:   "cx",
	GateCZ:   "cz",
	GateSWAP: "swap",
}

// NewQASMBuilder creates a new OpenQASM circuit builder
func NewQASMBuilder(numQubits int, numClassical int) *QASMBuilder {
	builder := &QASMBuilder{
		version:      "OPENQASM 2.0;",
		includeStmt:  "include \"qelib1.inc\";",
		registers:    make([]string, 0),
		gates:        make([]string, 0),
		measurements: make([]string, 0),
	}

	builder.registers = append(builder.registers,
		fmt.Sprintf("qreg q[%d];", numQubits),
		fmt.Sprintf("creg c[%d];", numClassical),
	)

	return builder
}

// AddGate adds a raw quantum gate statement
func (b *QASMBuilder) AddGate(gate string) {
	b.gates = append(b.gates, gate)
}

// AddOperation adds a circuit operation, translating it to qelib1.inc syntax
func (b *QASMBuilder) AddOperation(g Gate) error {
	name, ok := qasmNames[g.Name]
	if !ok {
		return fmt.Errorf("%w: %q has no OpenQASM 2.0 equivalent", ErrUnknownGate, g.Name)
	}

	var stmt strings.Builder
	stmt.WriteString(name)
	if len(g.Params) > 0 {
		params := make([]string, len(g.Params))
		for i, p := range g.Params {
			params[i] = strconv.FormatFloat(p, 'g', 17, 64)
		}
		stmt.WriteString("(" + strings.Join(params, ",") + ")")
	}
	qubits := make([]string, len(g.Qubits))
	for i, q := range g.Qubits {
		qubits[i] = fmt.Sprintf("q[%d]", q)
	}
	stmt.WriteString(" " + strings.Join(qubits, ",") + ";")

	b.AddGate(stmt.String())
	return nil
}

// AddMeasurement adds a measurement operation
func (b *QASMBuilder) AddMeasurement(qubit int, classical int) {
	b.measurements = append(b.measurements,
		fmt.Sprintf("measure q[%d] -> c[%d];", qubit, classical))
}

// Build generates the complete QASM circuit string
func (b *QASMBuilder) Build() string {
	var circuit strings.Builder

	circuit.WriteString(b.version + "\n")
	circuit.WriteString(b.includeStmt + "\n")
	circuit.WriteString("\n")

	for _, reg := range b.registers {
		circuit.WriteString(reg + "\n")
	}
	circuit.WriteString("\n")

	for _, gate := range b.gates {
		circuit.WriteString(gate + "\n")
	}
	circuit.WriteString("\n")

	for _, meas := range b.measurements {
		circuit.WriteString(meas + "\n")
	}

	return circuit.String()
}

// BuildMeasuredCircuit renders the circuit followed by a measurement of every qubit,
// qubit i landing in classical bit i
func BuildMeasuredCircuit(c *Circuit) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	builder := NewQASMBuilder(c.NumQubits, c.NumQubits)
	for _, op := range c.Operations {
		if err := builder.AddOperation(op); err != nil {
			return "", err
		}
	}
	for i := 0; i < c.NumQubits; i++ {
		builder.AddMeasurement(i, i)
	}

	return builder.Build(), nil
}

// BellPairCircuit creates the Bell state |Φ+⟩ = (|00⟩ + |11⟩)/√2
func BellPairCircuit() *Circuit {
	return NewCircuit(2,
		NewGate(GateH, []int{0}),
		NewGate(GateCX, []int{0, 1}),
	)
}

// GHZStateCircuit creates (|0...0⟩ + |1...1⟩)/√2 on numQubits qubits
func GHZStateCircuit(numQubits int) (*Circuit, error) {
	if numQubits < 2 {
		return nil, fmt.Errorf("GHZ state requires at least 2 qubits, got %d", numQubits)
	}

	ops := []Gate{NewGate(GateH, []int{0})}
	for i := 1; i < numQubits; i++ {
		ops = append(ops, NewGate(GateCX, []int{0, i}))
	}
	return NewCircuit(numQubits, ops...), nil
}

// CountsFromQiskit converts Qiskit counts, whose bitstrings put qubit 0 rightmost
// (optionally as "0x" hex keys), into counts with qubit i at character i
func CountsFromQiskit(counts map[string]int, numQubits int) (map[string]int, error) {
	out := make(map[string]int, len(counts))
	for key, count := range counts {
		bits := strings.ReplaceAll(key, " ", "")
		if strings.HasPrefix(bits, "0x") {
			v, err := strconv.ParseUint(bits[2:], 16, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid hex outcome %q: %w", key, err)
			}
			bits = strconv.FormatUint(v, 2)
		}
		if len(bits) > numQubits {
			return nil, fmt.Errorf("outcome %q has more than %d bits", key, numQubits)
		}
		bits = strings.Repeat("0", numQubits-len(bits)) + bits

		reversed := make([]byte, numQubits)
		for i := 0; i < numQubits; i++ {
			reversed[i] = bits[numQubits-1-i]
		}
		out[string(reversed)] += count
	}
	return out, nil
}
