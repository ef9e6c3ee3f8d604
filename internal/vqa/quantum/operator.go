package quantum

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Pauli is a single-qubit Pauli operator
type Pauli int

const (
	PauliI Pauli = iota
	PauliX
	PauliY
	PauliZ
)

func (p Pauli) String() string {
	switch p {
	case PauliI:
		return "I"
	case PauliX:
		return "X"
	case PauliY:
		return "Y"
	case PauliZ:
		return "Z"
	default:
		return "Unknown"
	}
}

// ParsePauli converts a letter (I, X, Y, Z, any case) into a Pauli
func ParsePauli(r rune) (Pauli, error) {
	switch unicode.ToUpper(r) {
	case 'I':
		return PauliI, nil
	case 'X':
		return PauliX, nil
	case 'Y':
		return PauliY, nil
	case 'Z':
		return PauliZ, nil
	default:
		return PauliI, fmt.Errorf("%w: %q is not a Pauli operator", ErrInvalidOperator, r)
	}
}

// ErrInvalidOperator is returned when an operator expression cannot be parsed
var ErrInvalidOperator = errors.New("invalid operator")

// pauliProduct returns the phase and Pauli of a*b
func pauliProduct(a, b Pauli) (complex128, Pauli) {
	switch {
	case a == PauliI:
		return 1, b
	case b == PauliI:
		return 1, a
	case a == b:
		return 1, PauliI
	}
	// a, b distinct non-identity: XY=iZ, YZ=iX, ZX=iY and the reverse with -i
	third := PauliX + PauliY + PauliZ - a - b
	if (a == PauliX && b == PauliY) || (a == PauliY && b == PauliZ) || (a == PauliZ && b == PauliX) {
		return 1i, third
	}
	return -1i, third
}

// PauliTerm is a coefficient times a tensor product of Pauli operators.
// A term with no operators is a constant (identity) term.
type PauliTerm struct {
	Coefficient complex128
	Ops         map[int]Pauli
}

// NewPauliTerm creates a term; identity factors are dropped
func NewPauliTerm(coefficient complex128, ops map[int]Pauli) PauliTerm {
	term := PauliTerm{Coefficient: coefficient, Ops: make(map[int]Pauli, len(ops))}
	for q, p := range ops {
		if p != PauliI {
			term.Ops[q] = p
		}
	}
	return term
}

// ConstantTerm creates an identity term with the given coefficient
func ConstantTerm(coefficient complex128) PauliTerm {
	return PauliTerm{Coefficient: coefficient, Ops: map[int]Pauli{}}
}

// IsConstant reports whether the term is proportional to the identity
func (t PauliTerm) IsConstant() bool {
	return len(t.Ops) == 0
}

// IsDiagonal reports whether the term contains only Z operators
func (t PauliTerm) IsDiagonal() bool {
	for _, p := range t.Ops {
		if p != PauliZ {
			return false
		}
	}
	return true
}

// Qubits returns the qubits the term acts on, ascending
func (t PauliTerm) Qubits() []int {
	qubits := make([]int, 0, len(t.Ops))
	for q := range t.Ops {
		qubits = append(qubits, q)
	}
	sort.Ints(qubits)
	return qubits
}

// Op returns the Pauli acting on qubit q (identity if none)
func (t PauliTerm) Op(q int) Pauli {
	if p, ok := t.Ops[q]; ok {
		return p
	}
	return PauliI
}

// WithCoefficient returns a copy of the term with a different coefficient
func (t PauliTerm) WithCoefficient(c complex128) PauliTerm {
	return NewPauliTerm(c, t.Ops)
}

// Times multiplies two terms using the Pauli algebra
func (t PauliTerm) Times(other PauliTerm) PauliTerm {
	coefficient := t.Coefficient * other.Coefficient
	ops := make(map[int]Pauli, len(t.Ops)+len(other.Ops))
	for q, p := range t.Ops {
		ops[q] = p
	}
	for q, p := range other.Ops {
		phase, product := pauliProduct(ops[q], p)
		coefficient *= phase
		ops[q] = product
	}
	return NewPauliTerm(coefficient, ops)
}

// QubitWiseCommutes reports whether the two terms agree on every shared qubit
func (t PauliTerm) QubitWiseCommutes(other PauliTerm) bool {
	for q, p := range t.Ops {
		if o, ok := other.Ops[q]; ok && o != p {
			return false
		}
	}
	return true
}

// key identifies the operator part of the term, ignoring the coefficient
func (t PauliTerm) key() string {
	var sb strings.Builder
	for _, q := range t.Qubits() {
		fmt.Fprintf(&sb, "%s%d", t.Ops[q], q)
	}
	return sb.String()
}

func (t PauliTerm) String() string {
	coefficient := formatCoefficient(t.Coefficient)
	if t.IsConstant() {
		return coefficient
	}
	parts := []string{coefficient}
	for _, q := range t.Qubits() {
		parts = append(parts, fmt.Sprintf("%s%d", t.Ops[q], q))
	}
	return strings.Join(parts, "*")
}

func formatCoefficient(c complex128) string {
	if imag(c) == 0 {
		return strconv.FormatFloat(real(c), 'g', -1, 64)
	}
	return fmt.Sprintf("(%g%+gi)", real(c), imag(c))
}

// PauliSum is a weighted sum of Pauli terms (an observable).
// Term order is significant: expectation values are reported per term in this order.
type PauliSum []PauliTerm

// NumQubits returns one more than the largest qubit index acted on
func (s PauliSum) NumQubits() int {
	n := 0
	for _, term := range s {
		for q := range term.Ops {
			if q+1 > n {
				n = q + 1
			}
		}
	}
	return n
}

// IsConstant reports whether every term is an identity term
func (s PauliSum) IsConstant() bool {
	for _, term := range s {
		if !term.IsConstant() {
			return false
		}
	}
	return true
}

// IsDiagonal reports whether every term contains only Z operators
func (s PauliSum) IsDiagonal() bool {
	for _, term := range s {
		if !term.IsDiagonal() {
			return false
		}
	}
	return true
}

// QubitWiseCommuting reports whether all terms pairwise commute qubit-wise
func (s PauliSum) QubitWiseCommuting() bool {
	for i := range s {
		for j := i + 1; j < len(s); j++ {
			if !s[i].QubitWiseCommutes(s[j]) {
				return false
			}
		}
	}
	return true
}

// ConstantPart returns the sum of the coefficients of the identity terms
func (s PauliSum) ConstantPart() complex128 {
	var c complex128
	for _, term := range s {
		if term.IsConstant() {
			c += term.Coefficient
		}
	}
	return c
}

// NonConstantTerms returns the terms that act on at least one qubit
func (s PauliSum) NonConstantTerms() PauliSum {
	out := make(PauliSum, 0, len(s))
	for _, term := range s {
		if !term.IsConstant() {
			out = append(out, term)
		}
	}
	return out
}

// Simplify merges terms with identical operators and drops zero coefficients.
// The position of the first occurrence of each operator is kept.
func (s PauliSum) Simplify() PauliSum {
	index := make(map[string]int, len(s))
	out := make(PauliSum, 0, len(s))
	for _, term := range s {
		k := term.key()
		if i, ok := index[k]; ok {
			out[i] = out[i].WithCoefficient(out[i].Coefficient + term.Coefficient)
			continue
		}
		index[k] = len(out)
		out = append(out, term.WithCoefficient(term.Coefficient))
	}
	simplified := out[:0]
	for _, term := range out {
		if term.Coefficient != 0 {
			simplified = append(simplified, term)
		}
	}
	return simplified
}

func (s PauliSum) String() string {
	if len(s) == 0 {
		return "0"
	}
	var sb strings.Builder
	for i, term := range s {
		c := term.Coefficient
		switch {
		case i == 0:
			sb.WriteString(term.String())
		case imag(c) == 0 && real(c) < 0:
			sb.WriteString(" - ")
			sb.WriteString(term.WithCoefficient(-c).String())
		default:
			sb.WriteString(" + ")
			sb.WriteString(term.String())
		}
	}
	return sb.String()
}

// ParsePauliSum parses expressions such as "1.5*X0*Z1 - 0.5*Y2 + 0.3" or "X0 X1 + Z0".
// Factors within a term are separated by '*' or whitespace.
func ParsePauliSum(expr string) (PauliSum, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidOperator)
	}

	chunks, err := splitTerms(expr)
	if err != nil {
		return nil, err
	}

	sum := make(PauliSum, 0, len(chunks))
	for _, chunk := range chunks {
		term, err := parseTerm(chunk.text)
		if err != nil {
			return nil, err
		}
		term.Coefficient *= complex(chunk.sign, 0)
		sum = append(sum, term)
	}
	return sum, nil
}

// MustParsePauliSum is like ParsePauliSum but panics on error
func MustParsePauliSum(expr string) PauliSum {
	sum, err := ParsePauliSum(expr)
	if err != nil {
		panic(err)
	}
	return sum
}

type termChunk struct {
	sign float64
	text string
}

// splitTerms cuts an expression at top-level '+' and '-' signs,
// leaving exponent signs such as "1e-3" in place
func splitTerms(expr string) ([]termChunk, error) {
	var chunks []termChunk
	sign := 1.0
	start := 0
	prev := rune(0)

	flush := func(end int) error {
		text := strings.TrimSpace(expr[start:end])
		if text == "" {
			return fmt.Errorf("%w: empty term in %q", ErrInvalidOperator, expr)
		}
		chunks = append(chunks, termChunk{sign: sign, text: text})
		return nil
	}

	for i, r := range expr {
		if (r == '+' || r == '-') && !isExponentSign(expr, i, prev) {
			if strings.TrimSpace(expr[start:i]) != "" {
				if err := flush(i); err != nil {
					return nil, err
				}
				sign = 1.0
			} else if len(chunks) > 0 || start != 0 || strings.TrimSpace(expr[:i]) != "" {
				return nil, fmt.Errorf("%w: dangling sign in %q", ErrInvalidOperator, expr)
			}
			if r == '-' {
				sign = -sign
			}
			start = i + 1
		}
		if !unicode.IsSpace(r) {
			prev = r
		}
	}
	if err := flush(len(expr)); err != nil {
		return nil, err
	}
	return chunks, nil
}

func isExponentSign(expr string, i int, prev rune) bool {
	if prev != 'e' && prev != 'E' {
		return false
	}
	// the 'e' must directly follow a digit or '.' to be an exponent marker
	j := i - 1
	for j >= 0 && expr[j] != 'e' && expr[j] != 'E' {
		j--
	}
	return j > 0 && (unicode.IsDigit(rune(expr[j-1])) || expr[j-1] == '.')
}

func parseTerm(text string) (PauliTerm, error) {
	factors := strings.FieldsFunc(text, func(r rune) bool {
		return r == '*' || unicode.IsSpace(r)
	})
	if len(factors) == 0 {
		return PauliTerm{}, fmt.Errorf("%w: empty term", ErrInvalidOperator)
	}

	term := ConstantTerm(1)
	for _, factor := range factors {
		first := rune(factor[0])
		if strings.ContainsRune("IXYZixyz", first) && len(factor) > 1 && isDigits(factor[1:]) {
			p, err := ParsePauli(first)
			if err != nil {
				return PauliTerm{}, err
			}
			q, err := strconv.Atoi(factor[1:])
			if err != nil {
				return PauliTerm{}, fmt.Errorf("%w: bad qubit index in %q", ErrInvalidOperator, factor)
			}
			term = term.Times(NewPauliTerm(1, map[int]Pauli{q: p}))
			continue
		}

		value, err := strconv.ParseFloat(factor, 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return PauliTerm{}, fmt.Errorf("%w: cannot parse factor %q", ErrInvalidOperator, factor)
		}
		term.Coefficient *= complex(value, 0)
	}
	return term, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
