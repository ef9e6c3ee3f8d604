// Package problems turns combinatorial optimisation problems into hamiltonians.
package problems

import (
	"errors"
	"fmt"

	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// ErrInvalidEdge is returned for self loops and negative vertex indices
var ErrInvalidEdge = errors.New("invalid edge")

// Edge joins vertices U and V. Vertex i is qubit i.
type Edge struct {
	U, V   int
	Weight float64
}

// UnweightedEdges gives each pair a weight of 1
func UnweightedEdges(pairs ...[2]int) []Edge {
	edges := make([]Edge, len(pairs))
	for i, p := range pairs {
		edges[i] = Edge{U: p[0], V: p[1], Weight: 1}
	}
	return edges
}

// MaxCutHamiltonian returns Σ w(Z_u Z_v - 1)/2 over the edges. Its energy on a
// basis state is minus the weight of the cut that state describes, so its
// ground energy is minus the maximum cut.
func MaxCutHamiltonian(edges []Edge) (quantum.PauliSum, error) {
	h := make(quantum.PauliSum, 0, len(edges)+1)
	var offset float64
	for _, e := range edges {
		if e.U < 0 || e.V < 0 || e.U == e.V {
			return nil, fmt.Errorf("%w: (%d, %d)", ErrInvalidEdge, e.U, e.V)
		}
		h = append(h, quantum.NewPauliTerm(complex(e.Weight/2, 0), map[int]quantum.Pauli{
			e.U: quantum.PauliZ,
			e.V: quantum.PauliZ,
		}))
		offset -= e.Weight / 2
	}
	h = append(h, quantum.ConstantTerm(complex(offset, 0)))
	return h.Simplify(), nil
}

// CutWeight returns the total weight of the edges cut by a bitstring, where
// character i is the side of vertex i
func CutWeight(edges []Edge, bitstring string) (float64, error) {
	var weight float64
	for _, e := range edges {
		if e.U >= len(bitstring) || e.V >= len(bitstring) {
			return 0, fmt.Errorf("%w: (%d, %d) outside bitstring %q", ErrInvalidEdge, e.U, e.V, bitstring)
		}
		if bitstring[e.U] != bitstring[e.V] {
			weight += e.Weight
		}
	}
	return weight, nil
}

// MostProbable returns the most probable bitstring of a distribution, lowest first on ties
func MostProbable(distribution map[string]float64) string {
	var best string
	bestP := -1.0
	for bitstring, p := range distribution {
		if p > bestP || (p == bestP && bitstring < best) {
			best, bestP = bitstring, p
		}
	}
	return best
}
