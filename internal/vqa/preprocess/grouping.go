// Package preprocess provides the estimation stages that run before measurement:
// grouping of commuting terms, measurement context selection and shot allocation.
package preprocess

import (
	"math/cmplx"
	"sort"

	"github.com/jaskrrish/Go-VQA/internal/vqa/estimation"
	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// GroupIndividually splits every task into one task per operator term
func GroupIndividually(tasks []estimation.Task) ([]estimation.Task, error) {
	out := make([]estimation.Task, 0, len(tasks))
	for _, task := range tasks {
		for _, term := range task.Operator() {
			out = append(out, task.WithOperator(quantum.PauliSum{term}))
		}
	}
	return out, nil
}

// GroupGreedily returns a stage that packs the terms of each task into as few
// qubit-wise commuting groups as a first-fit pass finds. Constant terms are moved
// into a task of their own. With sortTerms, terms are visited by decreasing
// coefficient magnitude, which tends to put large terms together.
func GroupGreedily(sortTerms bool) estimation.Preprocessor {
	return func(tasks []estimation.Task) ([]estimation.Task, error) {
		out := make([]estimation.Task, 0, len(tasks))
		for _, task := range tasks {
			op := task.Operator()

			var constant quantum.PauliSum
			for _, term := range op {
				if term.IsConstant() {
					constant = append(constant, term)
				}
			}

			for _, group := range groupTerms(op.NonConstantTerms(), sortTerms) {
				out = append(out, task.WithOperator(group))
			}
			if len(constant) > 0 {
				out = append(out, task.WithOperator(constant))
			}
		}
		return out, nil
	}
}

func groupTerms(terms quantum.PauliSum, sortTerms bool) []quantum.PauliSum {
	if sortTerms {
		sorted := make(quantum.PauliSum, len(terms))
		copy(sorted, terms)
		sort.SliceStable(sorted, func(i, j int) bool {
			return cmplx.Abs(sorted[i].Coefficient) > cmplx.Abs(sorted[j].Coefficient)
		})
		terms = sorted
	}

	var groups []quantum.PauliSum
	for _, term := range terms {
		placed := false
		for i, group := range groups {
			if commutesWithAll(term, group) {
				groups[i] = append(group, term)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, quantum.PauliSum{term})
		}
	}
	return groups
}

func commutesWithAll(term quantum.PauliTerm, group quantum.PauliSum) bool {
	for _, other := range group {
		if !term.QubitWiseCommutes(other) {
			return false
		}
	}
	return true
}
