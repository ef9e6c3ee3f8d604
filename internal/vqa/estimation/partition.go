package estimation

import (
	"fmt"

	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// Partition is a stable split of tasks into those that are sampled and those
// evaluated exactly, together with each task's position in the original list
type Partition struct {
	ToMeasure      []Task
	NotToMeasure   []Task
	MeasureIndices []int
	ExactIndices   []int
}

// Len returns the number of tasks in the partition
func (p Partition) Len() int {
	return len(p.MeasureIndices) + len(p.ExactIndices)
}

// Split routes each task to the sampling or the exact category.
// Tasks without shots, with zero shots, or whose operator is a constant go to the
// exact category. Order within each category follows the input.
func Split(tasks []Task) Partition {
	var p Partition
	for i, task := range tasks {
		if task.requiresSampling() {
			p.ToMeasure = append(p.ToMeasure, task)
			p.MeasureIndices = append(p.MeasureIndices, i)
		} else {
			p.NotToMeasure = append(p.NotToMeasure, task)
			p.ExactIndices = append(p.ExactIndices, i)
		}
	}
	return p
}

// Merge places exact[k] at exactIndices[k] and sampled[k] at sampledIndices[k]
// in a list of length n. It panics if the indices do not cover 0..n-1 exactly once
// or if a result list and its index list differ in length.
func Merge(
	exact []quantum.ExpectationValues, exactIndices []int,
	sampled []quantum.ExpectationValues, sampledIndices []int,
	n int,
) []quantum.ExpectationValues {
	if len(exact) != len(exactIndices) || len(sampled) != len(sampledIndices) {
		panic(fmt.Sprintf("estimation: merge got %d exact results for %d indices and %d sampled results for %d indices",
			len(exact), len(exactIndices), len(sampled), len(sampledIndices)))
	}
	if len(exactIndices)+len(sampledIndices) != n {
		panic(fmt.Sprintf("estimation: merge got %d indices for %d tasks", len(exactIndices)+len(sampledIndices), n))
	}

	out := make([]quantum.ExpectationValues, n)
	filled := make([]bool, n)
	place := func(values []quantum.ExpectationValues, indices []int) {
		for k, i := range indices {
			if i < 0 || i >= n {
				panic(fmt.Sprintf("estimation: merge index %d out of range [0, %d)", i, n))
			}
			if filled[i] {
				panic(fmt.Sprintf("estimation: merge index %d assigned twice", i))
			}
			out[i] = values[k]
			filled[i] = true
		}
	}
	place(exact, exactIndices)
	place(sampled, sampledIndices)
	return out
}
