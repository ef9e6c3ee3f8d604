package estimation

// Preprocessor transforms a list of tasks into a new list of tasks.
// The output may be longer or shorter than the input; input tasks are never modified.
type Preprocessor func([]Task) ([]Task, error)

// ApplyPreprocessors runs the preprocessors in order, each consuming the previous output.
// The first error aborts the run and no tasks are returned.
//
// Order is not checked. Grouping must come before context selection, which must
// come before shot allocation, or the estimates are silently wrong.
func ApplyPreprocessors(tasks []Task, preprocessors ...Preprocessor) ([]Task, error) {
	current := tasks
	for _, preprocess := range preprocessors {
		next, err := preprocess(current)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}
