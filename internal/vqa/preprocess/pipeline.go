package preprocess

import (
	"errors"
	"fmt"

	"github.com/jaskrrish/Go-VQA/internal/vqa/estimation"
)

// Grouping strategies
const (
	GroupingNone       = "none"
	GroupingIndividual = "individual"
	GroupingGreedy     = "greedy"
)

// Shot allocation strategies
const (
	ShotsNone         = "none"
	ShotsUniform      = "uniform"
	ShotsProportional = "proportional"
)

// ErrUnknownStrategy is returned for grouping or shot allocation names Pipeline does not know
var ErrUnknownStrategy = errors.New("unknown preprocessing strategy")

// Options selects the stages built by Pipeline
type Options struct {
	Grouping         string
	SortTerms        bool
	ContextSelection bool
	ShotAllocation   string
	Shots            int
	Priors           []float64
}

// Pipeline builds the stages selected by opts in the order grouping,
// context selection, shot allocation. Empty strategy names mean none.
func Pipeline(opts Options) ([]estimation.Preprocessor, error) {
	var stages []estimation.Preprocessor

	switch opts.Grouping {
	case "", GroupingNone:
	case GroupingIndividual:
		stages = append(stages, GroupIndividually)
	case GroupingGreedy:
		stages = append(stages, GroupGreedily(opts.SortTerms))
	default:
		return nil, fmt.Errorf("%w: grouping %q", ErrUnknownStrategy, opts.Grouping)
	}

	if opts.ContextSelection {
		stages = append(stages, PerformContextSelection)
	}

	switch opts.ShotAllocation {
	case "", ShotsNone:
	case ShotsUniform:
		if opts.Shots <= 0 {
			return nil, fmt.Errorf("%w: uniform allocation needs a positive number of shots", ErrInvalidShotBudget)
		}
		stages = append(stages, AllocateShotsUniformly(opts.Shots))
	case ShotsProportional:
		if opts.Shots <= 0 {
			return nil, fmt.Errorf("%w: proportional allocation needs a positive total number of shots", ErrInvalidShotBudget)
		}
		stages = append(stages, AllocateShotsProportionally(opts.Shots, opts.Priors))
	default:
		return nil, fmt.Errorf("%w: shot allocation %q", ErrUnknownStrategy, opts.ShotAllocation)
	}

	return stages, nil
}
