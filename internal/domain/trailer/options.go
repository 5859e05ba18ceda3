package trailer

import (
	"fmt"
	"strings"

	"github.com/forPelevin/trailercut/internal/types"
)

// Strategy names a scene selection algorithm.
type Strategy string

const (
	// StrategyGreedy takes scenes best score first while they fit.
	StrategyGreedy Strategy = "greedy"
	// StrategyOptimal maximizes the summed positive score under the budget.
	StrategyOptimal Strategy = "optimal"
)

// ParseStrategy maps a flag value to a Strategy. Case and surrounding space
// are ignored and an empty value means greedy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyGreedy:
		return StrategyGreedy, nil
	case StrategyOptimal:
		return StrategyOptimal, nil
	default:
		return "", fmt.Errorf("unknown selection strategy %q (want greedy or optimal)", s)
	}
}

// Options tune Select beyond the budget.
type Options struct {
	Strategy Strategy

	// ExcludeUnscored drops scenes no transcript segment overlapped. When
	// false they take part in selection with their neutral 0 score.
	ExcludeUnscored bool
	// Counts are the per-scene overlap counts from ScoreScenesWithCounts.
	// Required when ExcludeUnscored is set.
	Counts []int
}

// Select applies the configured policy and strategy. Greedy is the default.
func Select(scenes []types.Scene, scores []float64, budget types.Budget, opts Options) ([]types.Scene, error) {
	if len(scenes) != len(scores) {
		return nil, fmt.Errorf("%w: %d scenes but %d scores", ErrInvalidInput, len(scenes), len(scores))
	}
	if opts.ExcludeUnscored {
		if len(opts.Counts) != len(scenes) {
			return nil, fmt.Errorf("%w: %d scenes but %d overlap counts", ErrInvalidInput, len(scenes), len(opts.Counts))
		}
		keptScenes := make([]types.Scene, 0, len(scenes))
		keptScores := make([]float64, 0, len(scores))
		for i, n := range opts.Counts {
			if n > 0 {
				keptScenes = append(keptScenes, scenes[i])
				keptScores = append(keptScores, scores[i])
			}
		}
		scenes, scores = keptScenes, keptScores
	}

	switch opts.Strategy {
	case "", StrategyGreedy:
		return SelectTopScenes(scenes, scores, budget)
	case StrategyOptimal:
		return SelectOptimal(scenes, scores, budget)
	default:
		return nil, fmt.Errorf("unknown selection strategy %q", opts.Strategy)
	}
}
