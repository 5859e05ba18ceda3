package trailer

import (
	"fmt"
	"sort"

	"github.com/forPelevin/trailercut/internal/types"
)

// SelectTopScenes picks scenes highest score first, keeping each one that
// still fits in the budget, and returns the picks in chronological order.
//
// This is first-fit greedy, not an optimal subset: a skipped scene is never
// reconsidered and no earlier pick is ever undone to make room. Equal
// scores keep their input order. A scene with End <= Start costs nothing
// and always fits.
func SelectTopScenes(scenes []types.Scene, scores []float64, budget types.Budget) ([]types.Scene, error) {
	if len(scenes) != len(scores) {
		return nil, fmt.Errorf("%w: %d scenes but %d scores", ErrInvalidInput, len(scenes), len(scores))
	}
	if budget.MaxTotalDuration <= 0 || len(scenes) == 0 {
		return nil, nil
	}

	ranked := rank(scenes, scores)

	var picked []types.Scene
	var total float64
	for _, c := range ranked {
		d := c.Duration()
		if total+d <= budget.MaxTotalDuration {
			picked = append(picked, c.Scene)
			total += d
		}
	}
	sortChronological(picked)
	return picked, nil
}

// rank pairs scenes with scores, best first. The sort is stable so ties keep
// their original relative order.
func rank(scenes []types.Scene, scores []float64) []types.ScoredScene {
	out := make([]types.ScoredScene, len(scenes))
	for i := range scenes {
		out[i] = types.ScoredScene{Scene: scenes[i], Score: scores[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func sortChronological(scenes []types.Scene) {
	sort.SliceStable(scenes, func(i, j int) bool { return scenes[i].Start < scenes[j].Start })
}
