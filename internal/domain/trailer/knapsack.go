package trailer

import (
	"fmt"
	"math"

	"github.com/forPelevin/trailercut/internal/types"
)

// OptimalResolution is the duration quantum, in seconds, SelectOptimal
// rounds scene lengths up to.
const OptimalResolution = 0.1

// maxKnapsackCells caps the DP table; the quantum is coarsened until the
// table fits.
const maxKnapsackCells = 16 << 20

// SelectOptimal solves the 0/1 knapsack exactly over quantized durations:
// it maximizes the summed score of positively scored scenes within the
// budget. Durations are rounded up, so the real total never exceeds the
// budget. The result is chronological.
func SelectOptimal(scenes []types.Scene, scores []float64, budget types.Budget) ([]types.Scene, error) {
	if len(scenes) != len(scores) {
		return nil, fmt.Errorf("%w: %d scenes but %d scores", ErrInvalidInput, len(scenes), len(scores))
	}
	if budget.MaxTotalDuration <= 0 || len(scenes) == 0 {
		return nil, nil
	}

	var items []int
	for i, s := range scores {
		if s > 0 {
			items = append(items, i)
		}
	}
	if len(items) == 0 {
		return nil, nil
	}

	total := 0.0
	for _, i := range items {
		total += scenes[i].Duration()
	}
	if total <= budget.MaxTotalDuration {
		// everything fits, including an infinite budget
		picked := make([]types.Scene, 0, len(items))
		for _, i := range items {
			picked = append(picked, scenes[i])
		}
		sortChronological(picked)
		return picked, nil
	}

	// below total, so the table size stays finite
	limit := budget.MaxTotalDuration
	res := OptimalResolution
	for float64(len(items))*(limit/res+1) > maxKnapsackCells {
		res *= 2
	}
	capacity := quantize(limit, res, math.Floor)

	weights := make([]int, len(items))
	for k, i := range items {
		weights[k] = quantize(scenes[i].Duration(), res, math.Ceil)
	}

	best := make([]float64, capacity+1)
	keep := make([][]bool, len(items))
	for k, i := range items {
		keep[k] = make([]bool, capacity+1)
		w, v := weights[k], scores[i]
		for c := capacity; c >= w; c-- {
			// strict improvement only, so ties keep the earlier scenes
			if best[c-w]+v > best[c] {
				best[c] = best[c-w] + v
				keep[k][c] = true
			}
		}
	}

	var chosen []int
	c := capacity
	for k := len(items) - 1; k >= 0; k-- {
		if keep[k][c] {
			chosen = append(chosen, items[k])
			c -= weights[k]
		}
	}
	chosen = trimToBudget(chosen, scenes, scores, budget.MaxTotalDuration)

	picked := make([]types.Scene, 0, len(chosen))
	for _, i := range chosen {
		picked = append(picked, scenes[i])
	}
	sortChronological(picked)
	return picked, nil
}

// quantize converts seconds to whole quanta. Values within float noise of
// an integer snap to it before round is applied.
func quantize(sec, res float64, round func(float64) float64) int {
	q := sec / res
	if r := math.Round(q); math.Abs(q-r) < 1e-6 {
		return int(r)
	}
	return int(round(q))
}

// trimToBudget drops the lowest scored picks while the real total is over
// budget. Snapping in quantize can leave it over by float noise.
func trimToBudget(chosen []int, scenes []types.Scene, scores []float64, budget float64) []int {
	total := 0.0
	for _, i := range chosen {
		total += scenes[i].Duration()
	}
	for total > budget && len(chosen) > 0 {
		worst := 0
		for k, i := range chosen {
			if scores[i] < scores[chosen[worst]] {
				worst = k
			}
		}
		total -= scenes[chosen[worst]].Duration()
		chosen = append(chosen[:worst], chosen[worst+1:]...)
	}
	return chosen
}
