package trailer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/forPelevin/trailercut/internal/types"
)

// ErrInvalidInput reports a precondition violation such as index-aligned
// slices of different lengths.
var ErrInvalidInput = errors.New("invalid input")

// AttachScores pairs transcript segments with their sentiment scores.
func AttachScores(segs []types.Segment, scores []float64) ([]types.ScoredSegment, error) {
	if len(segs) != len(scores) {
		return nil, fmt.Errorf("%w: %d segments but %d scores", ErrInvalidInput, len(segs), len(scores))
	}
	out := make([]types.ScoredSegment, len(segs))
	for i, s := range segs {
		out[i] = types.ScoredSegment{Segment: s, Score: scores[i]}
	}
	return out, nil
}

// ScoreScenes returns, for every scene in order, the mean score of the
// segments overlapping it. A scene no segment overlaps scores 0.
func ScoreScenes(scenes []types.Scene, segs []types.ScoredSegment) []float64 {
	scores, _ := ScoreScenesWithCounts(scenes, segs)
	return scores
}

// ScoreScenesWithCounts is ScoreScenes that also reports how many segments
// overlapped each scene.
func ScoreScenesWithCounts(scenes []types.Scene, segs []types.ScoredSegment) ([]float64, []int) {
	ix := newSegmentIndex(segs)
	scores := make([]float64, len(scenes))
	counts := make([]int, len(scenes))
	for i, sc := range scenes {
		scores[i], counts[i] = ix.score(sc)
	}
	return scores, counts
}

// ScoreScenesParallel splits the per-scene scan across workers goroutines.
// The result is identical to ScoreScenes.
func ScoreScenesParallel(scenes []types.Scene, segs []types.ScoredSegment, workers int) []float64 {
	if workers <= 1 || len(scenes) < 2*workers {
		return ScoreScenes(scenes, segs)
	}
	ix := newSegmentIndex(segs)
	scores := make([]float64, len(scenes))
	step := (len(scenes) + workers - 1) / workers

	var wg sync.WaitGroup
	for lo := 0; lo < len(scenes); lo += step {
		hi := min(lo+step, len(scenes))
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				scores[i], _ = ix.score(scenes[i])
			}
		}(lo, hi)
	}
	wg.Wait()
	return scores
}

// segmentIndex holds segments sorted by start together with the running
// maximum of their ends, so a lookup can skip everything that ends before a
// scene starts and everything that starts after it ends.
type segmentIndex struct {
	segs   []types.ScoredSegment
	maxEnd []float64
}

func newSegmentIndex(segs []types.ScoredSegment) segmentIndex {
	sorted := append([]types.ScoredSegment(nil), segs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	maxEnd := make([]float64, len(sorted))
	for i, s := range sorted {
		maxEnd[i] = s.End
		if i > 0 && maxEnd[i-1] > maxEnd[i] {
			maxEnd[i] = maxEnd[i-1]
		}
	}
	return segmentIndex{segs: sorted, maxEnd: maxEnd}
}

func (ix segmentIndex) score(sc types.Scene) (float64, int) {
	// segments before lo all end at or before the scene start
	lo := sort.Search(len(ix.maxEnd), func(i int) bool { return ix.maxEnd[i] > sc.Start })
	// segments from hi on all start at or after the scene end
	hi := sort.Search(len(ix.segs), func(i int) bool { return ix.segs[i].Start >= sc.End })

	var sum float64
	n := 0
	for i := lo; i < hi; i++ {
		if Overlaps(ix.segs[i].Segment, sc) {
			sum += ix.segs[i].Score
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// Overlaps is the half-open interval test. Shared endpoints never overlap,
// and neither does a segment with End <= Start.
func Overlaps(seg types.Segment, sc types.Scene) bool {
	return seg.End > seg.Start && seg.Start < sc.End && seg.End > sc.Start
}
