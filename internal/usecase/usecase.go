package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/trailercut/internal/domain/subtitles"
	"github.com/forPelevin/trailercut/internal/domain/trailer"
	"github.com/forPelevin/trailercut/internal/ports"
	"github.com/forPelevin/trailercut/internal/types"
)

// ErrNothingSelected is returned when no scene with a positive duration fits
// the budget, so there is nothing to render.
var ErrNothingSelected = errors.New("no scenes fit the trailer budget")

const (
	TrailerFile   = "trailer.mp4"
	SubtitlesFile = "trailer.ass"
)

type Deps struct {
	Video     ports.VideoTool
	Scenes    ports.SceneDetector
	ASR       ports.ASR
	Sentiment ports.SentimentScorer
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	InputVideo      string
	Budget          types.Budget
	Strategy        trailer.Strategy
	ExcludeUnscored bool
	BurnSubtitles   bool
	ChunkLen        time.Duration
	Workers         int
	CacheDir        string
	OutDir          string

	Logf    func(format string, args ...any)
	OnChunk func(done, total int)
}

type Result struct {
	Manifest   types.Manifest
	Transcript types.Transcript
	Plan       types.Plan
}

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	logf := in.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	workers := in.Workers
	if workers <= 0 {
		workers = 1
	}

	tr, err := u.transcribe(ctx, in, workers, logf)
	if err != nil {
		return Result{}, err
	}
	logf("transcribed %d segments", len(tr.Segments))

	scenes, err := u.d.Scenes.DetectScenes(ctx, in.InputVideo)
	if err != nil {
		return Result{}, err
	}
	logf("detected %d scenes", len(scenes))

	texts := make([]string, len(tr.Segments))
	for i, s := range tr.Segments {
		texts[i] = s.Text
	}
	sentiment, err := u.d.Sentiment.ScoreTexts(ctx, texts)
	if err != nil {
		return Result{}, fmt.Errorf("score segments: %w", err)
	}
	scored, err := trailer.AttachScores(tr.Segments, sentiment)
	if err != nil {
		return Result{}, fmt.Errorf("score segments: %w", err)
	}

	opts := trailer.Options{Strategy: in.Strategy, ExcludeUnscored: in.ExcludeUnscored}
	var sceneScores []float64
	if in.ExcludeUnscored {
		sceneScores, opts.Counts = trailer.ScoreScenesWithCounts(scenes, scored)
	} else {
		sceneScores = trailer.ScoreScenesParallel(scenes, scored, workers)
	}

	picked, err := trailer.Select(scenes, sceneScores, in.Budget, opts)
	if err != nil {
		return Result{}, err
	}
	plan := types.Plan{}
	for _, sc := range picked {
		if sc.Duration() > 0 {
			plan.Scenes = append(plan.Scenes, sc)
		}
	}
	logf("selected %d scenes with total duration %.2fs", len(plan.Scenes), plan.TotalDuration())
	if len(plan.Scenes) == 0 {
		return Result{}, ErrNothingSelected
	}

	outMP4 := filepath.Join(in.OutDir, TrailerFile)
	burnASS := ""
	if in.BurnSubtitles {
		ass, err := subtitles.RenderTrailerASS(tr.Segments, plan)
		if err != nil {
			return Result{}, err
		}
		burnASS = filepath.Join(in.OutDir, SubtitlesFile)
		if err := writeFile(burnASS, []byte(ass)); err != nil {
			return Result{}, err
		}
	}

	if err := u.d.Video.RenderTrailer(ctx, in.InputVideo, plan, outMP4, burnASS); err != nil {
		return Result{}, err
	}
	if d, err := u.d.Video.ProbeDuration(ctx, outMP4); err == nil {
		logf("rendered %s (%.2fs)", outMP4, d.Seconds())
	}

	return Result{
		Manifest:   buildManifest(in, plan, scenes, sceneScores, tr, burnASS != ""),
		Transcript: tr,
		Plan:       plan,
	}, nil
}

// transcribe extracts the audio track, splits it into chunks and runs ASR on
// them concurrently. Segment times are shifted by each chunk's offset, so the
// result is on the source timeline. Audio files are removed afterwards.
func (u Usecase) transcribe(ctx context.Context, in Input, workers int, logf func(string, ...any)) (types.Transcript, error) {
	wav := filepath.Join(in.CacheDir, "audio.wav")
	if err := u.d.Video.ExtractAudio(ctx, in.InputVideo, wav); err != nil {
		return types.Transcript{}, err
	}
	defer removeQuiet(wav, logf)

	chunks, err := u.d.Video.SplitAudio(ctx, wav, in.CacheDir, in.ChunkLen)
	if err != nil {
		return types.Transcript{}, err
	}
	if len(chunks) == 0 {
		chunks = []types.Chunk{{Path: wav}}
	}
	logf("transcribing %d audio chunks with %d workers", len(chunks), workers)

	parts := make([][]types.Segment, len(chunks))
	done := make(chan struct{}, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range chunks {
		g.Go(func() error {
			defer func() { done <- struct{}{} }()
			tr, err := u.d.ASR.Transcribe(gctx, c.Path, in.CacheDir)
			if err != nil {
				return fmt.Errorf("transcribe chunk %d: %w", i, err)
			}
			segs := make([]types.Segment, 0, len(tr.Segments))
			for _, s := range tr.Segments {
				s.Start += c.Offset
				s.End += c.Offset
				segs = append(segs, s)
			}
			parts[i] = segs
			return nil
		})
	}

	progress := make(chan struct{})
	go func() {
		defer close(progress)
		for n := 1; n <= len(chunks); n++ {
			<-done
			if in.OnChunk != nil {
				in.OnChunk(n, len(chunks))
			}
		}
	}()
	err = g.Wait()
	<-progress

	for _, c := range chunks {
		if c.Path != wav {
			removeQuiet(c.Path, logf)
		}
	}
	if err != nil {
		return types.Transcript{}, err
	}

	var tr types.Transcript
	for _, p := range parts {
		tr.Segments = append(tr.Segments, p...)
	}
	return tr, nil
}

func buildManifest(in Input, plan types.Plan, scenes []types.Scene, scores []float64, tr types.Transcript, withSubs bool) types.Manifest {
	strategy := in.Strategy
	if strategy == "" {
		strategy = trailer.StrategyGreedy
	}
	m := types.Manifest{
		Input:         in.InputVideo,
		File:          TrailerFile,
		Strategy:      string(strategy),
		BudgetSec:     in.Budget.MaxTotalDuration,
		TotalSec:      plan.TotalDuration(),
		ScenesScanned: len(scenes),
	}
	if withSubs {
		m.Subtitles = SubtitlesFile
	}

	scoreOf := make(map[types.Scene]float64, len(scenes))
	for i, sc := range scenes {
		scoreOf[sc] = scores[i]
	}
	for i, sc := range plan.Scenes {
		m.Scenes = append(m.Scenes, types.ManifestScene{
			ID:       fmt.Sprintf("%03d", i+1),
			StartSec: sc.Start,
			EndSec:   sc.End,
			Score:    scoreOf[sc],
			Text:     sceneText(tr.Segments, sc),
		})
	}
	return m
}

func sceneText(segs []types.Segment, sc types.Scene) string {
	var parts []string
	for _, s := range segs {
		if trailer.Overlaps(s, sc) {
			if t := strings.TrimSpace(s.Text); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, " ")
}

func writeFile(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func removeQuiet(path string, logf func(string, ...any)) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logf("cleanup %s: %v", path, err)
	}
}
