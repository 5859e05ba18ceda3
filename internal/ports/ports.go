package ports

import (
	"context"
	"time"

	"github.com/forPelevin/trailercut/internal/types"
)

type VideoTool interface {
	ExtractAudio(ctx context.Context, inVideo, outWav string) error
	SplitAudio(ctx context.Context, wav, outDir string, chunk time.Duration) ([]types.Chunk, error)
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
	RenderTrailer(ctx context.Context, inVideo string, plan types.Plan, outMP4, burnASS string) error
}

type SceneDetector interface {
	DetectScenes(ctx context.Context, inVideo string) ([]types.Scene, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

// SentimentScorer returns one signed score per text, in the same order.
type SentimentScorer interface {
	ScoreTexts(ctx context.Context, texts []string) ([]float64, error)
}
