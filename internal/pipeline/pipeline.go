package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/forPelevin/trailercut/internal/domain/trailer"
	"github.com/forPelevin/trailercut/internal/ports"
	"github.com/forPelevin/trailercut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/trailercut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/trailercut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/trailercut/internal/types"
	"github.com/forPelevin/trailercut/internal/usecase"
)

const DefaultChunk = 600 * time.Second

type Config struct {
	InputVideo      string `validate:"required"`
	OutDir          string
	Duration        time.Duration `validate:"gt=0"`
	Strategy        string
	ExcludeUnscored bool
	BurnSubtitles   bool
	Chunk           time.Duration `validate:"gte=0"`
	SceneThreshold  float64       `validate:"gte=0,lt=1"`
	Workers         int

	Logf    func(format string, args ...any)
	OnChunk func(done, total int)
	// Logger backs the adapters' structured logs. Zero value discards.
	Logger zerolog.Logger

	// CacheDir is the base directory for local artifacts (audio, transcripts, etc.).
	// If empty, defaults to ".cache".
	CacheDir string

	FFmpegPath  string
	FFprobePath string

	WhisperBin   string
	WhisperModel string `validate:"required"`

	OpenRouterAPIKey       string `validate:"required"`
	OpenRouterModel        string
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string
}

var validate = validator.New()

var fieldMessages = map[string]string{
	"InputVideo":       "input is empty",
	"Duration":         "duration must be > 0",
	"Chunk":            "chunk must be >= 0",
	"SceneThreshold":   "scene threshold must be in [0,1)",
	"WhisperModel":     "whisper model path is required",
	"OpenRouterAPIKey": "openrouter api key is required",
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return firstViolation(err)
	}
	if _, err := os.Stat(c.InputVideo); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if _, err := trailer.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	return openrouter.ValidateBaseURL(
		c.OpenRouterBaseURL,
		c.OpenRouterAllowedHosts,
	)
}

// firstViolation reports the first failing field the way the CLI prints it.
func firstViolation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	if msg, ok := fieldMessages[verrs[0].StructField()]; ok {
		return errors.New(msg)
	}
	return fmt.Errorf("invalid %s (%s)", verrs[0].Field(), verrs[0].Tag())
}

// Run executes one trailer job and returns the manifest it wrote.
func Run(ctx context.Context, cfg Config) (types.Manifest, error) {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	strategy, err := trailer.ParseStrategy(cfg.Strategy)
	if err != nil {
		return types.Manifest{}, err
	}
	chunk := cfg.Chunk
	if chunk == 0 {
		chunk = DefaultChunk
	}

	// adapters
	v := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath, cfg.Logger)
	if cfg.SceneThreshold > 0 {
		v.SceneThreshold = cfg.SceneThreshold
	}
	asr := whispercpp.New(cfg.WhisperBin, cfg.WhisperModel)
	sent := openrouter.New(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterBaseURL)

	uc := usecase.New(usecase.Deps{
		Video:     v,
		Scenes:    v,
		ASR:       asr,
		Sentiment: sent,
	})

	jobID := hash(cfg.InputVideo)
	baseCache := cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	cacheDir := filepath.Join(baseCache, "runs", jobID)
	logf("preparing workspace")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return types.Manifest{}, err
	}
	logf("cache: %s", cacheDir)

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runOutDir := buildRunOutDir(outDir, cfg.InputVideo, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return types.Manifest{}, err
	}
	logf("output run dir: %s", runOutDir)

	res, err := uc.Run(ctx, usecase.Input{
		InputVideo:      cfg.InputVideo,
		Budget:          types.Budget{MaxTotalDuration: cfg.Duration.Seconds()},
		Strategy:        strategy,
		ExcludeUnscored: cfg.ExcludeUnscored,
		BurnSubtitles:   cfg.BurnSubtitles,
		ChunkLen:        chunk,
		Workers:         cfg.Workers,
		CacheDir:        cacheDir,
		OutDir:          runOutDir,
		Logf:            logf,
		OnChunk:         cfg.OnChunk,
	})
	if err != nil {
		return types.Manifest{}, err
	}

	b, err := json.MarshalIndent(res.Manifest, "", "  ")
	if err != nil {
		return types.Manifest{}, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return types.Manifest{}, err
	}
	logf("manifest written (%d scenes): %s", len(res.Manifest.Scenes), manifestPath)

	m := res.Manifest
	m.File = filepath.Join(runOutDir, m.File)
	if m.Subtitles != "" {
		m.Subtitles = filepath.Join(runOutDir, m.Subtitles)
	}
	return m, nil
}

func buildRunOutDir(outRoot, inputVideo string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(inputVideo), filepath.Ext(inputVideo))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", inputVideo, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.SceneDetector = (*ffmpeg.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
var _ ports.SentimentScorer = (*openrouter.Adapter)(nil)
