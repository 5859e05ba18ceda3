package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/forPelevin/trailercut/internal/logging"
	"github.com/forPelevin/trailercut/internal/pipeline"
)

func run(cmd *cobra.Command, input string) error {
	outDir, _ := cmd.Flags().GetString("out")
	durSec, _ := cmd.Flags().GetFloat64("duration")
	strategy, _ := cmd.Flags().GetString("strategy")
	excludeUnscored, _ := cmd.Flags().GetBool("exclude-unscored")
	burnSubtitles, _ := cmd.Flags().GetBool("subtitles")
	verbose, _ := cmd.Flags().GetBool("verbose")
	chunkSec, _ := cmd.Flags().GetInt("chunk")
	sceneThreshold, _ := cmd.Flags().GetFloat64("scene-threshold")

	logging.Init(verbose)

	env, err := loadEnv()
	if err != nil {
		return err
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	adapterLog, closeLog, err := adapterLogger(env.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
	defer cancel()

	rep := newReporter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	cfg := pipeline.Config{
		InputVideo:      absIn,
		OutDir:          outDir,
		Duration:        time.Duration(durSec * float64(time.Second)),
		Strategy:        strategy,
		ExcludeUnscored: excludeUnscored,
		BurnSubtitles:   burnSubtitles,
		Chunk:           time.Duration(chunkSec) * time.Second,
		SceneThreshold:  sceneThreshold,
		Workers:         env.Workers,

		Logf:    logging.Logf(logging.WithComponent("pipeline")),
		OnChunk: rep.chunkDone,
		Logger:  adapterLog,

		CacheDir: env.CacheDir,

		FFmpegPath:  env.FFmpegPath,
		FFprobePath: env.FFprobePath,

		WhisperBin:   env.WhisperBin,
		WhisperModel: env.WhisperModel,

		OpenRouterAPIKey:       env.OpenRouterAPIKey,
		OpenRouterModel:        env.OpenRouterModel,
		OpenRouterBaseURL:      env.OpenRouterBaseURL,
		OpenRouterAllowedHosts: env.OpenRouterAllowedHosts,
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	m, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}
	rep.summary(m)
	return nil
}

// adapterLogger opens path for appending and logs JSON lines into it. With no
// path the console logger is used and close is a no-op.
func adapterLogger(path string) (zerolog.Logger, func(), error) {
	if path == "" {
		return log.Logger, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("open TRAILERCUT_LOG_FILE: %w", err)
	}
	return logging.New(f), func() { _ = f.Close() }, nil
}
