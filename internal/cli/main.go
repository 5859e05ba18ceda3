package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/trailercut/internal/ports/adapters/ffmpeg"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "trailercut <input>",
		Short:        "Cut a sentiment-driven trailer from a local video",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Visible flags
	root.Flags().String("out", "out", "Output directory")
	root.Flags().Float64("duration", 60, "Trailer duration budget in seconds")
	root.Flags().String("strategy", "greedy", "Scene selection strategy: greedy or optimal")
	root.Flags().Bool("exclude-unscored", false, "Skip scenes without any transcribed speech")
	root.Flags().Bool("subtitles", false, "Burn transcript subtitles into the trailer")
	root.Flags().BoolP("verbose", "v", false, "Debug logging")

	// Hidden tuning flags (internal)
	root.Flags().Int("chunk", 600, "Audio chunk length seconds for transcription")
	root.Flags().Float64("scene-threshold", ffmpeg.DefaultSceneThreshold, "ffmpeg scene change threshold")
	_ = root.Flags().MarkHidden("chunk")
	_ = root.Flags().MarkHidden("scene-threshold")

	return root
}
