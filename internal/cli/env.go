package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Env is the process environment the CLI reads, usually from .env.
type Env struct {
	OpenRouterAPIKey       string   `envconfig:"OPENROUTER_API_KEY" required:"true"`
	OpenRouterModel        string   `envconfig:"OPENROUTER_MODEL" default:"z-ai/glm-4.5-air:free"`
	OpenRouterBaseURL      string   `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai"`
	OpenRouterAllowedHosts []string `envconfig:"OPENROUTER_ALLOWED_HOSTS"`

	WhisperBin   string `envconfig:"WHISPER_BIN" default:".cache/bin/whisper.cpp"`
	WhisperModel string `envconfig:"WHISPER_MODEL" default:".cache/models/ggml-base.bin"`
	FFmpegPath   string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	FFprobePath  string `envconfig:"FFPROBE_PATH" default:"ffprobe"`

	CacheDir string `envconfig:"TRAILERCUT_CACHE_DIR" default:".cache"`
	Workers  int    `envconfig:"TRAILERCUT_WORKERS" default:"2"`
	// LogFile receives the adapters' JSON logs (ffmpeg commands and
	// timings). Empty keeps them on the console logger.
	LogFile string `envconfig:"TRAILERCUT_LOG_FILE"`
}

func loadEnv() (Env, error) {
	var e Env
	if err := envconfig.Process("", &e); err != nil {
		return Env{}, fmt.Errorf("env: %w (set it in .env)", err)
	}
	if strings.TrimSpace(e.OpenRouterAPIKey) == "" {
		return Env{}, errors.New("OPENROUTER_API_KEY is required (set it in .env)")
	}
	if e.Workers < 1 {
		return Env{}, fmt.Errorf("env: TRAILERCUT_WORKERS must be >= 1")
	}
	return e, nil
}
