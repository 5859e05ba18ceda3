package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger: console output on stderr, debug level
// when verbose.
func Init(verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
		NoColor:    os.Getenv("NO_COLOR") != "",
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// New returns a logger writing JSON lines to w, or the global logger when w
// is nil.
func New(w io.Writer) zerolog.Logger {
	if w == nil {
		return log.Logger
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// Logf adapts a zerolog logger to the printf-style hook the pipeline takes.
func Logf(l zerolog.Logger) func(format string, args ...any) {
	return func(format string, args ...any) {
		l.Info().Msgf(format, args...)
	}
}
