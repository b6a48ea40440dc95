package cli

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"quiz-leaderboard/internal/config"
)

func newLogger(cfg config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	if out == nil {
		out = os.Stderr
	}
	if cfg.Log.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "leaderboard").Logger()
}
