package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/chat-api/internal/config"
)

// New constructs a zerolog logger based on level and format configuration.
// Unknown levels fall back to info; any format other than "json" writes human readable console output.
func New(cfg *config.Config) zerolog.Logger {
	return newWithWriter(cfg, os.Stdout)
}

func newWithWriter(cfg *config.Config, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var writer io.Writer = out
	if !strings.EqualFold(cfg.LogFormat, "json") {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	zerolog.SetGlobalLevel(lvl)
	return zerolog.New(writer).
		Level(lvl).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Logger()
}
