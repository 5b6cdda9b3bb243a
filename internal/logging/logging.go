package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/mossy-p/meet-signaling/config"
)

// New builds the process logger: human-readable console output in
// development, JSON lines in production.
func New(cfg *config.Config) zerolog.Logger {
	var w io.Writer = os.Stdout
	if !cfg.IsProduction() {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(w).Level(cfg.LogLevel).With().Timestamp()
	if !cfg.IsProduction() {
		l = l.Caller()
	}
	return l.Logger()
}
