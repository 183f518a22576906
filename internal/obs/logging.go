package obs

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NewLogger configures a zerolog logger writing to w using the provided format and level.
// A nil writer logs to stderr; an unknown level falls back to warn.
func NewLogger(w io.Writer, format, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}

	if w == nil {
		w = os.Stderr
	}
	out := w
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// WithRun tags every event with a fresh run identifier.
func WithRun(logger zerolog.Logger) (zerolog.Logger, string) {
	runID := uuid.NewString()
	return logger.With().Str("run_id", runID).Logger(), runID
}

// Component returns a child logger named after a pipeline stage.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
