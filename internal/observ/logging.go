package observ

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging configures the global zerolog logger. Level is one of
// trace|debug|info|warn|error; console enables the human-readable writer,
// otherwise output is JSON lines for external consumption.
func SetupLogging(level string, console bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer = os.Stdout
	if console {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.StampMilli}
	}
	log.Logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
