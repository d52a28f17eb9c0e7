package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger fields
const (
	COMPONENT = "component"
	LEAD      = "lead_id"
	EMAIL     = "email"
	KIND      = "kind"
	STATUS    = "status"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// Setup configures the global logger. Pretty output is meant for local
// development only.
func Setup(level string, pretty bool) {
	setup(os.Stdout, level, pretty)
}

func setup(w io.Writer, level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// Component returns a child of the global logger tagged with component={name}.
func Component(name string) zerolog.Logger {
	return log.With().Str(COMPONENT, name).Logger()
}
