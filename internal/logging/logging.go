// Package logging builds the structured zerolog logger shared by every
// component.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	Level  string // debug|info|warn|error
	Pretty bool   // console-writer output instead of JSON
}

// New builds a zerolog.Logger tagged with service=amora-bridge, timestamped
// and with caller info.
func New(opts Options) zerolog.Logger {
	var output io.Writer = os.Stdout
	if opts.Pretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	zerolog.SetGlobalLevel(parseLevel(opts.Level))

	return zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Str("service", "amora-bridge").
		Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
