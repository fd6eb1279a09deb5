// Package logging builds the zerolog logger shared by every component.
// Loggers are passed explicitly; nothing here is global.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// FailLevel is the level name written for failed checks. It sits outside
// zerolog's severity scale so failures are always emitted.
const FailLevel = "fail"

// Options configures New
type Options struct {
	// Debug lowers the minimum level to debug
	Debug bool
	// JSON writes JSON lines instead of the console format
	JSON bool
	// NoColor disables ANSI colors in console output
	NoColor bool
	// Writer defaults to os.Stderr
	Writer io.Writer
}

// New creates a logger with a timestamp on every line
func New(opts Options) zerolog.Logger {
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}

	if !opts.JSON {
		out = zerolog.ConsoleWriter{
			Out:         out,
			TimeFormat:  "15:04:05",
			NoColor:     opts.NoColor,
			FormatLevel: formatLevel(opts.NoColor),
		}
	}

	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Fail starts a fail-level event: a check or rule that did not pass
func Fail(l *zerolog.Logger) *zerolog.Event {
	return l.Log().Str(zerolog.LevelFieldName, FailLevel)
}

// WithRun returns a logger tagged with the run identifier
func WithRun(l zerolog.Logger, runID string) zerolog.Logger {
	return l.With().Str("run_id", runID).Logger()
}

// WithComponent returns a logger with a component field
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

// formatLevel renders levels like "INF" and the fail level as "FAIL"
func formatLevel(noColor bool) zerolog.Formatter {
	return func(i interface{}) string {
		s, _ := i.(string)
		if s == FailLevel {
			if noColor {
				return "FAIL"
			}
			return "\x1b[1;31mFAIL\x1b[0m"
		}
		lvl, err := zerolog.ParseLevel(s)
		if err != nil || s == "" {
			return "???"
		}
		if noColor {
			return strings.ToUpper(lvl.String())[:3]
		}
		color, ok := levelColors[lvl]
		if !ok {
			return strings.ToUpper(lvl.String())[:3]
		}
		return "\x1b[" + color + "m" + strings.ToUpper(lvl.String())[:3] + "\x1b[0m"
	}
}

var levelColors = map[zerolog.Level]string{
	zerolog.TraceLevel: "35",
	zerolog.DebugLevel: "33",
	zerolog.InfoLevel:  "32",
	zerolog.WarnLevel:  "31",
	zerolog.ErrorLevel: "1;31",
	zerolog.FatalLevel: "1;31",
	zerolog.PanicLevel: "1;31",
}
