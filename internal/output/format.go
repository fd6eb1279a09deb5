// Package output renders command results as text or JSON.
// All commands write through a Formatter so --json behaves the same everywhere.
package output

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Format represents the output format type
type Format int

const (
	// FormatText is human-readable formatted text (default)
	FormatText Format = iota
	// FormatJSON is machine-readable JSON output
	FormatJSON
)

// String returns the string representation of the format
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	default:
		return "text"
	}
}

// Formatter handles output formatting for commands
type Formatter struct {
	format Format
	writer io.Writer
	pretty bool // For JSON: whether to indent
	color  bool
}

// New creates a new Formatter with the given options. Color defaults to on
// when the writer is a terminal and NO_COLOR is unset.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		format: FormatText,
		writer: os.Stdout,
		pretty: true,
	}
	f.color = ColorEnabled(f.writer)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Option is a functional option for Formatter
type Option func(*Formatter)

// WithJSON sets the output format to JSON
func WithJSON(enabled bool) Option {
	return func(f *Formatter) {
		if enabled {
			f.format = FormatJSON
		} else {
			f.format = FormatText
		}
	}
}

// WithWriter sets the output writer and re-detects color support
func WithWriter(w io.Writer) Option {
	return func(f *Formatter) {
		f.writer = w
		f.color = ColorEnabled(w)
	}
}

// WithPretty sets whether JSON should be indented
func WithPretty(pretty bool) Option {
	return func(f *Formatter) {
		f.pretty = pretty
	}
}

// WithColor forces color on or off
func WithColor(enabled bool) Option {
	return func(f *Formatter) {
		f.color = enabled
	}
}

// Format returns the current output format
func (f *Formatter) Format() Format {
	return f.format
}

// IsJSON returns true if the output format is JSON
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// Writer returns the output writer
func (f *Formatter) Writer() io.Writer {
	return f.writer
}

// UseColor reports whether text output is styled
func (f *Formatter) UseColor() bool {
	return f.color
}

// OutputData outputs either JSON or calls the text function
func (f *Formatter) OutputData(jsonData interface{}, textFn func(w io.Writer) error) error {
	if f.IsJSON() {
		return f.JSON(jsonData)
	}
	return textFn(f.writer)
}

// ColorEnabled reports whether w is a terminal that accepts ANSI colors
func ColorEnabled(w io.Writer) bool {
	if termenv.EnvNoColor() {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
