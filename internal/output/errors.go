package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Process exit codes
const (
	ExitOK       = 0
	ExitError    = 1
	ExitConfig   = 2
	ExitDelivery = 3
)

// CLIError represents a structured CLI error with remediation hints.
type CLIError struct {
	Message  string // What failed
	Cause    string // Why it failed (optional)
	Hint     string // Fastest command/action to fix it (optional)
	Code     string // Error code for programmatic handling (optional)
	ExitCode int
	Err      error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Cause != "" {
		return e.Message + ": " + e.Cause
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLI error with just a message.
func NewCLIError(msg string) *CLIError {
	return &CLIError{Message: msg, ExitCode: ExitError}
}

// WithCause adds a cause to the error.
func (e *CLIError) WithCause(cause string) *CLIError {
	e.Cause = cause
	return e
}

// WithHint adds a remediation hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// WithCode adds an error code to the error.
func (e *CLIError) WithCode(code string) *CLIError {
	e.Code = code
	return e
}

// WithExit sets the process exit code
func (e *CLIError) WithExit(code int) *CLIError {
	e.ExitCode = code
	return e
}

// Wrap keeps err as the cause
func (e *CLIError) Wrap(err error) *CLIError {
	e.Err = err
	if e.Cause == "" && err != nil {
		e.Cause = err.Error()
	}
	return e
}

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	causeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	codeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// FormatCLIError formats a CLIError for terminal output, styled when
// useColor is set.
func FormatCLIError(e *CLIError, useColor bool) string {
	render := func(s lipgloss.Style, text string) string {
		if useColor {
			return s.Render(text)
		}
		return text
	}

	var sb strings.Builder

	sb.WriteString(render(errorStyle, "Error: "))
	sb.WriteString(e.Message)
	if e.Code != "" {
		sb.WriteString(" ")
		sb.WriteString(render(codeStyle, "["+e.Code+"]"))
	}
	sb.WriteString("\n")

	if e.Cause != "" {
		sb.WriteString(render(causeStyle, "  Cause: "))
		sb.WriteString(e.Cause)
		sb.WriteString("\n")
	}

	if e.Hint != "" {
		sb.WriteString(render(hintStyle, "  Hint: "))
		sb.WriteString(e.Hint)
		sb.WriteString("\n")
	}

	return sb.String()
}

// PrintCLIError writes e to stderr as text, or to stdout as JSON
func PrintCLIError(stdout, stderr io.Writer, e *CLIError, jsonMode bool) error {
	if jsonMode {
		return WriteJSON(stdout, ErrorResponse{
			Error:   e.Message,
			Code:    e.Code,
			Details: e.Cause,
			Hint:    e.Hint,
		}, true)
	}
	_, err := fmt.Fprint(stderr, FormatCLIError(e, ColorEnabled(stderr)))
	return err
}

// Common error hints
var (
	HintConfigNotFound = "Run 'rulewatch config init' to create a default configuration"
	HintConfigInvalid  = "Check config syntax with 'rulewatch config show'"
	HintRulesInvalid   = "Run 'rulewatch rules validate' to see every problem"
	HintRuleNotFound   = "Run 'rulewatch rules list' to see available rules"
	HintDelivery       = "Check the alert channel settings in the config file"
)
