package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/mrz1836/mqomctl/internal/errors"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Output provides methods for structured output to a terminal or a pipe.
type Output interface {
	// Success prints a success message.
	Success(msg string)
	// Error prints an error, with a suggested action when one is known.
	Error(err error)
	// Warning prints a warning message.
	Warning(msg string)
	// Info prints an informational message.
	Info(msg string)
	// Table prints rows under the given headers.
	Table(headers []string, rows [][]string)
	// JSON outputs a value as formatted JSON.
	JSON(v any) error
}

// ValidateFormat reports ErrInvalidOutputFormat for anything but text or json.
func ValidateFormat(format string) error {
	switch strings.ToLower(format) {
	case "", FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("%w: %q (want %s or %s)", errors.ErrInvalidOutputFormat, format, FormatText, FormatJSON)
	}
}

// NewOutput creates the appropriate output based on format.
func NewOutput(w io.Writer, format string) Output {
	if strings.EqualFold(format, FormatJSON) {
		return NewJSONOutput(w)
	}
	return NewTTYOutput(w)
}
