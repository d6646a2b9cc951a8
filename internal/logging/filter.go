// Package logging provides the writers behind the CLI logger: a rotating
// log file and a filter that keeps terminal control sequences out of it.
//
// Toolchain and valgrind output is logged verbatim at debug level. Compilers
// color their diagnostics when they think they talk to a terminal, so the
// file writer strips escape sequences before anything reaches disk.
package logging

import (
	"io"
	"regexp"
)

// escapeSequence matches CSI sequences (colors, cursor moves) and OSC
// sequences (hyperlinks, titles) terminated by BEL or ST.
//
//nolint:gochecknoglobals // Compiled once
var escapeSequence = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)

// StripANSI removes terminal escape sequences from s.
func StripANSI(s string) string {
	return escapeSequence.ReplaceAllString(s, "")
}

// ContainsANSI reports whether s holds a terminal escape sequence.
func ContainsANSI(s string) bool {
	return escapeSequence.MatchString(s)
}

// FilteringWriter wraps an io.Writer and strips escape sequences from
// everything written through it.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter creates a FilteringWriter around w.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write implements io.Writer. It reports len(p) on success so callers do
// not treat the removed bytes as a short write.
func (fw *FilteringWriter) Write(p []byte) (int, error) {
	filtered := escapeSequence.ReplaceAll(p, nil)
	if _, err := fw.w.Write(filtered); err != nil {
		return 0, err
	}
	return len(p), nil
}
