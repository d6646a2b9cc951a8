package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mrz1836/mqomctl/internal/constants"
)

// Level determines the log level from the verbosity flags.
func Level(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// Console returns a human-friendly writer when f is a color-capable
// terminal and f itself (JSON lines) otherwise.
func Console(f *os.File) io.Writer {
	_, noColor := os.LookupEnv("NO_COLOR")
	if term.IsTerminal(int(f.Fd())) && !noColor { //nolint:gosec // fd fits in int
		return zerolog.ConsoleWriter{
			Out:        f,
			TimeFormat: time.Kitchen,
		}
	}
	return f
}

// filteringWriteCloser pairs a FilteringWriter with the closer of the
// file it wraps.
type filteringWriteCloser struct {
	*FilteringWriter
	closer io.Closer
}

// Close implements io.Closer.
func (fwc *filteringWriteCloser) Close() error {
	return fwc.closer.Close()
}

// RotatingFile opens a size-rotated log file at path, creating its
// directory. Escape sequences are stripped from every write.
func RotatingFile(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
		MaxAge:     constants.LogMaxAgeDays,
		Compress:   constants.LogCompress,
	}

	return &filteringWriteCloser{
		FilteringWriter: NewFilteringWriter(lj),
		closer:          lj,
	}, nil
}
