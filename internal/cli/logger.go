package cli

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrz1836/mqomctl/internal/config"
	"github.com/mrz1836/mqomctl/internal/constants"
	"github.com/mrz1836/mqomctl/internal/logging"
)

// logFileWriter holds the log file writer for cleanup purposes.
var (
	logFileWriter   io.WriteCloser //nolint:gochecknoglobals // Needed for cleanup
	logFileWriterMu sync.Mutex     //nolint:gochecknoglobals // Protects logFileWriter
)

// zerologGlobalMu protects concurrent writes to the zerolog global logger.
// This is separate from globalLoggerMu to avoid deadlocks.
var zerologGlobalMu sync.Mutex //nolint:gochecknoglobals // Protects zerolog global

// InitLogger creates and configures a zerolog.Logger based on verbosity flags.
//
// Log levels are set as follows:
//   - verbose=true: Debug level (most detailed)
//   - quiet=true: Warn level (errors and warnings only)
//   - default: Info level (normal operation)
//
// Console output is human-friendly on a color terminal and JSON otherwise.
// The logger also writes to ~/.mqomctl/logs/mqomctl.log with rotation
// enabled; if that file cannot be opened the logger continues with console
// output only. Every entry carries the run_id of this invocation.
func InitLogger(verbose, quiet bool) zerolog.Logger {
	var writer io.Writer = logging.Console(os.Stderr)

	if fileWriter, err := openLogFile(); err == nil {
		logFileWriterMu.Lock()
		if logFileWriter != nil {
			_ = logFileWriter.Close()
		}
		logFileWriter = fileWriter
		logFileWriterMu.Unlock()
		writer = zerolog.MultiLevelWriter(writer, fileWriter)
	}

	logger := newLogger(verbose, quiet, writer)
	setGlobalLogger(logger)
	return logger
}

// InitLoggerWithWriter creates and configures a zerolog.Logger with a custom writer.
// This is primarily intended for testing purposes.
func InitLoggerWithWriter(verbose, quiet bool, w io.Writer) zerolog.Logger {
	logger := newLogger(verbose, quiet, w)
	setGlobalLogger(logger)
	return logger
}

func newLogger(verbose, quiet bool, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(logging.Level(verbose, quiet)).
		With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()
}

// setGlobalLogger configures the global zerolog logger to match our CLI logger config.
// This function is safe for concurrent use.
func setGlobalLogger(cliLogger zerolog.Logger) {
	zerologGlobalMu.Lock()
	defer zerologGlobalMu.Unlock()
	log.Logger = cliLogger
}

func openLogFile() (io.WriteCloser, error) {
	path, err := LogFilePath()
	if err != nil {
		return nil, err
	}
	return logging.RotatingFile(path)
}

// CloseLogFile closes the global log file writer if it was opened.
// This should be called during application shutdown for clean cleanup.
func CloseLogFile() {
	logFileWriterMu.Lock()
	defer logFileWriterMu.Unlock()
	if logFileWriter != nil {
		_ = logFileWriter.Close()
		logFileWriter = nil
	}
}

// LogFilePath returns the path to the global CLI log file.
func LogFilePath() (string, error) {
	dir, err := config.LogDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.CLILogFileName), nil
}
