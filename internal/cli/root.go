// Package cli provides the command-line interface for mqomctl.
package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrz1836/mqomctl/internal/command"
	"github.com/mrz1836/mqomctl/internal/config"
	"github.com/mrz1836/mqomctl/internal/tui"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	// Version is the semantic version (e.g., "1.0.0").
	Version string
	// Commit is the git commit hash.
	Commit string
	// Date is the build date.
	Date string
}

// globalLogger stores the initialized logger for use by subcommands.
// This is set during PersistentPreRunE and should be accessed via GetLogger.
var (
	globalLogger   zerolog.Logger //nolint:gochecknoglobals // CLI logger requires global access
	globalLoggerMu sync.RWMutex   //nolint:gochecknoglobals // Protects globalLogger
)

// GetLogger returns the initialized logger for use by subcommands.
//
// It must only be called after the root command's PersistentPreRunE has
// executed; before that it returns a zero-value logger that discards all
// output. This function is safe for concurrent use.
func GetLogger() zerolog.Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

// appDeps are the process-facing collaborators of the commands. Zero
// values select the real implementations.
type appDeps struct {
	// runner executes external commands; nil means the shell.
	runner command.Runner
	// tools probes installed tools for doctor; nil means os/exec.
	tools config.CommandExecutor
	// now is the wall clock used for default result file names.
	now func() time.Time
	// logWriter, when set, replaces the console and log file writers.
	logWriter io.Writer
}

func (d *appDeps) executor(timeout time.Duration) *command.Executor {
	if d.runner == nil {
		return command.NewExecutor(timeout)
	}
	return command.NewExecutorWithRunner(timeout, d.runner)
}

func (d *appDeps) clockNow() time.Time {
	if d.now == nil {
		return time.Now()
	}
	return d.now()
}

// newRootCmd creates and returns the root command for the mqomctl CLI.
func newRootCmd(flags *GlobalFlags, info BuildInfo, deps *appDeps) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "mqomctl",
		Short: "Build, benchmark and verify MQOM2 parameter variants",
		Long: `mqomctl drives the MQOM2 reference implementation through its 36
parameter sets (security category x field x trade-off x rounds).

Variants are chosen with selectors: "all", a category ("cat1"), or any
longer prefix of a label such as "cat1_gf256" or "cat3_gf2_fast_r5".

  • compile   build the selected variants into the build folder
  • bench     run the benchmarks and write a JSON results file
  • test      benchmark, verify the KATs and check for memory leaks
  • env       print the EXTRA_CFLAGS of one variant
  • matrix    list the variants a selection expands to`,
		Version: formatVersion(info),
		// Run displays help when the root command is invoked without subcommands.
		// This ensures PersistentPreRunE is called for flag validation.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := BindGlobalFlags(v, cmd); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
			applyGlobalEnv(v, cmd, flags)

			if err := tui.ValidateFormat(flags.Output); err != nil {
				return err
			}
			tui.CheckNoColor()

			var logger zerolog.Logger
			if deps.logWriter != nil {
				logger = InitLoggerWithWriter(flags.Verbose, flags.Quiet, deps.logWriter)
			} else {
				logger = InitLogger(flags.Verbose, flags.Quiet)
			}
			globalLoggerMu.Lock()
			globalLogger = logger
			globalLoggerMu.Unlock()

			cmd.SetContext(logger.WithContext(cmd.Context()))
			return nil
		},
		// SilenceUsage prevents printing usage on error
		// (we handle our own error messages)
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(cmd, flags)

	AddCompileCommand(cmd, flags, deps)
	AddBenchCommand(cmd, flags, deps)
	AddTestCommand(cmd, flags, deps)
	AddEnvCommand(cmd, flags, deps)
	AddCleanCommand(cmd, flags, deps)
	AddMatrixCommand(cmd, flags)
	AddDoctorCommand(cmd, flags, deps)

	return cmd
}

// formatVersion creates the version string from build info.
func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command with the provided context and build info.
// Errors are printed through the selected output format before returning.
func Execute(ctx context.Context, info BuildInfo) error {
	flags := &GlobalFlags{}
	//nolint:contextcheck // Cobra command pattern uses cmd.Context() internally
	cmd := newRootCmd(flags, info, &appDeps{})
	err := cmd.ExecuteContext(ctx)
	if err != nil && ExitCodeForError(err) != ExitSuccess {
		tui.NewOutput(cmd.ErrOrStderr(), flags.Output).Error(err)
	}
	return err
}
