// Package command runs the external collaborators of the harness: the build
// tool, the produced executables and the memory profiler.
//
// SECURITY NOTE: commands are assembled from project configuration
// (.mqomctl/config.yaml), the user's global config (~/.mqomctl/config.yaml)
// and executables produced by the configured build. These are treated as
// trusted input, the same trust model as a Makefile. The sh -c invocation
// lets configured build commands use shell features.
package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// Runner defines the interface for executing shell commands.
// This allows for testing by injecting mock implementations.
type Runner interface {
	// Run executes command in workDir with env appended to the process
	// environment and returns its captured output.
	Run(ctx context.Context, workDir string, env []string, command string) (stdout, stderr string, exitCode int, err error)
}

// LiveOutputRunner defines a command runner that supports live output streaming.
type LiveOutputRunner interface {
	Runner
	// RunWithLiveOutput executes a command and streams output to the writer while also capturing it.
	RunWithLiveOutput(ctx context.Context, workDir string, env []string, command string, liveOut io.Writer) (stdout, stderr string, exitCode int, err error)
}

// ShellRunner implements Runner and LiveOutputRunner using os/exec.
type ShellRunner struct{}

// Run executes a shell command using sh -c.
func (r *ShellRunner) Run(ctx context.Context, workDir string, env []string, command string) (stdout, stderr string, exitCode int, err error) {
	return r.runCommand(ctx, workDir, env, command, nil)
}

// RunWithLiveOutput executes a command and streams output to liveOut while also capturing it.
func (r *ShellRunner) RunWithLiveOutput(ctx context.Context, workDir string, env []string, command string, liveOut io.Writer) (stdout, stderr string, exitCode int, err error) {
	return r.runCommand(ctx, workDir, env, command, liveOut)
}

func (r *ShellRunner) runCommand(ctx context.Context, workDir string, env []string, command string, liveOut io.Writer) (stdout, stderr string, exitCode int, err error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = workDir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var outBuf, errBuf bytes.Buffer
	if liveOut != nil {
		cmd.Stdout = io.MultiWriter(&outBuf, liveOut)
		cmd.Stderr = io.MultiWriter(&errBuf, liveOut)
	} else {
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf
	}

	err = cmd.Run()
	stdout = outBuf.String()
	stderr = errBuf.String()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = 1
		}
	}

	return stdout, stderr, exitCode, err
}

// Ensure ShellRunner implements Runner and LiveOutputRunner.
var (
	_ Runner           = (*ShellRunner)(nil)
	_ LiveOutputRunner = (*ShellRunner)(nil)
)
