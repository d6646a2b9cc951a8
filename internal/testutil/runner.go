package testutil

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Response is the scripted outcome of one fake command.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error

	// Delay blocks the call until it elapses or the context is done.
	Delay time.Duration

	// Effect runs before the response is returned, e.g. to create the
	// files a real executable would write into workDir.
	Effect func(workDir string, env []string) error
}

// Call records one invocation of the fake runner.
type Call struct {
	WorkDir string
	Env     []string
	Command string
}

type rule struct {
	contains string
	resp     Response
}

// FakeRunner is a scripted, concurrency-safe command runner.
// Rules are matched by substring in registration order; the first match wins.
type FakeRunner struct {
	mu      sync.Mutex
	rules   []rule
	calls   []Call
	Default Response
}

// NewFakeRunner returns an empty fake runner whose default response is
// a silent success.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// On registers resp for every command containing substr.
func (f *FakeRunner) On(substr string, resp Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{contains: substr, resp: resp})
	return f
}

// Run implements command.Runner.
func (f *FakeRunner) Run(ctx context.Context, workDir string, env []string, command string) (stdout, stderr string, exitCode int, err error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{WorkDir: workDir, Env: append([]string(nil), env...), Command: command})
	resp := f.Default
	for _, r := range f.rules {
		if strings.Contains(command, r.contains) {
			resp = r.resp
			break
		}
	}
	f.mu.Unlock()

	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", "", -1, ctx.Err()
		case <-timer.C:
		}
	}
	if ctx.Err() != nil {
		return "", "", -1, ctx.Err()
	}

	if resp.Effect != nil {
		if effErr := resp.Effect(workDir, env); effErr != nil {
			return "", effErr.Error(), 1, effErr
		}
	}
	return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Err
}

// Calls returns a copy of every recorded invocation.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsContaining returns the recorded invocations whose command contains substr.
func (f *FakeRunner) CallsContaining(substr string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if strings.Contains(c.Command, substr) {
			out = append(out, c)
		}
	}
	return out
}

// EnvValue returns the value of key in env, or "" when absent.
func EnvValue(env []string, key string) string {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return kv[len(prefix):]
		}
	}
	return ""
}
