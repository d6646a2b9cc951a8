// Package testutil provides testing utilities for mqomctl.
//
// This package contains mock errors and test helpers used across test files.
// It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors for testing purposes.
// These errors are used to simulate various failure scenarios in tests.
var (
	// ErrMockFileNotFound indicates a mock file was not found (used in tests).
	ErrMockFileNotFound = errors.New("file not found")

	// ErrMockExitStatus indicates a mock command exited non-zero (used in tests).
	ErrMockExitStatus = errors.New("exit status 1")

	// ErrMockToolchain indicates a mock toolchain failure (used in tests).
	ErrMockToolchain = errors.New("toolchain error")
)
