package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
)

func TestSentinelErrors_Messages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ErrInvalidSelector", mqerrors.ErrInvalidSelector, "invalid selector"},
		{"ErrBuildFailed", mqerrors.ErrBuildFailed, "build failed"},
		{"ErrParse", mqerrors.ErrParse, "benchmark output parse error"},
		{"ErrCorrectnessMismatch", mqerrors.ErrCorrectnessMismatch, "correctness mismatch"},
		{"ErrKATMismatch", mqerrors.ErrKATMismatch, "kat mismatch with reference"},
		{"ErrInterrupted", mqerrors.ErrInterrupted, "run interrupted"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	allErrors := []error{
		mqerrors.ErrInvalidSelector,
		mqerrors.ErrNoVariants,
		mqerrors.ErrBuildFailed,
		mqerrors.ErrParse,
		mqerrors.ErrCorrectnessMismatch,
		mqerrors.ErrKATMissing,
		mqerrors.ErrKATCheckFailed,
		mqerrors.ErrKATReferenceMissing,
		mqerrors.ErrKATMismatch,
		mqerrors.ErrProfilerFailed,
		mqerrors.ErrInterrupted,
	}

	for i, a := range allErrors {
		for j, b := range allErrors {
			if i == j {
				continue
			}
			assert.NotErrorIs(t, a, b, "%v should not match %v", a, b)
		}
	}
}

func TestWrap_PreservesErrorChain(t *testing.T) {
	wrapped := mqerrors.Wrap(mqerrors.ErrBuildFailed, "cat1_gf2_short_r3")

	require.Error(t, wrapped)
	require.ErrorIs(t, wrapped, mqerrors.ErrBuildFailed)
	assert.Equal(t, "cat1_gf2_short_r3: build failed", wrapped.Error())
}

func TestWrap_NilError(t *testing.T) {
	assert.NoError(t, mqerrors.Wrap(nil, "context"))
	assert.NoError(t, mqerrors.Wrapf(nil, "context %d", 1))
}

func TestWrapf_MessageFormat(t *testing.T) {
	wrapped := mqerrors.Wrapf(mqerrors.ErrKATMissing, "variant %s", "cat5_gf256_fast_r5")
	assert.Equal(t, "variant cat5_gf256_fast_r5: kat files missing", wrapped.Error())
	assert.ErrorIs(t, wrapped, mqerrors.ErrKATMissing)
}

func TestUserMessage_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", mqerrors.Wrap(mqerrors.ErrKATMismatch, "inner"))
	assert.Equal(t, "Generated KAT differs from the reference KAT.", mqerrors.UserMessage(wrapped))
}

func TestUserMessage_NilAndUnknown(t *testing.T) {
	assert.Empty(t, mqerrors.UserMessage(nil))
	assert.Equal(t, "something else", mqerrors.UserMessage(errors.New("something else"))) //nolint:err113 // test error
}

func TestActionable(t *testing.T) {
	msg, action := mqerrors.Actionable(mqerrors.ErrNoVariants)
	assert.NotEmpty(t, msg)
	assert.Contains(t, action, "mqomctl matrix")

	msg, action = mqerrors.Actionable(mqerrors.ErrKATMissing)
	assert.NotEmpty(t, msg)
	assert.Empty(t, action)

	msg, action = mqerrors.Actionable(nil)
	assert.Empty(t, msg)
	assert.Empty(t, action)
}

func TestExitCode2Error(t *testing.T) {
	err := mqerrors.NewExitCode2Error(mqerrors.ErrInvalidSelector)

	assert.Equal(t, "invalid selector", err.Error())
	require.ErrorIs(t, err, mqerrors.ErrInvalidSelector)
	assert.True(t, mqerrors.IsExitCode2Error(err))
	assert.True(t, mqerrors.IsExitCode2Error(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, mqerrors.IsExitCode2Error(mqerrors.ErrInvalidSelector))
	assert.False(t, mqerrors.IsExitCode2Error(nil))
}
