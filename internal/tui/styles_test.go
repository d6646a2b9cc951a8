package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasColorSupport(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("NO_COLOR", "")
	assert.False(t, HasColorSupport(), "NO_COLOR disables colors even when empty")
}

func TestHasColorSupport_DumbTerminal(t *testing.T) {
	t.Setenv("TERM", "dumb")
	assert.False(t, HasColorSupport())
}

func TestStatusIcon(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "✓", StatusIcon(true))
	assert.Equal(t, "✗", StatusIcon(false))
}

func TestPadRightAndTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "abcdef", padRight("abcdef", 3), "padding never truncates")
	assert.Equal(t, "cat1_g…", truncate("cat1_gf2_fast_r3", 7))
	assert.Equal(t, "short", truncate("short", 7))
}
