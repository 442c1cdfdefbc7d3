package logger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, "ok", Status(nil))
	assert.Equal(t, "error", Status(errors.New("boom")))
}

func TestRoundMS(t *testing.T) {
	assert.Equal(t, time.Duration(0), RoundMS(-time.Second))
	assert.Equal(t, 12*time.Millisecond, RoundMS(12345678*time.Nanosecond))
}

func TestSummarizeStrings(t *testing.T) {
	joined, truncated := SummarizeStrings([]string{"a", "b", "c"}, 5)
	assert.Equal(t, "a, b, c", joined)
	assert.False(t, truncated)

	joined, truncated = SummarizeStrings([]string{"a", "b", "c"}, 2)
	assert.Equal(t, "a, b", joined)
	assert.True(t, truncated)

	joined, truncated = SummarizeStrings([]string{"a"}, 0)
	assert.Empty(t, joined)
	assert.True(t, truncated)
}
