package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestLimiter_allow(t *testing.T) {
	l := New(nil, 3, time.Minute, slog.Default())
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"), "other clients have their own bucket")

	now = now.Add(21 * time.Second)
	assert.True(t, l.allow("10.0.0.1"))
}

func TestLimiter_ForgetsIdleVisitors(t *testing.T) {
	l := New(nil, 1, time.Minute, slog.Default())
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.allow("10.0.0.1")
	now = now.Add(idleTTL + time.Second)
	l.allow("10.0.0.2")

	assert.NotContains(t, l.visitors, "10.0.0.1")
}

func TestLimiter_CapsVisitors(t *testing.T) {
	l := New(nil, 1, time.Minute, slog.Default())
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < maxVisitors; i++ {
		l.allow(fmt.Sprintf("peer-%d", i))
		now = now.Add(time.Millisecond)
	}
	require.Len(t, l.visitors, maxVisitors)

	l.allow("newcomer")
	assert.Len(t, l.visitors, maxVisitors)
	assert.NotContains(t, l.visitors, "peer-0")
	assert.Contains(t, l.visitors, "newcomer")
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "10.0.0.1", ClientIP("10.0.0.1:5555"))
	assert.Equal(t, "10.0.0.1", ClientIP("10.0.0.1"))
	assert.Equal(t, "::1", ClientIP("[::1]:80"))
}
