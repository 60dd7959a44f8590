package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledLimiterAlwaysAllows(t *testing.T) {
	for _, cfg := range []RateLimit{{}, {Window: time.Minute}, {MaxJobs: 3}} {
		l := NewQueueRateLimiter(nil, QueueConfig{Name: "imports", RateLimit: cfg})
		ok, err := l.Allow(context.Background(), "ws")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestLimiterKeyIsPerQueueAndIdentifier(t *testing.T) {
	l := NewQueueRateLimiter(nil, QueueConfig{Name: "customers:import"})
	assert.Equal(t, "queue_rate_limit:customers:import:ws-1", l.key("ws-1"))
	assert.NotEqual(t, l.key("ws-1"), l.key("ws-2"))
}
