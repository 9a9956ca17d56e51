package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_DefaultsNonPositiveToSixtyPerMinute(t *testing.T) {
	l := New(0)
	assert.NotNil(t, l)
}

func TestWait_BurstAllowsImmediateCalls(t *testing.T) {
	l := New(60)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 60; i++ {
		assert.NoError(t, l.Wait(ctx))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestWait_RespectsContextCancellation(t *testing.T) {
	l := New(1)
	ctx := context.Background()
	assert.NoError(t, l.Wait(ctx))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Wait(cancelled)
	assert.Error(t, err)
}
