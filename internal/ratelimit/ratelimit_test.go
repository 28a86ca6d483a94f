package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_GetReturnsSameInstancePerClass(t *testing.T) {
	r := NewRegistry()
	a := r.Get("stock")
	b := r.Get("stock")
	assert.Same(t, a, b)

	c := r.Get("crypto")
	assert.NotSame(t, a, c)
}

func TestRegistry_ConfigureAppliesToExistingLimiter(t *testing.T) {
	r := NewRegistry()
	l := r.Get("forex")
	r.Configure("forex", 5, 10*time.Second)

	calls, period := l.Params()
	assert.Equal(t, 5, calls)
	assert.Equal(t, 10*time.Second, period)
}

func TestLimiter_WaitRespectsContextCancellation(t *testing.T) {
	l := newLimiter(1, time.Hour)
	assert.True(t, l.Allow()) // consume the only token

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx)
	assert.Error(t, err)
}

func TestLimiter_ReconfigureDoesNotPanicConcurrentReaders(t *testing.T) {
	l := newLimiter(DefaultMaxCalls, DefaultPeriod)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			l.Allow()
		}
		close(done)
	}()
	l.Reconfigure(20, 30*time.Second)
	<-done
}
