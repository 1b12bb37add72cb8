package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAfterRunsJob(t *testing.T) {
	s := New(context.Background(), zerolog.Nop())
	defer s.Stop()

	done := make(chan struct{})
	assert.True(t, s.After(10*time.Millisecond, func(ctx context.Context) { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStopCancelsPendingJobs(t *testing.T) {
	s := New(context.Background(), zerolog.Nop())

	var ran atomic.Int32
	for range 3 {
		s.After(time.Hour, func(ctx context.Context) { ran.Add(1) })
	}
	assert.Equal(t, 3, s.Pending())

	s.Stop()
	assert.Zero(t, ran.Load())
	assert.Zero(t, s.Pending())

	assert.False(t, s.After(0, func(ctx context.Context) { ran.Add(1) }), "stopped scheduler rejects jobs")
	s.Stop()
}

func TestParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx, zerolog.Nop())

	var ran atomic.Int32
	s.After(time.Hour, func(ctx context.Context) { ran.Add(1) })
	cancel()

	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, ran.Load())
	s.Stop()
}
