package scheduler_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miiguelriios/WasteLessApp/pkg/scheduler"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recorder struct {
	calls atomic.Int32
	fired chan struct{}
	err   error
}

func newRecorder() *recorder {
	return &recorder{fired: make(chan struct{}, 16)}
}

func (r *recorder) job(context.Context) error {
	r.calls.Add(1)
	r.fired <- struct{}{}
	return r.err
}

func waitFired(t *testing.T, r *recorder) {
	t.Helper()
	select {
	case <-r.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not fire")
	}
}

func start(t *testing.T, s *scheduler.Scheduler) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func TestScheduler_FiresEveryInterval(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC))
	rec := newRecorder()
	s := scheduler.New(scheduler.Config{Enabled: true, Interval: time.Hour}, rec.job, fake, testLogger())

	cancel, done := start(t, s)

	for range 3 {
		fake.BlockUntil(1)
		fake.Advance(time.Hour)
		waitFired(t, rec)
	}

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(3), rec.calls.Load())
}

func TestScheduler_RunOnStart(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Now())
	rec := newRecorder()
	s := scheduler.New(scheduler.Config{Enabled: true, Interval: time.Hour, RunOnStart: true}, rec.job, fake, testLogger())

	cancel, done := start(t, s)
	waitFired(t, rec)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), rec.calls.Load())
}

func TestScheduler_Disabled(t *testing.T) {
	rec := newRecorder()
	s := scheduler.New(scheduler.Config{Enabled: false, Interval: time.Hour, RunOnStart: true}, rec.job, clockwork.NewFakeClockAt(time.Now()), testLogger())

	err := s.Start(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rec.calls.Load())
}

func TestScheduler_ContinuesAfterJobError(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Now())
	rec := newRecorder()
	rec.err = errors.New("store unreachable")
	s := scheduler.New(scheduler.Config{Enabled: true, Interval: time.Minute}, rec.job, fake, testLogger())

	cancel, done := start(t, s)
	for range 2 {
		fake.BlockUntil(1)
		fake.Advance(time.Minute)
		waitFired(t, rec)
	}

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(2), rec.calls.Load())
}

func TestScheduler_FiringsMayOverlap(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Now())
	release := make(chan struct{})
	var running, peak atomic.Int32
	entered := make(chan struct{}, 4)

	job := func(context.Context) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		entered <- struct{}{}
		<-release
		running.Add(-1)
		return nil
	}

	s := scheduler.New(scheduler.Config{Enabled: true, Interval: time.Minute}, job, fake, testLogger())
	cancel, done := start(t, s)

	for range 2 {
		fake.BlockUntil(1)
		fake.Advance(time.Minute)
		select {
		case <-entered:
		case <-time.After(2 * time.Second):
			t.Fatal("job did not start")
		}
	}

	assert.Equal(t, int32(2), peak.Load())
	close(release)
	cancel()
	require.NoError(t, <-done)
}
