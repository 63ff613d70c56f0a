package keeper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls   atomic.Int32
	block   chan struct{}
	running atomic.Bool
}

func (f *fakeRunner) RunCycle(ctx context.Context) (*CycleReport, error) {
	if !f.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer f.running.Store(false)

	f.calls.Add(1)

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}

	return &CycleReport{}, nil
}

func startService(t *testing.T, svc *Service) <-chan error {
	t.Helper()

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()

	require.Eventually(t, func() bool { return svc.running.Load() }, time.Second, time.Millisecond)

	return done
}

func TestService_RunsImmediately(t *testing.T) {
	runner := &fakeRunner{}
	logger, _ := test.NewNullLogger()

	svc := NewService(runner, time.Hour, logger)
	done := startService(t, svc)

	assert.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, svc.Close())
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestService_RunsOnInterval(t *testing.T) {
	runner := &fakeRunner{}
	logger, _ := test.NewNullLogger()

	svc := NewService(runner, 5*time.Millisecond, logger)
	done := startService(t, svc)

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 4 }, time.Second, time.Millisecond)

	require.NoError(t, svc.Close())
	require.NoError(t, <-done)
}

func TestService_OverlappingTicksAreDropped(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	logger, _ := test.NewNullLogger()

	svc := NewService(runner, time.Millisecond, logger)
	done := startService(t, svc)

	// many ticks pass while the first cycle is still running
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), runner.calls.Load())

	close(runner.block)
	require.NoError(t, svc.Close())
	require.NoError(t, <-done)
}

func TestService_Trigger(t *testing.T) {
	runner := &fakeRunner{}
	logger, _ := test.NewNullLogger()

	svc := NewService(runner, time.Hour, logger)
	assert.ErrorIs(t, svc.Trigger(), ErrServiceNotRunning)
	assert.ErrorIs(t, svc.Close(), ErrServiceNotRunning)

	done := startService(t, svc)
	assert.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, svc.Trigger())
	assert.Eventually(t, func() bool { return runner.calls.Load() == 2 }, time.Second, time.Millisecond)

	assert.ErrorIs(t, svc.Start(context.Background()), ErrServiceRunning)

	require.NoError(t, svc.Close())
	require.NoError(t, <-done)
}

func TestService_CloseWaitsForCycle(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	logger, _ := test.NewNullLogger()

	svc := NewService(runner, time.Hour, logger)
	done := startService(t, svc)

	require.Eventually(t, func() bool { return runner.running.Load() }, time.Second, time.Millisecond)

	closed := make(chan struct{})
	go func() {
		_ = svc.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a cycle was running")
	case <-time.After(20 * time.Millisecond):
	}

	close(runner.block)

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the cycle finished")
	}

	require.NoError(t, <-done)
}

type ctxRecordingRunner struct {
	started  chan struct{}
	ctxAlive atomic.Bool
	finished atomic.Bool
}

func (r *ctxRecordingRunner) RunCycle(ctx context.Context) (*CycleReport, error) {
	close(r.started)
	time.Sleep(50 * time.Millisecond)

	r.ctxAlive.Store(ctx.Err() == nil)
	r.finished.Store(true)

	return &CycleReport{}, nil
}

func TestService_CloseKeepsCycleContextAlive(t *testing.T) {
	runner := &ctxRecordingRunner{started: make(chan struct{})}
	logger, _ := test.NewNullLogger()

	svc := NewService(runner, time.Hour, logger)
	done := startService(t, svc)

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("cycle did not start")
	}

	require.NoError(t, svc.Close())
	require.NoError(t, <-done)

	assert.True(t, runner.finished.Load(), "Close returned before the cycle finished")
	assert.True(t, runner.ctxAlive.Load(), "cycle context was cancelled during Close")
}
