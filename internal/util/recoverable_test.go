package util

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

type testService struct {
	DoFn   func() error
	StopFn func()
}

func (t *testService) Do() error {
	return t.DoFn()
}

func (t *testService) Stop() {
	t.StopFn()
}

func TestNewRecoverableService(t *testing.T) {
	t.Run("creates and starts a recoverable service", func(t *testing.T) {
		logger, _ := test.NewNullLogger()

		var calls atomic.Int32
		svc := NewRecoverableService(&testService{
			DoFn: func() error {
				calls.Add(1)
				return nil
			},
			StopFn: func() {},
		}, logger)

		svc.Start()
		svc.Start()

		assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 10*time.Millisecond)
		svc.Stop()
		assert.Equal(t, 0, svc.Restarts())
	})

	t.Run("restarts after a panic", func(t *testing.T) {
		logger, hook := test.NewNullLogger()

		var calls atomic.Int32
		svc := NewRecoverableService(&testService{
			DoFn: func() error {
				if calls.Add(1) == 1 {
					panic("boom")
				}
				return fmt.Errorf("done")
			},
			StopFn: func() {},
		}, logger)
		svc.coolDown = 10 * time.Millisecond

		svc.Start()
		defer svc.Stop()

		assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 10*time.Millisecond)
		assert.Eventually(t, func() bool { return svc.Restarts() == 1 }, time.Second, 10*time.Millisecond)
		assert.Eventually(t, func() bool { return len(hook.AllEntries()) == 2 }, time.Second, 10*time.Millisecond)
	})
}
