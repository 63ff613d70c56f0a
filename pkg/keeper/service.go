package keeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/substack-protocol/keeper/pkg/telemetry"
)

var (
	ErrServiceRunning    = fmt.Errorf("service already running")
	ErrServiceNotRunning = fmt.Errorf("service not running")
)

type cycleRunner interface {
	RunCycle(context.Context) (*CycleReport, error)
}

// Service schedules keeper cycles on a wall-clock interval. Each cycle runs
// in its own goroutine so a slow cycle never blocks the ticker; ticks that
// land on a running cycle are dropped by the keeper.
type Service struct {
	keeper   cycleRunner
	interval time.Duration
	ticker   *time.Ticker
	chClose  chan struct{}
	running  atomic.Bool
	log      logrus.FieldLogger

	mu     sync.Mutex
	ctx    context.Context
	closed bool
	cycles sync.WaitGroup
}

func NewService(keeper cycleRunner, interval time.Duration, logger logrus.FieldLogger) *Service {
	return &Service{
		keeper:   keeper,
		interval: interval,
		chClose:  make(chan struct{}, 1),
		log:      telemetry.WrapLogger(logger, "scheduler"),
	}
}

// Start runs a cycle immediately and then one per interval. This function
// blocks until Close is called or the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrServiceRunning
	}

	// cycles run on the caller's context; Close stops the loop and waits
	// for them without cancelling.
	s.mu.Lock()
	s.ctx = ctx
	s.ticker = time.NewTicker(s.interval)
	s.mu.Unlock()

	s.launch()

	s.log.WithField("interval", s.interval).Info("keeper scheduled")

Loop:
	for {
		select {
		case <-s.ticker.C:
			s.launch()
		case <-s.chClose:
			break Loop
		case <-ctx.Done():
			break Loop
		}
	}

	s.ticker.Stop()

	return nil
}

// Trigger starts a cycle outside the schedule. It is a no-op, apart from a
// warning, while a cycle is already running.
func (s *Service) Trigger() error {
	if !s.running.Load() {
		return ErrServiceNotRunning
	}

	s.log.Info("manual cycle requested")
	s.launch()

	return nil
}

// Close stops the schedule and waits for an in-flight cycle to finish.
func (s *Service) Close() error {
	if !s.running.Load() {
		return ErrServiceNotRunning
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.chClose <- struct{}{}
	s.cycles.Wait()

	return nil
}

func (s *Service) launch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.ctx == nil {
		return
	}

	ctx := s.ctx

	s.cycles.Add(1)
	go func() {
		defer s.cycles.Done()

		if _, err := s.keeper.RunCycle(ctx); err != nil && !errors.Is(err, ErrCycleInProgress) {
			s.log.WithError(err).Error("keeper cycle failed")
		}
	}()
}
