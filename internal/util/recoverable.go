package util

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	errServiceStopped = fmt.Errorf("service stopped")

	DefaultCoolDown = 10 * time.Second
)

// Doable is a long running process. Do blocks until the process ends; Stop
// asks it to end.
type Doable interface {
	Do() error
	Stop()
}

// NewRecoverableService wraps svc so that a panic inside Do restarts it after
// a cool down. A Do that returns normally is not restarted.
func NewRecoverableService(svc Doable, logger logrus.FieldLogger) *RecoverableService {
	ctx, cancel := context.WithCancel(context.Background())
	return &RecoverableService{
		service:  svc,
		stopped:  make(chan error, 1),
		log:      logger,
		coolDown: DefaultCoolDown,
		ctx:      ctx,
		cancel:   cancel,
	}
}

type RecoverableService struct {
	mu       sync.Mutex
	running  bool
	service  Doable
	stopped  chan error
	log      logrus.FieldLogger
	coolDown time.Duration
	restarts int
	ctx      context.Context
	cancel   context.CancelFunc
}

func (m *RecoverableService) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	go m.serviceStart()
	m.running = true
}

func (m *RecoverableService) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.service.Stop()
	m.cancel()
	m.running = false
}

// Restarts is how many times the service was restarted after a panic.
func (m *RecoverableService) Restarts() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.restarts
}

func (m *RecoverableService) serviceStart() {
	m.run()
	for {
		select {
		case err := <-m.stopped:
			if err == nil || !errors.Is(err, errServiceStopped) {
				return
			}

			select {
			case <-time.After(m.coolDown):
			case <-m.ctx.Done():
				return
			}

			m.mu.Lock()
			m.restarts++
			m.mu.Unlock()

			m.run()
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *RecoverableService) run() {
	go func(s Doable, l logrus.FieldLogger, chStop chan error) {
		defer func() {
			if err := recover(); err != nil {
				if l != nil {
					l.WithField("stack", string(debug.Stack())).Errorf("service panicked: %v", err)
				}

				chStop <- errServiceStopped
			}
		}()

		err := s.Do()

		if err != nil && l != nil {
			l.WithError(err).Warn("service exited")
		}

		chStop <- err
	}(m.service, m.log, m.stopped)
}
