package frame

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultQueueSize = 1024

// Scheduler owns the single cooperative frame loop. Game-state mutations
// (chat output, console commands) are unsafe to run from background workers
// and must be queued here; queued callbacks run in submission order on one
// goroutine, a batch per tick.
type Scheduler struct {
	tickRate time.Duration
	queue    chan func()

	runMutex  sync.Mutex
	started   bool
	runCancel context.CancelFunc
	loopWg    sync.WaitGroup
}

func NewScheduler(tickRate time.Duration) *Scheduler {
	if tickRate <= 0 {
		tickRate = 15 * time.Millisecond
	}
	return &Scheduler{
		tickRate: tickRate,
		queue:    make(chan func(), defaultQueueSize),
	}
}

// NextFrame queues f to run on the frame loop. Blocks only when the queue is
// saturated.
func (s *Scheduler) NextFrame(f func()) {
	if f == nil {
		return
	}
	s.queue <- f
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.runCancel = cancel

	s.loopWg.Add(1)
	go func() {
		defer s.loopWg.Done()
		ticker := time.NewTicker(s.tickRate)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.drain(runCtx)
			}
		}
	}()

	s.started = true
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.runMutex.Lock()
	if !s.started {
		s.runMutex.Unlock()
		return nil
	}
	s.started = false
	cancel := s.runCancel
	s.runMutex.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.loopWg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (s *Scheduler) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-s.queue:
			s.run(f)
		default:
			return
		}
	}
}

func (s *Scheduler) run(f func()) {
	defer func() {
		if err := recover(); err != nil {
			log.WithField("context", "frame").Errorf("frame callback panics: %v", err)
		}
	}()
	f()
}
