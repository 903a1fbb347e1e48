package frame

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNextFrameRunsCallbacksInOrder(t *testing.T) {
	t.Parallel()

	s := NewScheduler(time.Millisecond)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	var (
		mu   sync.Mutex
		got  []int
		done = make(chan struct{})
	)
	for i := 0; i < 20; i++ {
		i := i
		s.NextFrame(func() {
			mu.Lock()
			got = append(got, i)
			if len(got) == 20 {
				close(done)
			}
			mu.Unlock()
		})
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("callbacks did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("callbacks out of order: got %v", got)
		}
	}
}

func TestNextFrameCallbacksNeverOverlap(t *testing.T) {
	t.Parallel()

	s := NewScheduler(time.Millisecond)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	var (
		running int32
		overlap int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		s.NextFrame(func() {
			defer wg.Done()
			if atomic.AddInt32(&running, 1) > 1 {
				atomic.StoreInt32(&overlap, 1)
			}
			time.Sleep(100 * time.Microsecond)
			atomic.AddInt32(&running, -1)
		})
	}
	wg.Wait()

	if atomic.LoadInt32(&overlap) != 0 {
		t.Fatalf("frame callbacks ran concurrently")
	}
}

func TestSchedulerSurvivesPanickingCallback(t *testing.T) {
	t.Parallel()

	s := NewScheduler(time.Millisecond)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	ran := make(chan struct{})
	s.NextFrame(func() { panic("boom") })
	s.NextFrame(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatalf("loop did not survive a panicking callback")
	}
}

func TestStopWaitsForLoop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(time.Millisecond)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop scheduler: %v", err)
	}
	// Second stop is a no-op.
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
