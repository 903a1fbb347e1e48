package event

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/onemack/calladmin/internal/session"
)

// CommandSink receives player commands drained from the bus.
type CommandSink func(slot int, command string, args []string)

// Worker drains the bus in publish order: session events are applied to the
// player registry, player commands go to the sink. Ordering is the point; a
// command published after its player's connect always sees that connect
// applied.
type Worker struct {
	bus      *Bus
	registry *session.Registry
	commands CommandSink

	runMutex  sync.Mutex
	started   bool
	runCancel context.CancelFunc
	workerWg  sync.WaitGroup
}

func NewWorker(bus *Bus, registry *session.Registry, commands CommandSink) *Worker {
	return &Worker{
		bus:      bus,
		registry: registry,
		commands: commands,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.runMutex.Lock()
	defer w.runMutex.Unlock()
	if w.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.runCancel = cancel

	w.workerWg.Add(1)
	go func() {
		defer w.workerWg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case e := <-w.bus.events():
				w.apply(e)
			}
		}
	}()

	w.started = true
	return nil
}

func (w *Worker) Stop(ctx context.Context) error {
	w.runMutex.Lock()
	if !w.started {
		w.runMutex.Unlock()
		return nil
	}
	w.started = false
	cancel := w.runCancel
	w.runMutex.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.workerWg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (w *Worker) apply(e Event) {
	switch e.Kind {
	case KindPlayerConnect:
		w.registry.Connect(e.Player)
	case KindPlayerDisconnect:
		w.registry.Disconnect(e.Slot)
	case KindMapChange:
		w.registry.SetMapName(e.Map)
	case KindPlayerCommand:
		if w.commands != nil {
			w.commands(e.Slot, e.Command, e.Args)
		}
	default:
		log.WithField("context", "event").WithField("kind", e.Kind).Warn("unknown event kind")
	}
}
