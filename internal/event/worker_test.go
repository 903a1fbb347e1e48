package event

import (
	"context"
	"testing"
	"time"

	"github.com/onemack/calladmin/internal/session"
)

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition never held")
}

func TestWorkerAppliesSessionEvents(t *testing.T) {
	t.Parallel()

	bus := NewBus(0)
	registry := session.NewRegistry()
	worker := NewWorker(bus, registry, nil)
	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("start worker: %v", err)
	}
	t.Cleanup(func() { _ = worker.Stop(context.Background()) })

	bus.Publish(Event{Kind: KindPlayerConnect, Player: session.Player{Name: "Alice", SteamID: "111", UserID: 1, Slot: 0}})
	waitFor(t, func() bool {
		_, ok := registry.BySlot(0)
		return ok
	})

	bus.Publish(Event{Kind: KindMapChange, Map: "de_inferno"})
	waitFor(t, func() bool { return registry.MapName() == "de_inferno" })

	bus.Publish(Event{Kind: KindPlayerDisconnect, Slot: 0})
	waitFor(t, func() bool {
		_, ok := registry.BySlot(0)
		return !ok
	})
}

func TestWorkerHandsCommandsToSinkInPublishOrder(t *testing.T) {
	t.Parallel()

	type sunkCommand struct {
		resolved bool
		command  string
		args     []string
	}

	bus := NewBus(0)
	registry := session.NewRegistry()
	sunk := make(chan sunkCommand, 1)
	worker := NewWorker(bus, registry, func(slot int, command string, args []string) {
		_, ok := registry.BySlot(slot)
		sunk <- sunkCommand{resolved: ok, command: command, args: args}
	})
	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("start worker: %v", err)
	}
	t.Cleanup(func() { _ = worker.Stop(context.Background()) })

	// Back to back, no settling in between: the command must still see the
	// connect applied.
	bus.Publish(Event{Kind: KindPlayerConnect, Player: session.Player{Name: "Alice", SteamID: "111", UserID: 1, Slot: 0}})
	bus.Publish(Event{Kind: KindPlayerCommand, Slot: 0, Command: "report", Args: []string{"Bob", "aim"}})

	select {
	case got := <-sunk:
		if !got.resolved {
			t.Fatalf("command overtook the connect published before it")
		}
		if got.command != "report" || len(got.args) != 2 || got.args[0] != "Bob" {
			t.Fatalf("unexpected command: %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("command never reached the sink")
	}
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	t.Parallel()

	worker := NewWorker(NewBus(0), session.NewRegistry(), nil)
	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("start worker: %v", err)
	}
	if err := worker.Stop(context.Background()); err != nil {
		t.Fatalf("stop worker: %v", err)
	}
	if err := worker.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestBusDropsWhenSaturated(t *testing.T) {
	t.Parallel()

	bus := NewBus(1)
	bus.Publish(Event{Kind: KindMapChange, Map: "one"})
	// Queue is full; this must not block.
	done := make(chan struct{})
	go func() {
		bus.Publish(Event{Kind: KindMapChange, Map: "two"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("publish blocked on a saturated queue")
	}
}
