package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/onemack/calladmin/internal/commands"
	"github.com/onemack/calladmin/internal/coordinator"
	"github.com/onemack/calladmin/internal/event"
	"github.com/onemack/calladmin/internal/frame"
	"github.com/onemack/calladmin/internal/session"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

type stubCoordinator struct {
	mu      sync.Mutex
	submits []string
}

func (s *stubCoordinator) AllowCommand(string) bool { return true }

func (s *stubCoordinator) Dispatch(ctx context.Context, flow func(context.Context) coordinator.Outcome, deliver func(coordinator.Outcome)) {
	deliver(flow(ctx))
}

func (s *stubCoordinator) Submit(_ context.Context, _, target session.Player, reason string) coordinator.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits = append(s.submits, target.Name+"/"+reason)
	return coordinator.OutcomeReportSent
}

func (s *stubCoordinator) CancelByAuthor(context.Context, session.Player) coordinator.Outcome {
	return coordinator.OutcomeReportCancelled
}

func (s *stubCoordinator) CancelByStaff(context.Context, session.Player, string) coordinator.Outcome {
	return coordinator.OutcomeReportCancelled
}

func (s *stubCoordinator) MarkHandledByStaff(context.Context, session.Player, string) coordinator.Outcome {
	return coordinator.OutcomeReportHandled
}

type bridgeFixture struct {
	bridge   *hostBridge
	registry *session.Registry
	stub     *stubCoordinator
	out      *syncBuffer
}

// newBridgeFixture wires the bridge the way main does: one bus, the worker
// draining it into the registry and the frame loop, the router behind both.
func newBridgeFixture(t *testing.T) *bridgeFixture {
	t.Helper()

	registry := session.NewRegistry()
	bus := event.NewBus(0)

	scheduler := frame.NewScheduler(time.Millisecond)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	t.Cleanup(func() { _ = scheduler.Stop(context.Background()) })

	out := &syncBuffer{}
	bridge := newHostBridge(bus, out)
	stub := &stubCoordinator{}
	router := commands.NewRouter(stub, registry, func(actor session.Player, outcome coordinator.Outcome) {
		bridge.PrintToChat(actor.Slot, outcome.String())
	})
	worker := event.NewWorker(bus, registry, func(slot int, name string, args []string) {
		scheduler.NextFrame(func() {
			if err := router.Dispatch(context.Background(), slot, name, args); err != nil {
				bridge.PrintToChat(slot, err.Error())
			}
		})
	})
	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("start worker: %v", err)
	}
	t.Cleanup(func() { _ = worker.Stop(context.Background()) })

	return &bridgeFixture{bridge: bridge, registry: registry, stub: stub, out: out}
}

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

func TestBridgeSessionLines(t *testing.T) {
	t.Parallel()

	f := newBridgeFixture(t)

	f.bridge.handleLine("connect 0 1 111 Alice The Great")
	waitFor(t, func() bool {
		p, ok := f.registry.BySlot(0)
		return ok && p.Name == "Alice The Great" && p.SteamID == "111" && p.UserID == 1
	})

	f.bridge.handleLine("map de_nuke")
	waitFor(t, func() bool { return f.registry.MapName() == "de_nuke" })

	f.bridge.handleLine("disconnect 0")
	waitFor(t, func() bool {
		_, ok := f.registry.BySlot(0)
		return !ok
	})
}

func TestBridgeGrantFeedsAuthorizer(t *testing.T) {
	t.Parallel()

	f := newBridgeFixture(t)
	if f.bridge.HasPermission("111", "@css/ban") {
		t.Fatalf("permissions must start empty")
	}
	f.bridge.handleLine("grant 111 @css/ban")
	if !f.bridge.HasPermission("111", "@css/ban") {
		t.Fatalf("granted permission must hold")
	}
	if f.bridge.HasPermission("111", "@css/rcon") {
		t.Fatalf("other permissions must not leak")
	}

	f.bridge.handleLine("grant 222 @css/root")
	if !f.bridge.HasPermission("222", "@css/ban") {
		t.Fatalf("root must satisfy every check")
	}
}

func TestBridgeCommandLine(t *testing.T) {
	t.Parallel()

	f := newBridgeFixture(t)

	f.bridge.handleLine("connect 0 1 111 Alice")
	f.bridge.handleLine("connect 1 7 222 Bob")

	f.bridge.handleLine("cmd 0 report Bob blatant aim")
	waitFor(t, func() bool {
		f.stub.mu.Lock()
		defer f.stub.mu.Unlock()
		return len(f.stub.submits) == 1
	})
	f.stub.mu.Lock()
	submit := f.stub.submits[0]
	f.stub.mu.Unlock()
	if submit != "Bob/blatant aim" {
		t.Fatalf("unexpected submit: %q", submit)
	}
	waitFor(t, func() bool { return strings.Contains(f.out.String(), "chat 0 report_sent") })
}

func TestBridgeCommandNeverOvertakesConnect(t *testing.T) {
	t.Parallel()

	f := newBridgeFixture(t)

	// A player can type the command on the very tick they join; the lines
	// arrive back to back, with no time for the connect to settle first.
	f.bridge.handleLine("connect 0 1 111 Alice")
	f.bridge.handleLine("connect 1 7 222 Bob")
	f.bridge.handleLine("cmd 0 report Bob wallhack")

	waitFor(t, func() bool {
		f.stub.mu.Lock()
		defer f.stub.mu.Unlock()
		return len(f.stub.submits) == 1
	})
	if out := f.out.String(); strings.Contains(out, "caller is not connected") {
		t.Fatalf("command raced ahead of its connect: %q", out)
	}
}

func TestBridgeCommandErrorsGoBackAsChat(t *testing.T) {
	t.Parallel()

	f := newBridgeFixture(t)

	f.bridge.handleLine("connect 0 1 111 Alice")
	f.bridge.handleLine("cmd 0 dance")
	waitFor(t, func() bool { return strings.Contains(f.out.String(), "chat 0 unknown command") })
}

func TestBridgeExecuteCommandWritesExecLine(t *testing.T) {
	t.Parallel()

	f := newBridgeFixture(t)
	f.bridge.ExecuteCommand("css_kick #7 Too many reports")
	if got := f.out.String(); got != "exec css_kick #7 Too many reports\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestBridgeIgnoresMalformedLines(t *testing.T) {
	t.Parallel()

	f := newBridgeFixture(t)
	for _, line := range []string{
		"",
		"connect",
		"connect x y 111 Alice",
		"disconnect",
		"disconnect x",
		"map",
		"grant 111",
		"cmd",
		"cmd x report",
		"warp 9",
	} {
		f.bridge.handleLine(line)
	}
	if got := f.out.String(); got != "" {
		t.Fatalf("malformed lines must not produce output: %q", got)
	}
}
