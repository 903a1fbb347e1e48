package commands

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/onemack/calladmin/internal/coordinator"
	caerrors "github.com/onemack/calladmin/internal/errors"
	"github.com/onemack/calladmin/internal/session"
)

// Notifier renders a flow outcome to the actor. The router guarantees it runs
// on the frame loop.
type Notifier func(actor session.Player, outcome coordinator.Outcome)

type flowCoordinator interface {
	AllowCommand(steamID string) bool
	Dispatch(ctx context.Context, flow func(context.Context) coordinator.Outcome, deliver func(coordinator.Outcome))
	Submit(ctx context.Context, author, target session.Player, reason string) coordinator.Outcome
	CancelByAuthor(ctx context.Context, author session.Player) coordinator.Outcome
	CancelByStaff(ctx context.Context, staff session.Player, identifier string) coordinator.Outcome
	MarkHandledByStaff(ctx context.Context, staff session.Player, identifier string) coordinator.Outcome
}

type handlerFunc func(ctx context.Context, r *Router, caller session.Player, args []string) error

var registeredCommands = map[string]handlerFunc{
	"report":              handleReport,
	"report_cancel":       handleCancelByAuthor,
	"report_cancel_admin": handleCancelByStaff,
	"report_handled":      handleMarkHandled,
}

// Router maps the host's chat commands onto lifecycle flows. Dispatch must be
// called from the frame loop; the heavy lifting runs on background workers
// and only the outcome comes back through the notifier.
type Router struct {
	coordinator flowCoordinator
	registry    *session.Registry
	notify      Notifier
}

func NewRouter(c flowCoordinator, registry *session.Registry, notify Notifier) *Router {
	return &Router{
		coordinator: c,
		registry:    registry,
		notify:      notify,
	}
}

// Dispatch resolves the calling player and routes the command. Argument and
// lookup failures come back as sentinel errors for the host to render; flow
// outcomes arrive through the notifier instead.
func (r *Router) Dispatch(ctx context.Context, slot int, name string, args []string) error {
	handler, ok := registeredCommands[strings.ToLower(name)]
	if !ok {
		return caerrors.ErrUnknownCommand
	}
	caller, ok := r.registry.BySlot(slot)
	if !ok {
		log.WithField("context", "commands").WithField("slot", slot).Warn("command from unknown slot")
		return caerrors.ErrCallerNotFound
	}
	return handler(ctx, r, caller, args)
}

func handleReport(ctx context.Context, r *Router, caller session.Player, args []string) error {
	if len(args) < 2 {
		return caerrors.ErrUsage
	}
	target, ok := r.registry.FindByName(args[0])
	if !ok {
		return caerrors.ErrPlayerNotFound
	}
	if target.Slot == caller.Slot {
		return caerrors.ErrUsage
	}
	if !r.coordinator.AllowCommand(caller.SteamID) {
		r.notify(caller, coordinator.OutcomeInCooldown)
		return nil
	}

	reason := strings.Join(args[1:], " ")
	r.coordinator.Dispatch(ctx, func(ctx context.Context) coordinator.Outcome {
		return r.coordinator.Submit(ctx, caller, target, reason)
	}, func(outcome coordinator.Outcome) {
		r.notify(caller, outcome)
	})
	return nil
}

func handleCancelByAuthor(ctx context.Context, r *Router, caller session.Player, _ []string) error {
	r.coordinator.Dispatch(ctx, func(ctx context.Context) coordinator.Outcome {
		return r.coordinator.CancelByAuthor(ctx, caller)
	}, func(outcome coordinator.Outcome) {
		r.notify(caller, outcome)
	})
	return nil
}

func handleCancelByStaff(ctx context.Context, r *Router, caller session.Player, args []string) error {
	if len(args) != 1 {
		return caerrors.ErrUsage
	}
	if !r.coordinator.AllowCommand(caller.SteamID) {
		r.notify(caller, coordinator.OutcomeInCooldown)
		return nil
	}

	identifier := args[0]
	r.coordinator.Dispatch(ctx, func(ctx context.Context) coordinator.Outcome {
		return r.coordinator.CancelByStaff(ctx, caller, identifier)
	}, func(outcome coordinator.Outcome) {
		r.notify(caller, outcome)
	})
	return nil
}

func handleMarkHandled(ctx context.Context, r *Router, caller session.Player, args []string) error {
	if len(args) != 1 {
		return caerrors.ErrUsage
	}
	if !r.coordinator.AllowCommand(caller.SteamID) {
		r.notify(caller, coordinator.OutcomeInCooldown)
		return nil
	}

	identifier := args[0]
	r.coordinator.Dispatch(ctx, func(ctx context.Context) coordinator.Outcome {
		return r.coordinator.MarkHandledByStaff(ctx, caller, identifier)
	}, func(outcome coordinator.Outcome) {
		r.notify(caller, outcome)
	})
	return nil
}
