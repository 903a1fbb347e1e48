package coordinator

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/onemack/calladmin/internal/config"
	"github.com/onemack/calladmin/internal/db"
	"github.com/onemack/calladmin/internal/dedup"
	"github.com/onemack/calladmin/internal/escalate"
	"github.com/onemack/calladmin/internal/gate"
	"github.com/onemack/calladmin/internal/observability"
	"github.com/onemack/calladmin/internal/session"
	"github.com/onemack/calladmin/internal/webhook"
)

// hostUnknown is sent when the server has no name or address configured. The
// channel treats the literal as "not provided".
const hostUnknown = "Empty"

type reportStore interface {
	InsertReport(ctx context.Context, report *db.Report) error
	GetRecentReportByAuthor(ctx context.Context, authorSteamID string, maxAge time.Duration) (*db.Report, error)
	GetReportByIdentifier(ctx context.Context, identifier string, maxAge time.Duration) (*db.Report, error)
	GetOpenReportsForSuspect(ctx context.Context, suspectSteamID string, maxAge time.Duration) ([]*db.Report, error)
	MarkReportDeleted(ctx context.Context, identifier, byName, bySteamID string, byStaff bool) (bool, error)
}

type frameScheduler interface {
	NextFrame(f func())
}

// Coordinator drives report lifecycle flows: submission, cancellation by the
// author or by staff, and staff handled marks. Flows run on background
// workers; only the final actor-visible step and enforcement commands are
// marshalled back onto the frame loop.
type Coordinator struct {
	cfg        config.Config
	store      reportStore
	dispatcher webhook.Dispatcher
	detector   *dedup.Detector
	scheduler  frameScheduler
	executor   session.Executor
	authorizer session.Authorizer
	registry   *session.Registry

	gate      *gate.CooldownGate
	escalator *escalate.ThresholdEscalator
	workers   *semaphore.Weighted

	now   func() time.Time
	newID func() string
}

func NewCoordinator(
	cfg config.Config,
	store reportStore,
	dispatcher webhook.Dispatcher,
	scheduler frameScheduler,
	executor session.Executor,
	authorizer session.Authorizer,
	registry *session.Registry,
) *Coordinator {
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &Coordinator{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		detector:   dedup.NewDetector(store),
		scheduler:  scheduler,
		executor:   executor,
		authorizer: authorizer,
		registry:   registry,
		gate:       gate.NewCooldownGate(),
		escalator:  escalate.NewThresholdEscalator(),
		workers:    semaphore.NewWeighted(maxInFlight),
		now:        time.Now,
		newID:      newIdentifier,
	}
}

// AllowCommand consumes the actor's command cooldown. The command layer calls
// this before dispatching a gated flow.
func (c *Coordinator) AllowCommand(steamID string) bool {
	return c.gate.TryAcquire(steamID, time.Duration(c.cfg.CooldownSeconds)*time.Second)
}

// Dispatch runs flow on a bounded background worker and hands its outcome to
// deliver on the frame loop. Dispatch is called from the frame loop and never
// blocks there: when every worker slot is parked on a slow webhook the flow is
// rejected and deliver gets OutcomeBusy right away, on the caller. A panicking
// flow is logged and delivered as an internal error.
func (c *Coordinator) Dispatch(ctx context.Context, flow func(context.Context) Outcome, deliver func(Outcome)) {
	if !c.workers.TryAcquire(1) {
		log.WithField("context", "coordinator").Warn("every worker slot is busy, rejecting flow")
		if deliver != nil {
			deliver(OutcomeBusy)
		}
		return
	}
	go func() {
		defer c.workers.Release(1)
		outcome := c.runFlow(ctx, flow)
		if deliver != nil {
			c.scheduler.NextFrame(func() { deliver(outcome) })
		}
	}()
}

func (c *Coordinator) runFlow(ctx context.Context, flow func(context.Context) Outcome) (outcome Outcome) {
	defer func() {
		if err := recover(); err != nil {
			log.WithField("context", "coordinator").Errorf("flow panics: %v", err)
			outcome = OutcomeInternalError
		}
	}()
	return flow(ctx)
}

// Submit files a report by author against target. The webhook delivery is the
// source of truth: a delivery failure aborts the flow, while a failure to
// persist the local row afterwards is logged and hidden from the author.
func (c *Coordinator) Submit(ctx context.Context, author, target session.Player, reason string) Outcome {
	defer observability.StartFlow("submit")()
	outcome := c.submit(ctx, author, target, reason)
	observability.RecordReportOutcome("submit", outcome.String())
	return outcome
}

func (c *Coordinator) submit(ctx context.Context, author, target session.Player, reason string) Outcome {
	entry := log.WithField("context", "coordinator").
		WithField("author", author.SteamID).
		WithField("target", target.SteamID)

	if c.cfg.Report.DuplicateCheckEnabled {
		window := time.Duration(c.cfg.Report.DuplicateWindowMinutes) * time.Minute
		switch c.detector.FindOpenReport(ctx, author.SteamID, target.SteamID, window) {
		case dedup.OutcomeSameAuthorSameTarget:
			return OutcomeAlreadyReportedByYou
		case dedup.OutcomeDifferentAuthorSameTarget:
			return OutcomeAlreadyReported
		case dedup.OutcomeError:
			return OutcomeInternalError
		}
	}

	payload := c.reportPayload(author, target, reason, c.newID())
	messageID, err := c.dispatcher.Submit(ctx, payload)
	if err != nil {
		entry.WithError(err).Error("cant deliver report")
		return OutcomeWebhookError
	}

	report := &db.Report{
		Identifier:     payload.Identifier,
		MessageID:      messageID,
		VictimName:     author.Name,
		VictimSteamID:  author.SteamID,
		SuspectName:    target.Name,
		SuspectSteamID: target.SteamID,
		Reason:         reason,
		HostName:       payload.ServerName,
		HostIP:         payload.ServerIP,
		MapName:        payload.MapName,
		CreatedAt:      c.now().UTC(),
	}
	if err := c.store.InsertReport(ctx, report); err != nil {
		// The report already reached the channel; a lost local row must not
		// look like a failed report to the author.
		entry.WithError(err).WithField("identifier", report.Identifier).Error("cant persist report")
	}

	c.recordAgainst(target)
	return OutcomeReportSent
}

// CancelByAuthor retracts the author's most recent open report, when it is
// still within the allowed cancellation window.
func (c *Coordinator) CancelByAuthor(ctx context.Context, author session.Player) Outcome {
	defer observability.StartFlow("cancel_author")()
	outcome := c.cancelByAuthor(ctx, author)
	observability.RecordReportOutcome("cancel_author", outcome.String())
	return outcome
}

func (c *Coordinator) cancelByAuthor(ctx context.Context, author session.Player) Outcome {
	if !c.cfg.CancelByAuthor.Enabled {
		return OutcomeDisabled
	}

	maxAge := time.Duration(c.cfg.CancelByAuthor.MaxTimeMinutes) * time.Minute
	report, err := c.store.GetRecentReportByAuthor(ctx, author.SteamID, maxAge)
	if err != nil {
		log.WithError(err).WithField("context", "coordinator").Error("cant look up report to cancel")
		return OutcomeInternalError
	}
	if report == nil {
		return OutcomeReportNotFound
	}

	if outcome := c.retract(ctx, report, author, false, c.cfg.CancelByAuthor.DeleteFromChannel); outcome != OutcomeReportCancelled {
		return outcome
	}
	return c.markCancelled(ctx, report.Identifier, author, false)
}

// CancelByStaff retracts the report with the given identifier on behalf of a
// staff member. Staff reach further back in time than authors and may leave
// the channel message in place, flagged instead of deleted.
func (c *Coordinator) CancelByStaff(ctx context.Context, staff session.Player, identifier string) Outcome {
	defer observability.StartFlow("cancel_staff")()
	outcome := c.cancelByStaff(ctx, staff, identifier)
	observability.RecordReportOutcome("cancel_staff", outcome.String())
	return outcome
}

func (c *Coordinator) cancelByStaff(ctx context.Context, staff session.Player, identifier string) Outcome {
	if !c.cfg.CancelByStaff.Enabled {
		return OutcomeDisabled
	}
	if !c.authorizer.HasPermission(staff.SteamID, c.cfg.CancelByStaff.Permission) {
		return OutcomeMissingPermission
	}

	report, err := c.lookup(ctx, identifier)
	if err != nil {
		return OutcomeInternalError
	}
	if report == nil {
		return OutcomeReportNotFound
	}

	if outcome := c.retract(ctx, report, staff, true, c.cfg.CancelByStaff.DeleteFromChannel); outcome != OutcomeReportCancelled {
		return outcome
	}
	return c.markCancelled(ctx, report.Identifier, staff, true)
}

// MarkHandledByStaff flags the report's channel message as taken care of. The
// local row stays open; handled is a channel-side state.
func (c *Coordinator) MarkHandledByStaff(ctx context.Context, staff session.Player, identifier string) Outcome {
	defer observability.StartFlow("handled")()
	outcome := c.markHandledByStaff(ctx, staff, identifier)
	observability.RecordReportOutcome("handled", outcome.String())
	return outcome
}

func (c *Coordinator) markHandledByStaff(ctx context.Context, staff session.Player, identifier string) Outcome {
	if !c.authorizer.HasPermission(staff.SteamID, c.cfg.CancelByStaff.Permission) {
		return OutcomeMissingPermission
	}

	report, err := c.lookup(ctx, identifier)
	if err != nil {
		return OutcomeInternalError
	}
	if report == nil {
		return OutcomeReportNotFound
	}

	if err := c.dispatcher.MarkHandled(ctx, report.MessageID, staff.Name, staff.SteamID); err != nil {
		log.WithError(err).WithField("context", "coordinator").Error("cant mark report handled")
		return OutcomeWebhookError
	}
	return OutcomeReportHandled
}

func (c *Coordinator) lookup(ctx context.Context, identifier string) (*db.Report, error) {
	maxAge := time.Duration(c.cfg.CancelByStaff.MaxTimeMinutes) * time.Minute
	report, err := c.store.GetReportByIdentifier(ctx, identifier, maxAge)
	if err != nil {
		log.WithError(err).WithField("context", "coordinator").WithField("identifier", identifier).Error("cant look up report")
		return nil, err
	}
	return report, nil
}

// retract removes or flags the report's channel message. When the channel
// message is kept, a cancellation event referencing the original report is
// delivered instead.
func (c *Coordinator) retract(ctx context.Context, report *db.Report, actor session.Player, byStaff, deleteFromChannel bool) Outcome {
	entry := log.WithField("context", "coordinator").WithField("identifier", report.Identifier)

	if deleteFromChannel {
		if err := c.dispatcher.Cancel(ctx, report.MessageID); err != nil {
			entry.WithError(err).Error("cant retract channel message")
			return OutcomeWebhookError
		}
		return OutcomeReportCancelled
	}

	byAuthor := !byStaff
	payload := webhook.ReportPayload{
		AuthorName:       report.VictimName,
		AuthorSteamID:    report.VictimSteamID,
		TargetName:       report.SuspectName,
		TargetSteamID:    report.SuspectSteamID,
		Reason:           report.Reason,
		ServerName:       report.HostName,
		ServerIP:         report.HostIP,
		MapName:          report.MapName,
		Identifier:       report.Identifier,
		Action:           webhook.ActionCancel,
		CanceledByAuthor: &byAuthor,
	}
	if byStaff {
		payload.AdminName = actor.Name
		payload.AdminSteamID = actor.SteamID
	}
	if _, err := c.dispatcher.Submit(ctx, payload); err != nil {
		entry.WithError(err).Error("cant deliver cancellation event")
		return OutcomeWebhookError
	}
	return OutcomeReportCancelled
}

// markCancelled closes the local row. A row that is already closed, or that
// never made it into the store, yields a distinct outcome so the actor knows
// the channel message is gone but the record did not change.
func (c *Coordinator) markCancelled(ctx context.Context, identifier string, actor session.Player, byStaff bool) Outcome {
	changed, err := c.store.MarkReportDeleted(ctx, identifier, actor.Name, actor.SteamID, byStaff)
	if err != nil {
		log.WithError(err).WithField("context", "coordinator").WithField("identifier", identifier).Error("cant mark report cancelled")
		return OutcomeCancelledNotRecorded
	}
	if !changed {
		return OutcomeCancelledNotRecorded
	}
	return OutcomeReportCancelled
}

// recordAgainst counts one more open report against the target and fires the
// configured enforcement command once the limit is reached.
func (c *Coordinator) recordAgainst(target session.Player) {
	mr := c.cfg.Report.MaximumReports
	if mr.WindowMinutes == escalate.WindowDisabled || mr.Action == config.ActionNone {
		return
	}
	if c.escalator.RecordAndCheck(target.SteamID, mr.Limit, mr.WindowMinutes) != escalate.DecisionFire {
		return
	}

	// The target may have rejoined under a new userid, or left altogether,
	// since the report was filed. Enforce against the live session.
	current, connected := c.registry.BySteamID(target.SteamID)
	if !connected {
		log.WithField("context", "coordinator").
			WithField("target", target.SteamID).
			Info("report limit reached but target already left")
		return
	}

	var command, action string
	switch mr.Action {
	case config.ActionKick:
		command = session.KickCommand(current.UserID, mr.Reason)
		action = "kick"
	case config.ActionBan:
		command = session.BanCommand(current.UserID, mr.BanMinutes, mr.Reason)
		action = "ban"
	default:
		return
	}

	log.WithField("context", "coordinator").
		WithField("target", target.SteamID).
		WithField("action", action).
		Warn("report limit reached, escalating")
	observability.RecordEscalation(action)
	c.scheduler.NextFrame(func() { c.executor.ExecuteCommand(command) })
}

func (c *Coordinator) reportPayload(author, target session.Player, reason, identifier string) webhook.ReportPayload {
	hostName := c.cfg.ServerName
	if hostName == "" {
		hostName = hostUnknown
	}
	hostIP := c.cfg.ServerIPWithPort
	if hostIP == "" {
		hostIP = hostUnknown
	}
	return webhook.ReportPayload{
		AuthorName:    author.Name,
		AuthorSteamID: author.SteamID,
		TargetName:    target.Name,
		TargetSteamID: target.SteamID,
		Reason:        reason,
		ServerName:    hostName,
		ServerIP:      hostIP,
		MapName:       c.registry.MapName(),
		Identifier:    identifier,
	}
}
