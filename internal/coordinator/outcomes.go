package coordinator

// Outcome is what a flow tells the actor who triggered it. Flows never return
// raw errors to the command layer; failures are folded into outcomes and the
// details stay in the logs.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeReportSent
	OutcomeAlreadyReportedByYou
	OutcomeAlreadyReported
	OutcomeWebhookError
	OutcomeInternalError
	OutcomeReportNotFound
	OutcomeReportCancelled
	OutcomeCancelledNotRecorded
	OutcomeReportHandled
	OutcomeMissingPermission
	OutcomeDisabled
	OutcomeInCooldown
	OutcomeBusy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReportSent:
		return "report_sent"
	case OutcomeAlreadyReportedByYou:
		return "already_reported_by_you"
	case OutcomeAlreadyReported:
		return "already_reported"
	case OutcomeWebhookError:
		return "webhook_error"
	case OutcomeInternalError:
		return "internal_error"
	case OutcomeReportNotFound:
		return "report_not_found"
	case OutcomeReportCancelled:
		return "report_cancelled"
	case OutcomeCancelledNotRecorded:
		return "cancelled_not_recorded"
	case OutcomeReportHandled:
		return "report_handled"
	case OutcomeMissingPermission:
		return "missing_permission"
	case OutcomeDisabled:
		return "disabled"
	case OutcomeInCooldown:
		return "in_cooldown"
	case OutcomeBusy:
		return "busy"
	default:
		return "unknown"
	}
}
