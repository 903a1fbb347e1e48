package dedup

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/onemack/calladmin/internal/db"
)

// Outcome classifies whether a suspect already has an open report.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSameAuthorSameTarget
	OutcomeDifferentAuthorSameTarget
	OutcomeError
)

type reportStore interface {
	GetOpenReportsForSuspect(ctx context.Context, suspectSteamID string, maxAge time.Duration) ([]*db.Report, error)
}

type Detector struct {
	store reportStore
}

func NewDetector(store reportStore) *Detector {
	return &Detector{store: store}
}

// FindOpenReport checks whether suspectID already has a non-deleted report
// filed within the window. A report by authorID wins over reports by others
// when classifying the outcome. Store failures yield OutcomeError; the caller
// must surface a generic failure instead of proceeding.
func (d *Detector) FindOpenReport(ctx context.Context, authorID, suspectID string, window time.Duration) Outcome {
	reports, err := d.store.GetOpenReportsForSuspect(ctx, suspectID, window)
	if err != nil {
		log.WithError(err).WithField("context", "dedup").Error("cant query open reports")
		return OutcomeError
	}
	if len(reports) == 0 {
		return OutcomeNone
	}
	if authorID != "" {
		for _, report := range reports {
			if report.VictimSteamID == authorID {
				return OutcomeSameAuthorSameTarget
			}
		}
	}
	return OutcomeDifferentAuthorSameTarget
}
