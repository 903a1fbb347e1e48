package db

import (
	"context"
	"time"
)

type Client interface {
	Close() error

	// InsertReport persists a freshly dispatched report. The identifier is the
	// primary key; inserting the same identifier twice is an error.
	InsertReport(ctx context.Context, report *Report) error

	// GetRecentReportByAuthor returns the newest non-deleted report filed by
	// authorSteamID within the last maxAge, or nil when none exists.
	GetRecentReportByAuthor(ctx context.Context, authorSteamID string, maxAge time.Duration) (*Report, error)

	// GetReportByIdentifier returns the non-deleted report with the given
	// identifier when it was created within the last maxAge, otherwise nil.
	GetReportByIdentifier(ctx context.Context, identifier string, maxAge time.Duration) (*Report, error)

	// GetOpenReportsForSuspect returns non-deleted reports against
	// suspectSteamID created within the last maxAge, newest first.
	GetOpenReportsForSuspect(ctx context.Context, suspectSteamID string, maxAge time.Duration) ([]*Report, error)

	// MarkReportDeleted flips the deleted flag exactly once. It reports whether
	// the row transitioned; an unknown identifier or an already deleted report
	// returns false with a nil error.
	MarkReportDeleted(ctx context.Context, identifier, byName, bySteamID string, byStaff bool) (bool, error)
}
