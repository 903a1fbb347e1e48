package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iamwavecut/tool"

	"github.com/onemack/calladmin/internal/db"
)

func (c *sqliteClient) InsertReport(ctx context.Context, report *db.Report) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO reports (
			identifier, message_id, victim_name, victim_steamid, suspect_name, suspect_steamid,
			reason, host_name, host_ip, map_name, created_at, deleted, deleted_by, deleted_by_steamid, deleted_by_staff
		) VALUES (
			:identifier, :message_id, :victim_name, :victim_steamid, :suspect_name, :suspect_steamid,
			:reason, :host_name, :host_ip, :map_name, :created_at, :deleted, :deleted_by, :deleted_by_steamid, :deleted_by_staff
		)
	`
	return tool.Err(c.db.NamedExecContext(ctx, query, report))
}

func (c *sqliteClient) GetRecentReportByAuthor(ctx context.Context, authorSteamID string, maxAge time.Duration) (*db.Report, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var report db.Report
	err := c.db.GetContext(ctx, &report, `
		SELECT * FROM reports
		WHERE victim_steamid = ?
		AND deleted = 0
		AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT 1
	`, authorSteamID, time.Now().UTC().Add(-maxAge))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

func (c *sqliteClient) GetReportByIdentifier(ctx context.Context, identifier string, maxAge time.Duration) (*db.Report, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var report db.Report
	err := c.db.GetContext(ctx, &report, `
		SELECT * FROM reports
		WHERE identifier = ?
		AND deleted = 0
		AND created_at >= ?
	`, identifier, time.Now().UTC().Add(-maxAge))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

func (c *sqliteClient) GetOpenReportsForSuspect(ctx context.Context, suspectSteamID string, maxAge time.Duration) ([]*db.Report, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var reports []*db.Report
	err := c.db.SelectContext(ctx, &reports, `
		SELECT * FROM reports
		WHERE suspect_steamid = ?
		AND deleted = 0
		AND created_at >= ?
		ORDER BY created_at DESC
	`, suspectSteamID, time.Now().UTC().Add(-maxAge))
	return reports, err
}

func (c *sqliteClient) MarkReportDeleted(ctx context.Context, identifier, byName, bySteamID string, byStaff bool) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	result, err := c.db.ExecContext(ctx, `
		UPDATE reports
		SET deleted = 1, deleted_by = ?, deleted_by_steamid = ?, deleted_by_staff = ?
		WHERE identifier = ? AND deleted = 0
	`, byName, bySteamID, byStaff, identifier)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
