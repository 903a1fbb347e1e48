package db

import "time"

type (
	// Report is a single player report row. Field names follow the webhook
	// channel contract: victim is the reporting player, suspect the reported
	// one.
	Report struct {
		Identifier       string    `db:"identifier"`
		MessageID        string    `db:"message_id"`
		VictimName       string    `db:"victim_name"`
		VictimSteamID    string    `db:"victim_steamid"`
		SuspectName      string    `db:"suspect_name"`
		SuspectSteamID   string    `db:"suspect_steamid"`
		Reason           string    `db:"reason"`
		HostName         string    `db:"host_name"`
		HostIP           string    `db:"host_ip"`
		MapName          string    `db:"map_name"`
		CreatedAt        time.Time `db:"created_at"`
		Deleted          bool      `db:"deleted"`
		DeletedBy        string    `db:"deleted_by"`
		DeletedBySteamID string    `db:"deleted_by_steamid"`
		DeletedByStaff   bool      `db:"deleted_by_staff"`
	}
)
