// Package syncx records an append-only audit trail of domain events
// (attempt submissions, question imports) in the event_log table.
package syncx

import (
	"context"
	"database/sql"
	"time"
)

const (
	EventAttemptSubmitted  = "AttemptSubmitted"
	EventQuestionsImported = "QuestionsImported"
)

type Event struct {
	Offset    int64
	SiteID    string
	Type      string
	Key       string // natural key, e.g. student:course:attempt
	DataJSON  string
	CreatedAt int64
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

func (r *EventRepo) Append(ctx context.Context, typ, key, dataJSON string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.siteID, typ, key, dataJSON, time.Now().Unix())
	return err
}
