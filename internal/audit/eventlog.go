package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Entry is one row of the append-only event_log table.
type Entry struct {
	Seq       int64  `json:"seq"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// EventLog records attempt transitions in event_log. It satisfies
// quiz.Auditor.
type EventLog struct {
	db     *sql.DB
	siteID string
	now    func() time.Time
}

func NewEventLog(db *sql.DB, siteID string) *EventLog {
	if siteID == "" {
		siteID = "local"
	}
	return &EventLog{db: db, siteID: siteID, now: time.Now}
}

func (l *EventLog) Append(ctx context.Context, e Entry) error {
	if e.SiteID == "" {
		e.SiteID = l.siteID
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, l.now().Unix())
	if err != nil {
		return fmt.Errorf("event log append: %w", err)
	}
	return nil
}

// Record stores the event keyed by attempt id.
func (l *EventLog) Record(ctx context.Context, ev quiz.AuditEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("event log encode: %w", err)
	}
	return l.Append(ctx, Entry{Type: ev.Type, Key: ev.AttemptID, DataJSON: string(data)})
}

// Since returns entries after seq in append order, at most limit of them.
func (l *EventLog) Since(ctx context.Context, seq int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, seq, limit)
	if err != nil {
		return nil, fmt.Errorf("event log read: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
