package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/stackwatch/stackwatch/internal/domain/event"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) event.Repository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, e *event.GuardDutyEvent) (int64, error) {
	now := time.Now().UTC()
	e.DateCreated = now

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO guardduty_event (item_id, detail, date_created) VALUES (?, ?, ?)`,
		e.ItemID, string(e.Detail), now.Format(time.RFC3339))
	if err != nil {
		return 0, errors.DatabaseError("Failed to create event", err)
	}

	return result.LastInsertId()
}

func (r *EventRepository) ListByItem(ctx context.Context, itemID int64, limit, offset int) ([]*event.GuardDutyEvent, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM guardduty_event WHERE item_id = ?`, itemID).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count events", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, item_id, detail, date_created FROM guardduty_event WHERE item_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`,
		itemID, limit, offset)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list events", err)
	}
	defer rows.Close()

	var events []*event.GuardDutyEvent
	for rows.Next() {
		var e event.GuardDutyEvent
		var detail, created string
		if err := rows.Scan(&e.ID, &e.ItemID, &detail, &created); err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan event", err)
		}
		e.Detail = json.RawMessage(detail)
		e.DateCreated, _ = time.Parse(time.RFC3339, created)
		events = append(events, &e)
	}

	return events, total, rows.Err()
}
