package store

import (
	"database/sql"
	"fmt"

	"github.com/tcengine/crm/internal/model"
)

type WebhookEventStore struct {
	db *sql.DB
}

func NewWebhookEventStore(db *sql.DB) *WebhookEventStore {
	return &WebhookEventStore{db: db}
}

// RecordOnce inserts the event keyed by the provider's event id. A second
// insert for the same id is reported as duplicate=true; the database's
// uniqueness constraint is the only serialization point guarding against
// concurrent redelivery.
func (s *WebhookEventStore) RecordOnce(eventID, eventType string, livemode bool, payload []byte) (bool, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO stripe_webhook_events (event_id, type, livemode, payload)
		 VALUES (?, ?, ?, ?)`,
		eventID, eventType, livemode, string(payload),
	)
	if err != nil {
		return false, fmt.Errorf("insert webhook event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 0, nil
}

func (s *WebhookEventStore) Get(eventID string) (*model.WebhookEvent, error) {
	var e model.WebhookEvent
	var livemode int
	row := s.db.QueryRow(
		`SELECT event_id, type, livemode, payload, created_at FROM stripe_webhook_events WHERE event_id = ?`,
		eventID,
	)
	err := row.Scan(&e.EventID, &e.Type, &livemode, &e.Payload, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook event: %w", err)
	}
	e.Livemode = livemode != 0
	return &e, nil
}

func (s *WebhookEventStore) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM stripe_webhook_events`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count webhook events: %w", err)
	}
	return count, nil
}
