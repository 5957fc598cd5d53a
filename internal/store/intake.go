package store

import (
	"database/sql"
	"fmt"

	"github.com/tcengine/crm/internal/model"
)

type IntakeStore struct {
	db *sql.DB
}

func NewIntakeStore(db *sql.DB) *IntakeStore {
	return &IntakeStore{db: db}
}

// Upsert stores the intake answers for a purchase. Resubmission overwrites
// the previous answers and refreshes the submission timestamp.
func (s *IntakeStore) Upsert(purchaseID, data string) error {
	_, err := s.db.Exec(
		`INSERT INTO engagement_intakes (purchase_id, data, submitted_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(purchase_id) DO UPDATE SET
			data = excluded.data,
			submitted_at = CURRENT_TIMESTAMP`,
		purchaseID, data,
	)
	if err != nil {
		return fmt.Errorf("upsert intake: %w", err)
	}
	return nil
}

func (s *IntakeStore) GetByPurchaseID(purchaseID string) (*model.EngagementIntake, error) {
	var e model.EngagementIntake
	row := s.db.QueryRow(
		`SELECT purchase_id, data, submitted_at FROM engagement_intakes WHERE purchase_id = ?`,
		purchaseID,
	)
	err := row.Scan(&e.PurchaseID, &e.Data, &e.SubmittedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get intake: %w", err)
	}
	return &e, nil
}
