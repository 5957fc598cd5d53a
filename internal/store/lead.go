package store

import (
	"database/sql"
	"fmt"

	"github.com/tcengine/crm/internal/model"
	"github.com/tcengine/crm/internal/validate"
)

type LeadStore struct {
	db *sql.DB
}

func NewLeadStore(db *sql.DB) *LeadStore {
	return &LeadStore{db: db}
}

func scanLead(scanner interface{ Scan(...any) error }) (*model.Lead, error) {
	var l model.Lead
	var message, ip, userAgent sql.NullString
	err := scanner.Scan(&l.ID, &l.CustomerID, &l.Kind, &l.Source, &message, &ip, &userAgent, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if message.Valid {
		l.Message = &message.String
	}
	if ip.Valid {
		l.IP = &ip.String
	}
	if userAgent.Valid {
		l.UserAgent = &userAgent.String
	}
	return &l, nil
}

const leadCols = `id, customer_id, kind, source, message, ip, user_agent, created_at`

// Create records an inbound contact event. Free-text fields are clamped;
// empty optional fields are stored as NULL. Leads are immutable once written.
func (s *LeadStore) Create(customerID, kind, source, message, ip, userAgent string) (*model.Lead, error) {
	id := newID("l_")

	_, err := s.db.Exec(
		`INSERT INTO leads (id, customer_id, kind, source, message, ip, user_agent)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, customerID, kind,
		validate.ClampStr(source, 80),
		nullable(validate.ClampStr(message, 2000)),
		nullable(validate.ClampStr(ip, 80)),
		nullable(validate.ClampStr(userAgent, 300)),
	)
	if err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+leadCols+` FROM leads WHERE id = ?`, id)
	return scanLead(row)
}

func (s *LeadStore) ListByCustomer(customerID string) ([]model.Lead, error) {
	rows, err := s.db.Query(
		`SELECT `+leadCols+` FROM leads WHERE customer_id = ? ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, *l)
	}
	return leads, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
