package store

import (
	"database/sql"
	"fmt"

	"github.com/tcengine/crm/internal/model"
	"github.com/tcengine/crm/internal/validate"
)

type CustomerStore struct {
	db *sql.DB
}

func NewCustomerStore(db *sql.DB) *CustomerStore {
	return &CustomerStore{db: db}
}

func scanCustomer(scanner interface{ Scan(...any) error }) (*model.Customer, error) {
	var c model.Customer
	err := scanner.Scan(&c.ID, &c.Email, &c.CreatedAt, &c.LastSeenAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const customerCols = `id, email, created_at, last_seen_at`

// UpsertByEmail creates the customer on first contact and bumps last_seen_at
// on every subsequent one. The email is normalized before the write, so the
// unique constraint serializes concurrent upserts for the same address.
func (s *CustomerStore) UpsertByEmail(email string) (*model.Customer, error) {
	e := validate.NormalizeEmail(email)
	if !validate.IsValidEmail(e) {
		return nil, fmt.Errorf("upsert customer: invalid email")
	}

	_, err := s.db.Exec(
		`INSERT INTO customers (id, email) VALUES (?, ?)
		 ON CONFLICT(email) DO UPDATE SET last_seen_at = CURRENT_TIMESTAMP`,
		newID("c_"), e,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}

	return s.GetByEmail(e)
}

func (s *CustomerStore) GetByID(id string) (*model.Customer, error) {
	row := s.db.QueryRow(`SELECT `+customerCols+` FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (s *CustomerStore) GetByEmail(email string) (*model.Customer, error) {
	row := s.db.QueryRow(`SELECT `+customerCols+` FROM customers WHERE email = ?`, validate.NormalizeEmail(email))
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get customer by email: %w", err)
	}
	return c, nil
}

// ListRecent returns customers ordered by most recent contact.
func (s *CustomerStore) ListRecent(limit int) ([]model.Customer, error) {
	rows, err := s.db.Query(
		`SELECT `+customerCols+` FROM customers ORDER BY last_seen_at DESC, created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}
