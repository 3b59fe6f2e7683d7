package customers

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Customer is the minimal projection this service needs: enough to link a
// call record to a known client. Customer CRUD lives in the management
// backend, not here.
type Customer struct {
	ID    string
	Name  string
	Phone string
}

// Lookup resolves a caller's phone number to a customer, best-effort.
type Lookup interface {
	ByPhone(ctx context.Context, phone string) (Customer, bool, error)
}

// PostgresLookup reads the customers table owned by the management backend.
type PostgresLookup struct {
	db *sql.DB
}

func NewPostgresLookup(db *sql.DB) *PostgresLookup {
	return &PostgresLookup{db: db}
}

func (l *PostgresLookup) ByPhone(ctx context.Context, phone string) (Customer, bool, error) {
	var c Customer
	err := l.db.QueryRowContext(ctx,
		`SELECT id, name, phone FROM customers WHERE phone = $1 LIMIT 1`, phone,
	).Scan(&c.ID, &c.Name, &c.Phone)
	if err == sql.ErrNoRows {
		return Customer{}, false, nil
	}
	if err != nil {
		return Customer{}, false, fmt.Errorf("customers: lookup by phone: %w", err)
	}
	return c, true, nil
}

// MemoryLookup is a test double keyed by phone number.
type MemoryLookup struct {
	mu   sync.Mutex
	byPh map[string]Customer
}

func NewMemoryLookup() *MemoryLookup {
	return &MemoryLookup{byPh: map[string]Customer{}}
}

func (l *MemoryLookup) Add(c Customer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byPh[c.Phone] = c
}

func (l *MemoryLookup) ByPhone(ctx context.Context, phone string) (Customer, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.byPh[phone]
	return c, ok, nil
}
