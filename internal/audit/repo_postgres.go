package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo appends audit events to an insert-only table.
//
// Table audit_events should carry no UPDATE/DELETE grants for the app role.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
		INSERT INTO audit_events (id, type, call_id, actor_user_id, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, string(e.Type), nullable(e.CallID), nullable(e.ActorUserID),
		nullable(e.Message), nullable(e.Metadata), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("audit: append event: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
