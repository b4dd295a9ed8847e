package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SanctionRepo is the sqlx-backed SanctionStore.
type SanctionRepo struct {
	db *sqlx.DB
}

// NewSanctionRepo wraps the database handle.
func NewSanctionRepo(db *sqlx.DB) *SanctionRepo {
	return &SanctionRepo{db: db}
}

// Insert stores a new sanction row and returns its id.
func (r *SanctionRepo) Insert(ctx context.Context, s *Sanction) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `
		INSERT INTO sanctions (tele_id, chat_id, reason, issuer_id, issuer_name, active, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		s.TeleID, s.ChatID, s.Reason, s.IssuerID, s.IssuerName, s.Active, s.ExpiresAt)
	if err != nil {
		return 0, fmt.Errorf("sanctions: insert: %w", err)
	}
	return id, nil
}

// GetByID loads a sanction row.
func (r *SanctionRepo) GetByID(ctx context.Context, id int64) (*Sanction, error) {
	var s Sanction
	err := r.db.GetContext(ctx, &s, `SELECT * FROM sanctions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sanctions: get: %w", err)
	}
	return &s, nil
}

// Deactivate marks the sanction inactive. Already-inactive rows are left as is.
func (r *SanctionRepo) Deactivate(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sanctions SET active = FALSE WHERE id = $1 AND active`, id)
	if err != nil {
		return fmt.Errorf("sanctions: deactivate: %w", err)
	}
	return nil
}

// ListActive returns every active sanction.
func (r *SanctionRepo) ListActive(ctx context.Context) ([]Sanction, error) {
	var out []Sanction
	err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM sanctions WHERE active ORDER BY created`)
	if err != nil {
		return nil, fmt.Errorf("sanctions: list active: %w", err)
	}
	return out, nil
}
