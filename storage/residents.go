package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ResidentRepo is the sqlx-backed ResidentStore.
type ResidentRepo struct {
	db *sqlx.DB
}

// NewResidentRepo wraps the database handle.
func NewResidentRepo(db *sqlx.DB) *ResidentRepo {
	return &ResidentRepo{db: db}
}

// GetByTeleID loads a resident by their Telegram id.
func (r *ResidentRepo) GetByTeleID(ctx context.Context, teleID int64) (*Resident, error) {
	var res Resident
	err := r.db.GetContext(ctx, &res,
		`SELECT * FROM residents WHERE tele_id = $1`, teleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("residents: get by tele_id: %w", err)
	}
	return &res, nil
}

// GetByApartment loads the resident registered for an apartment.
func (r *ResidentRepo) GetByApartment(ctx context.Context, apartment int) (*Resident, error) {
	var res Resident
	err := r.db.GetContext(ctx, &res,
		`SELECT * FROM residents WHERE apartment = $1 ORDER BY confirmed DESC, id LIMIT 1`, apartment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("residents: get by apartment: %w", err)
	}
	return &res, nil
}

// PhoneTaken reports whether another resident already owns the phone number.
func (r *ResidentRepo) PhoneTaken(ctx context.Context, phone string, exceptTeleID int64) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM residents WHERE phone = $1 AND tele_id <> $2`, phone, exceptTeleID)
	if err != nil {
		return false, fmt.Errorf("residents: phone lookup: %w", err)
	}
	return n > 0, nil
}

// Upsert inserts the resident or updates the profile fields keyed by tele_id.
func (r *ResidentRepo) Upsert(ctx context.Context, res *Resident) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO residents (tele_id, name, apartment, phone, confirmed, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tele_id) DO UPDATE SET
			name = EXCLUDED.name,
			apartment = EXCLUDED.apartment,
			phone = EXCLUDED.phone,
			confirmed = EXCLUDED.confirmed,
			updated = now()`,
		res.TeleID, res.Name, res.Apartment, res.Phone, res.Confirmed, res.IsAdmin)
	if err != nil {
		return fmt.Errorf("residents: upsert: %w", err)
	}
	return nil
}

// SetConfirmed flips the confirmation flag.
func (r *ResidentRepo) SetConfirmed(ctx context.Context, teleID int64, confirmed bool) error {
	tag, err := r.db.ExecContext(ctx,
		`UPDATE residents SET confirmed = $2, updated = now() WHERE tele_id = $1`,
		teleID, confirmed)
	if err != nil {
		return fmt.Errorf("residents: set confirmed: %w", err)
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAdmin flips the admin flag.
func (r *ResidentRepo) SetAdmin(ctx context.Context, teleID int64, isAdmin bool) error {
	tag, err := r.db.ExecContext(ctx,
		`UPDATE residents SET is_admin = $2, updated = now() WHERE tele_id = $1`,
		teleID, isAdmin)
	if err != nil {
		return fmt.Errorf("residents: set admin: %w", err)
	}
	if n, _ := tag.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUnconfirmed returns residents awaiting confirmation, oldest first.
func (r *ResidentRepo) ListUnconfirmed(ctx context.Context) ([]Resident, error) {
	var out []Resident
	err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM residents WHERE NOT confirmed ORDER BY created`)
	if err != nil {
		return nil, fmt.Errorf("residents: list unconfirmed: %w", err)
	}
	return out, nil
}

// ListConfirmed returns all confirmed residents ordered by apartment.
func (r *ResidentRepo) ListConfirmed(ctx context.Context) ([]Resident, error) {
	var out []Resident
	err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM residents WHERE confirmed ORDER BY apartment`)
	if err != nil {
		return nil, fmt.Errorf("residents: list confirmed: %w", err)
	}
	return out, nil
}

// Delete removes a resident; meter rows cascade.
func (r *ResidentRepo) Delete(ctx context.Context, teleID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM residents WHERE tele_id = $1`, teleID)
	if err != nil {
		return fmt.Errorf("residents: delete: %w", err)
	}
	return nil
}
