// Package storage defines the persistence boundary of the bot. Repositories
// are addressed by natural keys; sqlx implementations live alongside the
// interfaces, in-memory implementations for tests live in stubs/.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a row addressed by a natural key is absent.
var ErrNotFound = errors.New("storage: not found")

// ResidentStore persists resident profiles.
type ResidentStore interface {
	GetByTeleID(ctx context.Context, teleID int64) (*Resident, error)
	GetByApartment(ctx context.Context, apartment int) (*Resident, error)
	PhoneTaken(ctx context.Context, phone string, exceptTeleID int64) (bool, error)
	Upsert(ctx context.Context, r *Resident) error
	SetConfirmed(ctx context.Context, teleID int64, confirmed bool) error
	SetAdmin(ctx context.Context, teleID int64, isAdmin bool) error
	ListUnconfirmed(ctx context.Context) ([]Resident, error)
	ListConfirmed(ctx context.Context) ([]Resident, error)
	Delete(ctx context.Context, teleID int64) error
}

// MeterStore persists monthly meter readings.
type MeterStore interface {
	GetForMonth(ctx context.Context, residentID int64, year, month int) (*MeterReading, error)
	Upsert(ctx context.Context, m *MeterReading) error
}

// SanctionStore persists sanctions. Deactivation is the terminal state;
// there is no delete.
type SanctionStore interface {
	Insert(ctx context.Context, s *Sanction) (int64, error)
	GetByID(ctx context.Context, id int64) (*Sanction, error)
	Deactivate(ctx context.Context, id int64) error
	ListActive(ctx context.Context) ([]Sanction, error)
}

// WordStore persists the restricted word set.
type WordStore interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, word string) error
	Rename(ctx context.Context, from, to string) error
	Remove(ctx context.Context, word string) error
}
