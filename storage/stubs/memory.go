// Package stubs provides in-memory storage implementations for tests and
// local development. Behaviour mirrors the sqlx repositories, including the
// one-row-per-month meter constraint and terminal sanction deactivation.
package stubs

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/residentbot/storage"
)

// MemoryResidents is an in-memory storage.ResidentStore.
type MemoryResidents struct {
	mu     sync.Mutex
	nextID int64
	byTele map[int64]*storage.Resident
}

// NewMemoryResidents returns an empty store.
func NewMemoryResidents() *MemoryResidents {
	return &MemoryResidents{nextID: 1, byTele: make(map[int64]*storage.Resident)}
}

func (s *MemoryResidents) GetByTeleID(_ context.Context, teleID int64) (*storage.Resident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byTele[teleID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryResidents) GetByApartment(_ context.Context, apartment int) (*storage.Resident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.byTele {
		if r.Apartment == apartment {
			cp := *r
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *MemoryResidents) PhoneTaken(_ context.Context, phone string, exceptTeleID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.byTele {
		if r.Phone == phone && r.TeleID != exceptTeleID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryResidents) Upsert(_ context.Context, r *storage.Resident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byTele[r.TeleID]; ok {
		existing.Name = r.Name
		existing.Apartment = r.Apartment
		existing.Phone = r.Phone
		existing.Confirmed = r.Confirmed
		existing.Updated = time.Now()
		return nil
	}
	cp := *r
	cp.ID = s.nextID
	s.nextID++
	cp.Created = time.Now()
	cp.Updated = cp.Created
	s.byTele[r.TeleID] = &cp
	r.ID = cp.ID
	return nil
}

func (s *MemoryResidents) SetConfirmed(_ context.Context, teleID int64, confirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byTele[teleID]
	if !ok {
		return storage.ErrNotFound
	}
	r.Confirmed = confirmed
	return nil
}

func (s *MemoryResidents) SetAdmin(_ context.Context, teleID int64, isAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byTele[teleID]
	if !ok {
		return storage.ErrNotFound
	}
	r.IsAdmin = isAdmin
	return nil
}

func (s *MemoryResidents) ListUnconfirmed(_ context.Context) ([]storage.Resident, error) {
	return s.list(func(r *storage.Resident) bool { return !r.Confirmed }), nil
}

func (s *MemoryResidents) ListConfirmed(_ context.Context) ([]storage.Resident, error) {
	return s.list(func(r *storage.Resident) bool { return r.Confirmed }), nil
}

func (s *MemoryResidents) list(keep func(*storage.Resident) bool) []storage.Resident {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.Resident
	for _, r := range s.byTele {
		if keep(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Apartment < out[j].Apartment })
	return out
}

func (s *MemoryResidents) Delete(_ context.Context, teleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byTele, teleID)
	return nil
}

type monthKey struct {
	resident    int64
	year, month int
}

// MemoryMeters is an in-memory storage.MeterStore.
type MemoryMeters struct {
	mu     sync.Mutex
	nextID int64
	rows   map[monthKey]*storage.MeterReading
}

// NewMemoryMeters returns an empty store.
func NewMemoryMeters() *MemoryMeters {
	return &MemoryMeters{nextID: 1, rows: make(map[monthKey]*storage.MeterReading)}
}

func (s *MemoryMeters) GetForMonth(_ context.Context, residentID int64, year, month int) (*storage.MeterReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rows[monthKey{residentID, year, month}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryMeters) Upsert(_ context.Context, m *storage.MeterReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := monthKey{m.ResidentID, m.PeriodYear, m.PeriodMonth}
	if existing, ok := s.rows[key]; ok {
		for _, ch := range storage.Channels {
			if v := m.Value(ch); v != nil {
				existing.SetValue(ch, *v)
			}
		}
		existing.Updated = time.Now()
		return nil
	}
	cp := *m
	cp.ID = s.nextID
	s.nextID++
	cp.Created = time.Now()
	cp.Updated = cp.Created
	s.rows[key] = &cp
	return nil
}

// MemorySanctions is an in-memory storage.SanctionStore.
type MemorySanctions struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*storage.Sanction
}

// NewMemorySanctions returns an empty store.
func NewMemorySanctions() *MemorySanctions {
	return &MemorySanctions{nextID: 1, rows: make(map[int64]*storage.Sanction)}
}

func (s *MemorySanctions) Insert(_ context.Context, sn *storage.Sanction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sn
	cp.ID = s.nextID
	s.nextID++
	cp.Created = time.Now()
	s.rows[cp.ID] = &cp
	return cp.ID, nil
}

func (s *MemorySanctions) GetByID(_ context.Context, id int64) (*storage.Sanction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sn, ok := s.rows[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *sn
	return &cp, nil
}

func (s *MemorySanctions) Deactivate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sn, ok := s.rows[id]; ok {
		sn.Active = false
	}
	return nil
}

func (s *MemorySanctions) ListActive(_ context.Context) ([]storage.Sanction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.Sanction
	for _, sn := range s.rows {
		if sn.Active {
			out = append(out, *sn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemoryWords is an in-memory storage.WordStore.
type MemoryWords struct {
	mu    sync.Mutex
	words map[string]struct{}
}

// NewMemoryWords returns a store seeded with the given words.
func NewMemoryWords(words ...string) *MemoryWords {
	s := &MemoryWords{words: make(map[string]struct{})}
	for _, w := range words {
		s.words[strings.ToLower(w)] = struct{}{}
	}
	return s
}

func (s *MemoryWords) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryWords) Add(_ context.Context, word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.words[strings.ToLower(word)] = struct{}{}
	return nil
}

func (s *MemoryWords) Rename(_ context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.words, strings.ToLower(from))
	s.words[strings.ToLower(to)] = struct{}{}
	return nil
}

func (s *MemoryWords) Remove(_ context.Context, word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.words, strings.ToLower(word))
	return nil
}
