package moderation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/m3rciful/residentbot/storage"
)

// ErrDuplicateActiveSanction is returned by Issue when the (user, chat)
// pair already has an active sanction.
var ErrDuplicateActiveSanction = errors.New("moderation: active sanction already exists")

type pairKey struct {
	teleID int64
	chatID int64
}

// Ledger owns active sanctions. A cheap in-memory index keyed by
// (user, chat) mirrors the persisted rows so IsActive stays O(1) on the
// inbound-message hot path. Index and store mutations share one mutex so a
// lift and an issue for the same pair cannot interleave.
type Ledger struct {
	mu    sync.RWMutex
	repo  storage.SanctionStore
	index map[pairKey]int64
}

// NewLedger builds a ledger and seeds the active index from storage.
func NewLedger(ctx context.Context, repo storage.SanctionStore) (*Ledger, error) {
	l := &Ledger{repo: repo, index: make(map[pairKey]int64)}
	active, err := repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: seed index: %w", err)
	}
	for _, s := range active {
		l.index[pairKey{s.TeleID, s.ChatID}] = s.ID
	}
	return l, nil
}

// Issue records a new active sanction. It fails with
// ErrDuplicateActiveSanction when one already exists for the pair.
func (l *Ledger) Issue(ctx context.Context, s storage.Sanction) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := pairKey{s.TeleID, s.ChatID}
	if _, exists := l.index[key]; exists {
		return 0, ErrDuplicateActiveSanction
	}

	s.Active = true
	id, err := l.repo.Insert(ctx, &s)
	if err != nil {
		return 0, fmt.Errorf("ledger: issue: %w", err)
	}
	l.index[key] = id
	return id, nil
}

// IsActive reports whether the user is sanctioned in the chat.
func (l *Ledger) IsActive(teleID, chatID int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.index[pairKey{teleID, chatID}]
	return ok
}

// Lift deactivates a sanction. Lifting an already-inactive or unknown
// sanction is a no-op.
func (l *Ledger) Lift(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.repo.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ledger: lift lookup: %w", err)
	}
	if !s.Active {
		return nil
	}
	if err := l.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("ledger: lift: %w", err)
	}
	delete(l.index, pairKey{s.TeleID, s.ChatID})
	return nil
}

// ListActive returns current active sanctions straight from storage.
func (l *Ledger) ListActive(ctx context.Context) ([]storage.Sanction, error) {
	return l.repo.ListActive(ctx)
}
