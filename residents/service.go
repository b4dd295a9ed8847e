// Package residents implements resident registration, profile editing, and
// the admin confirmation flow.
package residents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/m3rciful/residentbot/core/logger"
	"github.com/m3rciful/residentbot/storage"
)

var (
	// ErrPhoneTaken is returned when another resident already registered the phone.
	ErrPhoneTaken = errors.New("residents: phone already registered")
	// ErrNotRegistered is returned for operations on an unknown resident.
	ErrNotRegistered = errors.New("residents: not registered")
)

// Service owns resident profiles and their confirmation state.
type Service struct {
	store storage.ResidentStore
	// maxApartment is the highest valid apartment number in the building.
	maxApartment int
}

// NewService builds the resident service.
func NewService(store storage.ResidentStore, maxApartment int) *Service {
	return &Service{store: store, maxApartment: maxApartment}
}

// ValidateApartment parses an apartment number and checks the building range.
func (s *Service) ValidateApartment(input string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("номер квартиры должен быть числом")
	}
	if n < 1 || n > s.maxApartment {
		return 0, fmt.Errorf("номер квартиры должен быть от 1 до %d", s.maxApartment)
	}
	return n, nil
}

// ValidatePhone normalizes and checks a phone in the +7XXXXXXXXXX format.
func ValidatePhone(input string) (string, error) {
	phone := strings.TrimSpace(input)
	phone = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, phone)
	if strings.HasPrefix(phone, "8") && len(phone) == 11 {
		phone = "+7" + phone[1:]
	}
	if !strings.HasPrefix(phone, "+7") || len(phone) != 12 {
		return "", fmt.Errorf("телефон должен быть в формате +7XXXXXXXXXX")
	}
	for _, r := range phone[2:] {
		if !unicode.IsDigit(r) {
			return "", fmt.Errorf("телефон должен быть в формате +7XXXXXXXXXX")
		}
	}
	return phone, nil
}

// Get returns the resident by Telegram ID, or storage.ErrNotFound.
func (s *Service) Get(ctx context.Context, teleID int64) (*storage.Resident, error) {
	return s.store.GetByTeleID(ctx, teleID)
}

// GetByApartment returns the resident registered for the apartment.
func (s *Service) GetByApartment(ctx context.Context, apartment int) (*storage.Resident, error) {
	return s.store.GetByApartment(ctx, apartment)
}

// IsConfirmed reports whether the user is a confirmed resident.
func (s *Service) IsConfirmed(ctx context.Context, teleID int64) bool {
	r, err := s.store.GetByTeleID(ctx, teleID)
	return err == nil && r.Confirmed
}

// IsAdmin reports whether the user is a confirmed admin resident.
func (s *Service) IsAdmin(ctx context.Context, teleID int64) bool {
	r, err := s.store.GetByTeleID(ctx, teleID)
	return err == nil && r.Confirmed && r.IsAdmin
}

// Register stores a new or re-submitted profile in unconfirmed state. The
// phone must not belong to another resident.
func (s *Service) Register(ctx context.Context, teleID int64, name string, apartment int, phone string) (*storage.Resident, error) {
	taken, err := s.store.PhoneTaken(ctx, phone, teleID)
	if err != nil {
		return nil, fmt.Errorf("check phone: %w", err)
	}
	if taken {
		return nil, ErrPhoneTaken
	}

	r := &storage.Resident{
		TeleID:    teleID,
		Name:      strings.TrimSpace(name),
		Apartment: apartment,
		Phone:     phone,
		Confirmed: false,
	}
	if err := s.store.Upsert(ctx, r); err != nil {
		return nil, fmt.Errorf("save resident: %w", err)
	}

	logger.Info(ctx, "residents", "resident.registered",
		slog.Int64("user_id", teleID),
		slog.Int("apartment", apartment),
	)
	return r, nil
}

// UpdateProfile re-saves an existing profile with changed fields and drops
// the confirmed flag so an admin re-checks the data.
func (s *Service) UpdateProfile(ctx context.Context, teleID int64, name string, apartment int, phone string) (*storage.Resident, error) {
	if _, err := s.store.GetByTeleID(ctx, teleID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, err
	}
	return s.Register(ctx, teleID, name, apartment, phone)
}

// Confirm marks the resident as confirmed and returns the updated profile.
func (s *Service) Confirm(ctx context.Context, teleID int64) (*storage.Resident, error) {
	if err := s.store.SetConfirmed(ctx, teleID, true); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("confirm resident: %w", err)
	}
	r, err := s.store.GetByTeleID(ctx, teleID)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "residents", "resident.confirmed",
		slog.Int64("user_id", teleID),
		slog.Int("apartment", r.Apartment),
	)
	return r, nil
}

// Reject removes an unconfirmed profile so the user may register again.
func (s *Service) Reject(ctx context.Context, teleID int64) error {
	if err := s.store.Delete(ctx, teleID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotRegistered
		}
		return fmt.Errorf("reject resident: %w", err)
	}
	logger.Info(ctx, "residents", "resident.rejected",
		slog.Int64("user_id", teleID),
	)
	return nil
}

// SetAdmin flips the admin flag for a registered resident. Unknown users
// are skipped silently so syncing a chat's admin list stays best effort.
func (s *Service) SetAdmin(ctx context.Context, teleID int64, isAdmin bool) error {
	err := s.store.SetAdmin(ctx, teleID, isAdmin)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// ListUnconfirmed returns profiles awaiting admin review.
func (s *Service) ListUnconfirmed(ctx context.Context) ([]storage.Resident, error) {
	return s.store.ListUnconfirmed(ctx)
}

// ListConfirmed returns all confirmed residents, e.g. for broadcasts.
func (s *Service) ListConfirmed(ctx context.Context) ([]storage.Resident, error) {
	return s.store.ListConfirmed(ctx)
}
