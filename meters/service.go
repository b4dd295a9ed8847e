// Package meters implements monthly meter reading collection with
// monotonic-value validation against the last recorded state.
package meters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/residentbot/core/logger"
	"github.com/m3rciful/residentbot/storage"
)

// BelowPriorError rejects a reading lower than the last recorded value.
type BelowPriorError struct {
	Prior int
}

// Error names the prior value so the user can see what they undercut.
func (e *BelowPriorError) Error() string {
	return fmt.Sprintf("показание не может быть меньше предыдущего (%d)", e.Prior)
}

// ChannelTitles maps counters to their user-facing names.
var ChannelTitles = map[storage.Channel]string{
	storage.ChannelHotKitchen:  "Горячая вода (кухня)",
	storage.ChannelColdKitchen: "Холодная вода (кухня)",
	storage.ChannelHotBath:     "Горячая вода (ванная)",
	storage.ChannelColdBath:    "Холодная вода (ванная)",
}

// Service records readings per resident and calendar month.
type Service struct {
	store storage.MeterStore
	now   func() time.Time
}

// NewService builds the meter service.
func NewService(store storage.MeterStore) *Service {
	return &Service{store: store, now: time.Now}
}

// ParseValue validates that the input is a non-negative integer reading.
func ParseValue(input string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || v < 0 {
		return 0, fmt.Errorf("показание должно быть целым числом")
	}
	return v, nil
}

// Prior returns the reference value a new reading must not undercut: the
// value already stored this month, or last month's value when the current
// month has none.
func (s *Service) Prior(ctx context.Context, residentID int64, ch storage.Channel) (*int, error) {
	year, month := s.period(0)
	cur, err := s.store.GetForMonth(ctx, residentID, year, month)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if v := cur.Value(ch); v != nil {
		return v, nil
	}

	prevYear, prevMonth := s.period(-1)
	prev, err := s.store.GetForMonth(ctx, residentID, prevYear, prevMonth)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return prev.Value(ch), nil
}

// Submit validates and records one counter value for the current month.
func (s *Service) Submit(ctx context.Context, residentID int64, ch storage.Channel, value int) error {
	prior, err := s.Prior(ctx, residentID, ch)
	if err != nil {
		return fmt.Errorf("load prior reading: %w", err)
	}
	if prior != nil && value < *prior {
		return &BelowPriorError{Prior: *prior}
	}

	year, month := s.period(0)
	reading := &storage.MeterReading{
		ResidentID:  residentID,
		PeriodYear:  year,
		PeriodMonth: month,
	}
	reading.SetValue(ch, value)
	if err := s.store.Upsert(ctx, reading); err != nil {
		return fmt.Errorf("save reading: %w", err)
	}

	logger.Info(ctx, "meters", "reading.saved",
		slog.Int64("resident_id", residentID),
		slog.String("channel", string(ch)),
		slog.Int("value", value),
	)
	return nil
}

// Correct overwrites one counter value without the monotonic check. Admin
// only; used to fix typos reported by residents.
func (s *Service) Correct(ctx context.Context, residentID int64, ch storage.Channel, value int) error {
	year, month := s.period(0)
	reading := &storage.MeterReading{
		ResidentID:  residentID,
		PeriodYear:  year,
		PeriodMonth: month,
	}
	reading.SetValue(ch, value)
	if err := s.store.Upsert(ctx, reading); err != nil {
		return fmt.Errorf("save correction: %w", err)
	}
	logger.Info(ctx, "meters", "reading.corrected",
		slog.Int64("resident_id", residentID),
		slog.String("channel", string(ch)),
		slog.Int("value", value),
	)
	return nil
}

// CurrentMonth returns this month's readings for the resident, or nil when
// nothing has been submitted yet.
func (s *Service) CurrentMonth(ctx context.Context, residentID int64) (*storage.MeterReading, error) {
	year, month := s.period(0)
	r, err := s.store.GetForMonth(ctx, residentID, year, month)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return r, err
}

// period returns the (year, month) shifted by the given number of months.
// Plain month arithmetic, so the shift is stable on month-end dates.
func (s *Service) period(offset int) (int, int) {
	t := s.now().UTC()
	months := t.Year()*12 + int(t.Month()) - 1 + offset
	return months / 12, months%12 + 1
}
