package moderation

import (
	"context"
	"time"

	"log/slog"

	"github.com/m3rciful/residentbot/core/logger"
	"github.com/m3rciful/residentbot/storage"
)

// DefaultSweepInterval is used when no interval is configured.
const DefaultSweepInterval = 60 * time.Second

// Notifier delivers the expiry notice to an unmuted user. Delivery is best
// effort: a failure never blocks the lift.
type Notifier interface {
	NotifyLifted(ctx context.Context, s storage.Sanction) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, s storage.Sanction) error

// NotifyLifted executes the underlying function.
func (f NotifierFunc) NotifyLifted(ctx context.Context, s storage.Sanction) error {
	return f(ctx, s)
}

// Sweeper periodically lifts sanctions whose expiry has passed. It runs
// independently of update handling and contends with it only on the
// ledger's index.
type Sweeper struct {
	ledger   *Ledger
	notify   Notifier
	interval time.Duration
	now      func() time.Time
}

// NewSweeper builds a sweeper. A zero interval selects the default.
func NewSweeper(ledger *Ledger, notify Notifier, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		ledger:   ledger,
		notify:   notify,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps on a fixed interval until ctx is done. Cancellation is only
// observed between sweeps, so an in-flight sweep always completes.
func (s *Sweeper) Run(ctx context.Context) {
	logger.Info(ctx, "mod.sweep", "sweeper.start",
		slog.Duration("interval", s.interval),
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "mod.sweep", "sweeper.stop")
			return
		case <-ticker.C:
			// A shutdown signal must not abort store calls mid-pass; it is
			// observed only in the select above.
			s.Sweep(context.WithoutCancel(ctx))
		}
	}
}

// Sweep performs one expiry pass. Each sanction is processed independently:
// a failed lift or notification does not abort the rest of the pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	active, err := s.ledger.ListActive(ctx)
	if err != nil {
		logger.Warn(ctx, "mod.sweep", "sweep.list_failed",
			slog.String("err", err.Error()),
		)
		return
	}

	// All expiries are compared in UTC to avoid local-clock drift.
	now := s.now().UTC()
	lifted := 0
	for _, sanction := range active {
		if sanction.ExpiresAt == nil || !sanction.ExpiresAt.UTC().Before(now) {
			continue
		}
		if err := s.ledger.Lift(ctx, sanction.ID); err != nil {
			logger.Warn(ctx, "mod.sweep", "sweep.lift_failed",
				slog.Int64("sanction_id", sanction.ID),
				slog.String("err", err.Error()),
			)
			continue
		}
		lifted++
		if s.notify == nil {
			continue
		}
		if err := s.notify.NotifyLifted(ctx, sanction); err != nil {
			logger.Warn(ctx, "mod.sweep", "sweep.notify_failed",
				slog.Int64("sanction_id", sanction.ID),
				slog.Int64("user_id", sanction.TeleID),
				slog.String("err", err.Error()),
			)
		}
	}
	if lifted > 0 {
		logger.Info(ctx, "mod.sweep", "sweep.done",
			slog.Int("checked", len(active)),
			slog.Int("lifted", lifted),
		)
	}
}
