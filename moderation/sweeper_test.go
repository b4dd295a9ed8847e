package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/residentbot/storage"
	"github.com/m3rciful/residentbot/storage/stubs"
)

func TestSweepLiftsOnlyExpired(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	expiredID, err := ledger.Issue(ctx, storage.Sanction{TeleID: 1, ChatID: 10, Reason: "spam", ExpiresAt: &past})
	require.NoError(t, err)
	pendingID, err := ledger.Issue(ctx, storage.Sanction{TeleID: 2, ChatID: 10, Reason: "spam", ExpiresAt: &future})
	require.NoError(t, err)
	foreverID, err := ledger.Issue(ctx, storage.Sanction{TeleID: 3, ChatID: 10, Reason: "spam"})
	require.NoError(t, err)

	var notified []int64
	sweeper := NewSweeper(ledger, NotifierFunc(func(_ context.Context, s storage.Sanction) error {
		notified = append(notified, s.ID)
		return nil
	}), time.Minute)
	sweeper.now = func() time.Time { return now }

	sweeper.Sweep(ctx)

	assert.False(t, ledger.IsActive(1, 10), "expired sanction must be lifted")
	assert.True(t, ledger.IsActive(2, 10), "future expiry must stay active")
	assert.True(t, ledger.IsActive(3, 10), "nil expiry must stay active")
	assert.Equal(t, []int64{expiredID}, notified)
	_ = pendingID
	_ = foreverID
}

func TestSweepNotifyFailureDoesNotBlockLift(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Minute)
	_, err := ledger.Issue(ctx, storage.Sanction{TeleID: 1, ChatID: 10, Reason: "spam", ExpiresAt: &past})
	require.NoError(t, err)
	_, err = ledger.Issue(ctx, storage.Sanction{TeleID: 2, ChatID: 10, Reason: "spam", ExpiresAt: &past})
	require.NoError(t, err)

	calls := 0
	sweeper := NewSweeper(ledger, NotifierFunc(func(context.Context, storage.Sanction) error {
		calls++
		return errors.New("user unreachable")
	}), 0)

	sweeper.Sweep(ctx)

	assert.Equal(t, 2, calls, "every lifted sanction gets a notify attempt")
	assert.False(t, ledger.IsActive(1, 10))
	assert.False(t, ledger.IsActive(2, 10))
}

// ctxCheckedSanctions refuses writes once the passed context is cancelled,
// the way a real database driver would.
type ctxCheckedSanctions struct {
	*stubs.MemorySanctions
}

func (s *ctxCheckedSanctions) Deactivate(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemorySanctions.Deactivate(ctx, id)
}

func TestRunFinishesSweepAfterShutdownSignal(t *testing.T) {
	repo := &ctxCheckedSanctions{stubs.NewMemorySanctions()}
	ledger, err := NewLedger(context.Background(), repo)
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Minute)
	for id := int64(1); id <= 2; id++ {
		_, err := ledger.Issue(context.Background(),
			storage.Sanction{TeleID: id, ChatID: 10, Reason: "spam", ExpiresAt: &past})
		require.NoError(t, err)
	}

	// The shutdown arrives while the pass is mid-flight: the first lift's
	// notification cancels the run context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper := NewSweeper(ledger, NotifierFunc(func(context.Context, storage.Sanction) error {
		cancel()
		return nil
	}), 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}

	// Both lifts went through even though the second store write happened
	// after the cancellation.
	assert.False(t, ledger.IsActive(1, 10))
	assert.False(t, ledger.IsActive(2, 10))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ledger, _ := newTestLedger(t)
	sweeper := NewSweeper(ledger, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
