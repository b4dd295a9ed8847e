package meters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/residentbot/storage"
	"github.com/m3rciful/residentbot/storage/stubs"
)

func fixedService(store storage.MeterStore, t time.Time) *Service {
	s := NewService(store)
	s.now = func() time.Time { return t }
	return s
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(" 120 ")
	require.NoError(t, err)
	assert.Equal(t, 120, v)

	_, err = ParseValue("12a")
	assert.Error(t, err)

	_, err = ParseValue("-5")
	assert.Error(t, err)
}

func TestSubmitFirstReading(t *testing.T) {
	store := stubs.NewMemoryMeters()
	svc := fixedService(store, time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC))

	require.NoError(t, svc.Submit(context.Background(), 1, storage.ChannelHotKitchen, 120))

	saved, err := store.GetForMonth(context.Background(), 1, 2026, 3)
	require.NoError(t, err)
	require.NotNil(t, saved.HotKitchen)
	assert.Equal(t, 120, *saved.HotKitchen)
}

func TestSubmitRejectsBelowCurrentMonth(t *testing.T) {
	store := stubs.NewMemoryMeters()
	svc := fixedService(store, time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, svc.Submit(ctx, 1, storage.ChannelHotKitchen, 120))

	err := svc.Submit(ctx, 1, storage.ChannelHotKitchen, 100)
	var below *BelowPriorError
	require.ErrorAs(t, err, &below)
	assert.Equal(t, 120, below.Prior)
	assert.Contains(t, err.Error(), "120")

	// The stored value stays untouched after the rejection.
	saved, err := store.GetForMonth(ctx, 1, 2026, 3)
	require.NoError(t, err)
	assert.Equal(t, 120, *saved.HotKitchen)
}

func TestSubmitChecksPreviousMonth(t *testing.T) {
	store := stubs.NewMemoryMeters()
	ctx := context.Background()

	feb := fixedService(store, time.Date(2026, time.February, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, feb.Submit(ctx, 1, storage.ChannelColdBath, 80))

	mar := fixedService(store, time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC))
	err := mar.Submit(ctx, 1, storage.ChannelColdBath, 75)
	var below *BelowPriorError
	require.ErrorAs(t, err, &below)
	assert.Equal(t, 80, below.Prior)

	require.NoError(t, mar.Submit(ctx, 1, storage.ChannelColdBath, 82))
}

func TestSubmitEqualToPriorAccepted(t *testing.T) {
	store := stubs.NewMemoryMeters()
	svc := fixedService(store, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, svc.Submit(ctx, 1, storage.ChannelHotBath, 50))
	require.NoError(t, svc.Submit(ctx, 1, storage.ChannelHotBath, 50))
}

func TestSubmitChannelsIndependent(t *testing.T) {
	store := stubs.NewMemoryMeters()
	svc := fixedService(store, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, svc.Submit(ctx, 1, storage.ChannelHotKitchen, 500))
	require.NoError(t, svc.Submit(ctx, 1, storage.ChannelColdKitchen, 10))

	saved, err := store.GetForMonth(ctx, 1, 2026, 3)
	require.NoError(t, err)
	assert.Equal(t, 500, *saved.HotKitchen)
	assert.Equal(t, 10, *saved.ColdKitchen)
	assert.Nil(t, saved.HotBath)
}

func TestCorrectSkipsMonotonicCheck(t *testing.T) {
	store := stubs.NewMemoryMeters()
	svc := fixedService(store, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, svc.Submit(ctx, 1, storage.ChannelHotKitchen, 500))
	require.NoError(t, svc.Correct(ctx, 1, storage.ChannelHotKitchen, 50))

	saved, err := store.GetForMonth(ctx, 1, 2026, 3)
	require.NoError(t, err)
	assert.Equal(t, 50, *saved.HotKitchen)
}

func TestPeriodYearBoundary(t *testing.T) {
	store := stubs.NewMemoryMeters()
	ctx := context.Background()

	dec := fixedService(store, time.Date(2025, time.December, 31, 23, 0, 0, 0, time.UTC))
	require.NoError(t, dec.Submit(ctx, 1, storage.ChannelHotKitchen, 100))

	jan := fixedService(store, time.Date(2026, time.January, 31, 12, 0, 0, 0, time.UTC))
	prior, err := jan.Prior(ctx, 1, storage.ChannelHotKitchen)
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, 100, *prior)
}

func TestCurrentMonthMissing(t *testing.T) {
	svc := fixedService(stubs.NewMemoryMeters(), time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	r, err := svc.CurrentMonth(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, r)
}
