package residents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/residentbot/storage/stubs"
)

func TestValidateApartment(t *testing.T) {
	svc := NewService(stubs.NewMemoryResidents(), 120)

	n, err := svc.ValidateApartment(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = svc.ValidateApartment("0")
	assert.Error(t, err)
	_, err = svc.ValidateApartment("121")
	assert.Error(t, err)
	_, err = svc.ValidateApartment("abc")
	assert.Error(t, err)
}

func TestValidatePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+79161234567", "+79161234567", true},
		{"89161234567", "+79161234567", true},
		{"+7 916 123-45-67", "+79161234567", true},
		{"+7916123456", "", false},
		{"+791612345678", "", false},
		{"+7916123456a", "", false},
		{"79161234567", "", false},
	}
	for _, tc := range cases {
		got, err := ValidatePhone(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got, tc.in)
		} else {
			assert.Error(t, err, tc.in)
		}
	}
}

func TestRegisterAndConfirm(t *testing.T) {
	store := stubs.NewMemoryResidents()
	svc := NewService(store, 120)
	ctx := context.Background()

	r, err := svc.Register(ctx, 100, "Иван", 42, "+79161234567")
	require.NoError(t, err)
	assert.False(t, r.Confirmed)
	assert.False(t, svc.IsConfirmed(ctx, 100))

	pending, err := svc.ListUnconfirmed(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(100), pending[0].TeleID)

	confirmed, err := svc.Confirm(ctx, 100)
	require.NoError(t, err)
	assert.True(t, confirmed.Confirmed)
	assert.True(t, svc.IsConfirmed(ctx, 100))
}

func TestRegisterRejectsTakenPhone(t *testing.T) {
	store := stubs.NewMemoryResidents()
	svc := NewService(store, 120)
	ctx := context.Background()

	_, err := svc.Register(ctx, 100, "Иван", 42, "+79161234567")
	require.NoError(t, err)

	_, err = svc.Register(ctx, 200, "Пётр", 43, "+79161234567")
	assert.ErrorIs(t, err, ErrPhoneTaken)

	// Re-registering with one's own phone is allowed.
	_, err = svc.Register(ctx, 100, "Иван И.", 42, "+79161234567")
	require.NoError(t, err)
}

func TestUpdateProfileDropsConfirmation(t *testing.T) {
	store := stubs.NewMemoryResidents()
	svc := NewService(store, 120)
	ctx := context.Background()

	_, err := svc.Register(ctx, 100, "Иван", 42, "+79161234567")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, 100)
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, 100, "Иван", 44, "+79161234567")
	require.NoError(t, err)
	assert.Equal(t, 44, updated.Apartment)
	assert.False(t, updated.Confirmed)
}

func TestUpdateProfileUnknownResident(t *testing.T) {
	svc := NewService(stubs.NewMemoryResidents(), 120)
	_, err := svc.UpdateProfile(context.Background(), 999, "Никто", 1, "+79160000000")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestRejectRemovesProfile(t *testing.T) {
	store := stubs.NewMemoryResidents()
	svc := NewService(store, 120)
	ctx := context.Background()

	_, err := svc.Register(ctx, 100, "Иван", 42, "+79161234567")
	require.NoError(t, err)
	require.NoError(t, svc.Reject(ctx, 100))

	assert.False(t, svc.IsConfirmed(ctx, 100))
	pending, err := svc.ListUnconfirmed(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
