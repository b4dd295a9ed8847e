package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/residentbot/storage"
)

func TestMeterEntryFlow(t *testing.T) {
	env := newTestEnv(t)
	r := env.seedResident(t, 5, "Иван", 3, "+79001234567", true)

	require.NoError(t, env.app.handleMeterChannel(env.private(5, ""), string(storage.ChannelHotKitchen)))
	assert.Equal(t, stMeterValue, env.app.engine.Current(5))

	c := env.dialog(t, 5, "100")
	assert.False(t, env.app.engine.InProgress(5))
	assert.Contains(t, c.lastSent(), "Записано")

	reading, err := env.app.meters.CurrentMonth(context.Background(), r.ID)
	require.NoError(t, err)
	require.NotNil(t, reading)
	require.NotNil(t, reading.HotKitchen)
	assert.Equal(t, 100, *reading.HotKitchen)
}

func TestMeterEntryRejectsBelowPrior(t *testing.T) {
	env := newTestEnv(t)
	r := env.seedResident(t, 5, "Иван", 3, "+79001234567", true)

	require.NoError(t, env.app.handleMeterChannel(env.private(5, ""), string(storage.ChannelColdBath)))
	env.dialog(t, 5, "100")

	require.NoError(t, env.app.handleMeterChannel(env.private(5, ""), string(storage.ChannelColdBath)))
	c := env.dialog(t, 5, "90")
	assert.Equal(t, stMeterValue, env.app.engine.Current(5))
	assert.Contains(t, c.lastSent(), "(100)")

	env.dialog(t, 5, "120")
	assert.False(t, env.app.engine.InProgress(5))

	reading, err := env.app.meters.CurrentMonth(context.Background(), r.ID)
	require.NoError(t, err)
	require.NotNil(t, reading.ColdBath)
	assert.Equal(t, 120, *reading.ColdBath)
}

func TestMeterEntryRejectsNonNumericValue(t *testing.T) {
	env := newTestEnv(t)
	env.seedResident(t, 5, "Иван", 3, "+79001234567", true)

	require.NoError(t, env.app.handleMeterChannel(env.private(5, ""), string(storage.ChannelHotBath)))
	c := env.dialog(t, 5, "сто")

	assert.Equal(t, stMeterValue, env.app.engine.Current(5))
	assert.Contains(t, c.lastSent(), "целым числом")
}

func TestMeterChannelRequiresConfirmation(t *testing.T) {
	env := newTestEnv(t)
	env.seedResident(t, 5, "Иван", 3, "+79001234567", false)

	c := env.private(5, "")
	require.NoError(t, env.app.handleMeterChannel(c, string(storage.ChannelHotKitchen)))

	assert.False(t, env.app.engine.InProgress(5))
	assert.Contains(t, c.lastSent(), "подтверждения")
}

func TestMeterMenuForUnconfirmedResident(t *testing.T) {
	env := newTestEnv(t)
	env.seedResident(t, 5, "Иван", 3, "+79001234567", false)

	c := env.private(5, "")
	require.NoError(t, env.app.showMeterMenu(c))
	assert.Contains(t, c.lastSent(), "не подтверждена")
}

func TestMeterValueWithoutChannelSelection(t *testing.T) {
	env := newTestEnv(t)
	env.seedResident(t, 5, "Иван", 3, "+79001234567", true)
	env.app.engine.Set(5, stMeterValue)

	c := env.dialog(t, 5, "50")
	assert.True(t, env.app.engine.InProgress(5))
	assert.Contains(t, c.lastSent(), "выберите счётчик")
}

func TestMeterFixBypassesMonotonicCheck(t *testing.T) {
	env := newTestEnv(t)
	r := env.seedResident(t, 5, "Иван", 8, "+79001234567", true)
	require.NoError(t, env.app.meters.Submit(context.Background(), r.ID, storage.ChannelColdKitchen, 100))

	require.NoError(t, env.app.startMeterFix(env.private(testAdminID, "")))
	assert.Equal(t, stFixApartment, env.app.engine.Current(testAdminID))

	c := env.dialog(t, testAdminID, "8")
	assert.Equal(t, stFixValue, env.app.engine.Current(testAdminID))
	assert.Contains(t, c.lastSent(), "Какой счётчик")

	require.NoError(t, env.app.handleFixChannel(env.private(testAdminID, ""), string(storage.ChannelColdKitchen)))

	c = env.dialog(t, testAdminID, "55")
	assert.False(t, env.app.engine.InProgress(testAdminID))
	assert.Contains(t, c.lastSent(), "Исправлено")

	reading, err := env.app.meters.CurrentMonth(context.Background(), r.ID)
	require.NoError(t, err)
	require.NotNil(t, reading.ColdKitchen)
	assert.Equal(t, 55, *reading.ColdKitchen)
}

func TestMeterFixUnknownApartmentReprompts(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.app.startMeterFix(env.private(testAdminID, "")))
	c := env.dialog(t, testAdminID, "9")

	assert.Equal(t, stFixApartment, env.app.engine.Current(testAdminID))
	assert.Contains(t, c.lastSent(), "никто не закреплён")
}

func TestMeterFixChannelOutsideDialog(t *testing.T) {
	env := newTestEnv(t)

	c := env.private(testAdminID, "")
	require.NoError(t, env.app.handleFixChannel(c, string(storage.ChannelHotKitchen)))
	assert.Contains(t, c.lastSent(), "/fixmeter")
}
