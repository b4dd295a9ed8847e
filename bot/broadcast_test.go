package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastFansOutToPorchOnly(t *testing.T) {
	env := newTestEnv(t)
	// 120 apartments over 4 porches: porch 1 covers 1..30.
	env.seedResident(t, 11, "Иван", 5, "+79000000011", true)
	env.seedResident(t, 12, "Пётр", 35, "+79000000012", true)
	env.seedResident(t, 13, "Анна", 20, "+79000000013", true)
	env.seedResident(t, 14, "Олег", 10, "+79000000014", false)

	require.NoError(t, env.app.startBroadcast(env.private(testAdminID, "")))
	assert.Equal(t, stBroadcastPorch, env.app.engine.Current(testAdminID))

	env.dialog(t, testAdminID, "1")
	env.dialog(t, testAdminID, "Завтра отключение воды")

	c := env.dialog(t, testAdminID, "да")
	assert.False(t, env.app.engine.InProgress(testAdminID))
	assert.Contains(t, c.lastSent(), "подъезда 1 (2")

	for _, teleID := range []int64{11, 13} {
		got := env.api.sentTo(teleID)
		require.Len(t, got, 1, "tele_id %d", teleID)
		assert.Contains(t, got[0].Text, "Завтра отключение воды")
	}
	// Another porch and an unconfirmed profile stay quiet.
	assert.Empty(t, env.api.sentTo(12))
	assert.Empty(t, env.api.sentTo(14))
}

func TestBroadcastConfirmShowsDraft(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.app.startBroadcast(env.private(testAdminID, "")))
	env.dialog(t, testAdminID, "2")

	c := env.dialog(t, testAdminID, "Собрание в субботу")
	assert.Equal(t, stBroadcastConfirm, env.app.engine.Current(testAdminID))
	assert.Contains(t, c.lastSent(), "подъезда 2")
	assert.Contains(t, c.lastSent(), "Собрание в субботу")
}

func TestBroadcastDeclined(t *testing.T) {
	env := newTestEnv(t)
	env.seedResident(t, 11, "Иван", 5, "+79000000011", true)

	require.NoError(t, env.app.startBroadcast(env.private(testAdminID, "")))
	env.dialog(t, testAdminID, "1")
	env.dialog(t, testAdminID, "Черновик")

	c := env.dialog(t, testAdminID, "нет")
	assert.False(t, env.app.engine.InProgress(testAdminID))
	assert.Contains(t, c.lastSent(), "отменена")
	assert.Empty(t, env.api.sentTo(11))
}

func TestBroadcastRejectsBadPorch(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.app.startBroadcast(env.private(testAdminID, "")))

	c := env.dialog(t, testAdminID, "9")
	assert.Equal(t, stBroadcastPorch, env.app.engine.Current(testAdminID))
	assert.Contains(t, c.lastSent(), "от 1 до 4")
}

func TestBroadcastRejectsVagueConfirmation(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.app.startBroadcast(env.private(testAdminID, "")))
	env.dialog(t, testAdminID, "1")
	env.dialog(t, testAdminID, "Текст")

	c := env.dialog(t, testAdminID, "наверное")
	assert.Equal(t, stBroadcastConfirm, env.app.engine.Current(testAdminID))
	assert.Contains(t, c.lastSent(), "«да» или «нет»")
}

func TestPorchOf(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, 1, env.app.porchOf(1))
	assert.Equal(t, 1, env.app.porchOf(30))
	assert.Equal(t, 2, env.app.porchOf(31))
	assert.Equal(t, 4, env.app.porchOf(120))
}
