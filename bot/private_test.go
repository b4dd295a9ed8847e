package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func TestStartForUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	c := env.private(7, "/start")
	require.NoError(t, env.app.handleStart(c))
	assert.Contains(t, c.lastSent(), "Зарегистрируйтесь")
}

func TestStartForPendingResident(t *testing.T) {
	env := newTestEnv(t)
	env.seedResident(t, 7, "Иван", 12, "+79001234567", false)

	c := env.private(7, "/start")
	require.NoError(t, env.app.handleStart(c))
	assert.Contains(t, c.lastSent(), "Иван")
	assert.Contains(t, c.lastSent(), "ожидает подтверждения")
}

func TestStartForConfirmedResident(t *testing.T) {
	env := newTestEnv(t)
	env.seedResident(t, 7, "Иван", 12, "+79001234567", true)

	c := env.private(7, "/start")
	require.NoError(t, env.app.handleStart(c))
	assert.Contains(t, c.lastSent(), "Здравствуйте, Иван!")
	assert.NotContains(t, c.lastSent(), "ожидает")
}

func TestStartAbortsActiveDialog(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.app.startRegistration(env.private(7, "")))
	require.True(t, env.app.engine.InProgress(7))

	require.NoError(t, env.app.handleStart(env.private(7, "/start")))
	assert.False(t, env.app.engine.InProgress(7))
}

func TestStartIgnoredInGroupChat(t *testing.T) {
	env := newTestEnv(t)

	c := env.group(&tele.User{ID: 7}, testGroupID, "/start")
	require.NoError(t, env.app.handleStart(c))
	assert.Empty(t, c.sent)
}

func TestCancelCommand(t *testing.T) {
	env := newTestEnv(t)

	c := env.private(7, "/cancel")
	require.NoError(t, env.app.handleCancel(c))
	assert.Contains(t, c.lastSent(), "нет активного диалога")

	require.NoError(t, env.app.startRegistration(env.private(7, "")))
	c = env.private(7, "/cancel")
	require.NoError(t, env.app.handleCancel(c))
	assert.Contains(t, c.lastSent(), "прерван")
	assert.False(t, env.app.engine.InProgress(7))
}

func TestResidentReviewListsPending(t *testing.T) {
	env := newTestEnv(t)
	env.seedResident(t, 7, "Иван", 12, "+79001234567", false)
	env.seedResident(t, 8, "Анна", 40, "+79005554433", true)

	c := env.private(testAdminID, "/residents")
	require.NoError(t, env.app.handleResidentReview(c))

	require.Len(t, c.sent, 1)
	assert.Contains(t, c.sent[0], "Иван")
	assert.Contains(t, c.sent[0], "кв. 12")
}

func TestResidentReviewEmpty(t *testing.T) {
	env := newTestEnv(t)

	c := env.private(testAdminID, "/residents")
	require.NoError(t, env.app.handleResidentReview(c))
	assert.Contains(t, c.lastSent(), "Нет заявок")
}
