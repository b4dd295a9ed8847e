package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

const testGroupID int64 = -1001

func onlyCaseID(t *testing.T, a *App) string {
	t.Helper()
	a.casesMu.Lock()
	defer a.casesMu.Unlock()
	require.Len(t, a.cases, 1)
	for id := range a.cases {
		return id
	}
	return ""
}

func TestGroupTextIgnoresCleanMessage(t *testing.T) {
	env := newTestEnv(t, "спам")

	c := env.group(&tele.User{ID: 5, Username: "ivan"}, testGroupID, "всем привет")
	require.NoError(t, env.app.handleGroupText(c))

	assert.Zero(t, c.deleted)
	assert.Empty(t, c.sent)
	assert.Empty(t, env.app.cases)
}

func TestGroupTextIgnoresForeignChat(t *testing.T) {
	env := newTestEnv(t, "спам")

	// A violation in some other group the bot happens to sit in is not
	// this bot's business.
	c := env.group(&tele.User{ID: 5, Username: "ivan"}, -2002, "это просто СПАМ!")
	require.NoError(t, env.app.handleGroupText(c))

	assert.Zero(t, c.deleted)
	assert.Empty(t, c.sent)
	assert.Empty(t, env.app.cases)
	assert.Empty(t, env.api.sentTo(testAdminID))
}

func TestGroupViolationOpensCase(t *testing.T) {
	env := newTestEnv(t, "спам")

	c := env.group(&tele.User{ID: 5, Username: "ivan"}, testGroupID, "это просто СПАМ!")
	require.NoError(t, env.app.handleGroupText(c))

	assert.Equal(t, 1, c.deleted)
	require.NotEmpty(t, c.sent)
	assert.Contains(t, c.sent[0], "@ivan")

	prompts := env.api.sentTo(testAdminID)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "Нарушение")
	assert.Len(t, env.app.cases, 1)
}

func TestModMuteIssuesSanction(t *testing.T) {
	env := newTestEnv(t, "спам")

	violator := &tele.User{ID: 5, Username: "ivan"}
	require.NoError(t, env.app.handleGroupText(env.group(violator, testGroupID, "спам")))
	caseID := onlyCaseID(t, env.app)

	c := env.private(testAdminID, "")
	require.NoError(t, env.app.handleModMute(c, caseID))

	assert.True(t, env.app.ledger.IsActive(5, testGroupID))
	assert.Empty(t, env.app.cases)
	assert.Contains(t, c.lastSent(), "на 30 минут")

	active, err := env.sanctions.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(5), active[0].TeleID)
	assert.Equal(t, testGroupID, active[0].ChatID)
	require.NotNil(t, active[0].ExpiresAt)

	notices := env.api.sentTo(5)
	require.NotEmpty(t, notices)
	assert.Contains(t, notices[len(notices)-1].Text, "ограничены на 30 минут")

	// The case is consumed by the verdict.
	c = env.private(testAdminID, "")
	require.NoError(t, env.app.handleModMute(c, caseID))
	assert.Contains(t, c.lastSent(), "уже обработан")
}

func TestModMuteRejectsDuplicateActive(t *testing.T) {
	env := newTestEnv(t, "спам")
	violator := &tele.User{ID: 5, Username: "ivan"}

	require.NoError(t, env.app.handleGroupText(env.group(violator, testGroupID, "спам")))
	first := onlyCaseID(t, env.app)
	require.NoError(t, env.app.handleModMute(env.private(testAdminID, ""), first))

	// The suppression gate catches further messages, but a stale case for
	// the same user may still reach the moderator.
	second := env.app.openCase(moderationCase{TeleID: 5, ChatID: testGroupID, Username: "@ivan"})

	c := env.private(testAdminID, "")
	require.NoError(t, env.app.handleModMute(c, second))
	assert.Contains(t, c.lastSent(), "уже есть активное ограничение")

	active, err := env.sanctions.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestSanctionedUserMessagesSuppressed(t *testing.T) {
	env := newTestEnv(t, "спам")
	violator := &tele.User{ID: 5, Username: "ivan"}

	require.NoError(t, env.app.handleGroupText(env.group(violator, testGroupID, "спам")))
	require.NoError(t, env.app.handleModMute(env.private(testAdminID, ""), onlyCaseID(t, env.app)))

	// Even a clean message is removed while the sanction is active.
	c := env.group(violator, testGroupID, "всем привет")
	require.NoError(t, env.app.handleGroupText(c))

	assert.Equal(t, 1, c.deleted)
	assert.Empty(t, env.app.cases)
}

func TestModIgnoreClosesCaseWithoutSanction(t *testing.T) {
	env := newTestEnv(t, "спам")
	violator := &tele.User{ID: 5, Username: "ivan"}

	require.NoError(t, env.app.handleGroupText(env.group(violator, testGroupID, "спам")))
	caseID := onlyCaseID(t, env.app)

	c := env.private(testAdminID, "")
	require.NoError(t, env.app.handleModIgnore(c, caseID))

	assert.Contains(t, c.lastSent(), "пропущено")
	assert.Empty(t, env.app.cases)
	assert.False(t, env.app.ledger.IsActive(5, testGroupID))
}

func TestAdminSyncMarksChatAdmins(t *testing.T) {
	env := newTestEnv(t)
	env.seedResident(t, testAdminID, "Админ", 1, "+79001112233", true)

	c := env.group(&tele.User{ID: testAdminID}, testGroupID, "/admin")
	require.NoError(t, env.app.handleAdminSync(c))

	r, err := env.residents.GetByTeleID(context.Background(), testAdminID)
	require.NoError(t, err)
	assert.True(t, r.IsAdmin)
	assert.Contains(t, c.lastSent(), "обновлён")
}

func TestAdminSyncRequiresGroupChat(t *testing.T) {
	env := newTestEnv(t)

	c := env.private(testAdminID, "/admin")
	require.NoError(t, env.app.handleAdminSync(c))
	assert.Contains(t, c.lastSent(), "в чате дома")
}
