package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordAddDialog(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.app.handleWordAdd(env.private(testAdminID, "")))
	assert.Equal(t, stWordAdd, env.app.engine.Current(testAdminID))

	env.dialog(t, testAdminID, "Спам")
	assert.False(t, env.app.engine.InProgress(testAdminID))

	assert.True(t, env.app.wordlist.Contains("спам"))
	assert.True(t, env.app.classifier.Classify("тут спам"))

	stored, err := env.words.List(context.Background())
	require.NoError(t, err)
	assert.Contains(t, stored, "спам")
}

func TestWordAddRejectsMultipleWords(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.app.handleWordAdd(env.private(testAdminID, "")))
	c := env.dialog(t, testAdminID, "два слова")

	assert.Equal(t, stWordAdd, env.app.engine.Current(testAdminID))
	assert.Contains(t, c.lastSent(), "одно слово")
}

func TestWordRenameDialog(t *testing.T) {
	env := newTestEnv(t, "плохо")

	require.NoError(t, env.app.handleWordRename(env.private(testAdminID, ""), "плохо"))
	assert.Equal(t, stWordRename, env.app.engine.Current(testAdminID))

	env.dialog(t, testAdminID, "хуже")

	assert.False(t, env.app.wordlist.Contains("плохо"))
	assert.True(t, env.app.wordlist.Contains("хуже"))

	stored, err := env.words.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"хуже"}, stored)
}

func TestWordDeleteConfirmed(t *testing.T) {
	env := newTestEnv(t, "плохо")

	c := env.private(testAdminID, "")
	require.NoError(t, env.app.handleWordDeleteConfirmed(c, "плохо"))

	assert.False(t, env.app.wordlist.Contains("плохо"))
	assert.False(t, env.app.classifier.Classify("очень плохо"))

	stored, err := env.words.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestWordSelectUnknownShowsList(t *testing.T) {
	env := newTestEnv(t, "плохо")

	c := env.private(testAdminID, "")
	require.NoError(t, env.app.handleWordSelect(c, "нету"))
	assert.Contains(t, c.lastSent(), "Запрещённые слова")
}

func TestWordListEmpty(t *testing.T) {
	env := newTestEnv(t)

	c := env.private(testAdminID, "")
	require.NoError(t, env.app.showWordList(c))
	assert.Contains(t, c.lastSent(), "пуст")
}
