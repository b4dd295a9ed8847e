package bot

import (
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/residentbot/core/logger"
	tghelpers "github.com/m3rciful/residentbot/core/telegram/helpers"
	"github.com/m3rciful/residentbot/core/telegram/state"
)

// Word-list administration: the list is shown as inline buttons; adding and
// renaming collect the new word through a dialog node. Mutations write
// through storage first and swap the classifier snapshot after.
const (
	stWordAdd    state.State = "words/add"
	stWordRename state.State = "words/rename"
)

func (a *App) registerWordNodes() {
	a.engine.Register(stWordAdd, state.Node{
		Field:    "word",
		Validate: validateWord,
		Next:     state.StateIdle,
		Complete: a.completeWordAdd,
	})
	a.engine.Register(stWordRename, state.Node{
		Field:    "word",
		Validate: validateWord,
		Next:     state.StateIdle,
		Complete: a.completeWordRename,
	})
}

func (a *App) showWordList(c tele.Context) error {
	words := a.wordlist.Words()
	if len(words) == 0 {
		return c.Send("Список запрещённых слов пуст.", wordListMarkup(nil))
	}
	return c.Send(fmt.Sprintf("Запрещённые слова (%d):", len(words)), wordListMarkup(words))
}

func validateWord(_ tele.Context, input string) (string, error) {
	word := strings.ToLower(strings.TrimSpace(input))
	if word == "" || strings.ContainsAny(word, " \t\n") {
		return "", state.Invalid("Отправьте одно слово без пробелов.")
	}
	return word, nil
}

func (a *App) handleWordAdd(c tele.Context) error {
	userID := c.Sender().ID
	a.engine.Exclusive(userID, func() {
		a.engine.Cancel(userID)
		a.engine.Set(userID, stWordAdd)
	})
	return tghelpers.EditOrSendMD(c, "Какое слово добавить?")
}

func (a *App) completeWordAdd(c tele.Context, data map[string]string) error {
	ctx := tghelpers.BuildContext(c)
	word := data["word"]
	if err := a.stores.Words.Add(ctx, word); err != nil {
		return fmt.Errorf("bot: add word: %w", err)
	}
	a.wordlist.Add(word)
	logger.Info(ctx, "moderation", "word.added", slog.String("word", word))
	return a.showWordList(c)
}

func (a *App) handleWordSelect(c tele.Context, word string) error {
	if !a.wordlist.Contains(word) {
		return a.showWordList(c)
	}
	return tghelpers.EditOrSendMD(c, fmt.Sprintf("Слово «%s»:", word), wordActionsMarkup(word))
}

func (a *App) handleWordRename(c tele.Context, word string) error {
	if !a.wordlist.Contains(word) {
		return a.showWordList(c)
	}
	userID := c.Sender().ID
	a.engine.Exclusive(userID, func() {
		a.engine.Cancel(userID)
		a.engine.SetData(userID, "from", word)
		a.engine.Set(userID, stWordRename)
	})
	return tghelpers.EditOrSendMD(c, fmt.Sprintf("На какое слово заменить «%s»?", word))
}

func (a *App) completeWordRename(c tele.Context, data map[string]string) error {
	ctx := tghelpers.BuildContext(c)
	from, to := data["from"], data["word"]
	if err := a.stores.Words.Rename(ctx, from, to); err != nil {
		return fmt.Errorf("bot: rename word: %w", err)
	}
	a.wordlist.Rename(from, to)
	logger.Info(ctx, "moderation", "word.renamed",
		slog.String("word", to),
		slog.String("cause", from),
	)
	return a.showWordList(c)
}

func (a *App) handleWordDelete(c tele.Context, word string) error {
	if !a.wordlist.Contains(word) {
		return a.showWordList(c)
	}
	markup := &tele.ReplyMarkup{}
	yes := markup.Data("🗑 Да, удалить", cbWordDelOK, word)
	no := markup.Data("Отмена", cbWordSelect, word)
	markup.InlineKeyboard = [][]tele.InlineButton{{*yes.Inline()}, {*no.Inline()}}
	return tghelpers.EditOrSendMD(c, fmt.Sprintf("Удалить слово «%s»?", word), markup)
}

func (a *App) handleWordDeleteConfirmed(c tele.Context, word string) error {
	ctx := tghelpers.BuildContext(c)
	if err := a.stores.Words.Remove(ctx, word); err != nil {
		return fmt.Errorf("bot: remove word: %w", err)
	}
	a.wordlist.Remove(word)
	logger.Info(ctx, "moderation", "word.removed", slog.String("word", word))
	return a.showWordList(c)
}
