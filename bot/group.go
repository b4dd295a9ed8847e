package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/residentbot/core/logger"
	tghelpers "github.com/m3rciful/residentbot/core/telegram/helpers"
	"github.com/m3rciful/residentbot/moderation"
	"github.com/m3rciful/residentbot/storage"
)

// moderationCase is a pending verdict: the violation is recorded and the
// moderator decides between a mute and a pass.
type moderationCase struct {
	TeleID   int64
	ChatID   int64
	Username string
	Text     string
	Created  time.Time
}

// handleGroupText moderates plain text in the residents' group chat:
// sanctioned users lose their messages outright, and restricted words open
// a moderation case.
func (a *App) handleGroupText(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	// Only the configured residents' chat is moderated; zero means any chat.
	if id := a.cfg.House.GroupChatID; id != 0 && chat.ID != id {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	if a.ledger.IsActive(sender.ID, chat.ID) {
		if err := c.Delete(); err != nil {
			logger.Warn(ctx, "moderation", "message.delete_failed",
				slog.String("err", err.Error()),
			)
		}
		logger.Info(ctx, "moderation", "message.suppressed",
			slog.Int64("user_id", sender.ID),
			slog.Int64("chat_id", chat.ID),
		)
		_ = tghelpers.SendTo(c, sender,
			"Ваши сообщения в чате дома временно ограничены. Сообщение удалено.")
		return nil
	}

	if !a.classifier.Classify(c.Text()) {
		return nil
	}

	if err := c.Delete(); err != nil {
		logger.Warn(ctx, "moderation", "message.delete_failed",
			slog.String("err", err.Error()),
		)
	}

	name := displayName(sender)
	_ = tghelpers.SendText(c, fmt.Sprintf(
		"%s, в чате дома запрещена нецензурная лексика. Сообщение удалено.", name))

	caseID := a.openCase(moderationCase{
		TeleID:   sender.ID,
		ChatID:   chat.ID,
		Username: name,
		Text:     c.Text(),
		Created:  time.Now(),
	})
	logger.Info(ctx, "moderation", "violation.recorded",
		slog.Int64("user_id", sender.ID),
		slog.Int64("chat_id", chat.ID),
	)

	if a.cfg.Telegram.AdminID != 0 {
		prompt := fmt.Sprintf("Нарушение в чате дома от %s:\n\n%s", name, c.Text())
		_ = tghelpers.SendTo(c, &tele.User{ID: a.cfg.Telegram.AdminID}, prompt,
			moderationMarkup(caseID))
	}
	return nil
}

func (a *App) openCase(mc moderationCase) string {
	id := uuid.NewString()
	a.casesMu.Lock()
	a.cases[id] = mc
	a.casesMu.Unlock()
	return id
}

func (a *App) takeCase(id string) (moderationCase, bool) {
	a.casesMu.Lock()
	defer a.casesMu.Unlock()
	mc, ok := a.cases[id]
	if ok {
		delete(a.cases, id)
	}
	return mc, ok
}

// handleModMute issues a time-bound sanction for the case's (user, chat).
func (a *App) handleModMute(c tele.Context, caseID string) error {
	mc, ok := a.takeCase(caseID)
	if !ok {
		return tghelpers.EditOrSendMD(c, "Случай уже обработан.")
	}

	ctx := tghelpers.BuildContext(c)
	expires := time.Now().UTC().Add(time.Duration(a.cfg.Moderation.MuteMinutes) * time.Minute)
	issuer := c.Sender()

	id, err := a.ledger.Issue(ctx, storage.Sanction{
		TeleID:     mc.TeleID,
		ChatID:     mc.ChatID,
		Reason:     "запрещённая лексика",
		IssuerID:   issuer.ID,
		IssuerName: displayName(issuer),
		ExpiresAt:  &expires,
	})
	if errors.Is(err, moderation.ErrDuplicateActiveSanction) {
		return tghelpers.EditOrSendMD(c,
			fmt.Sprintf("У %s уже есть активное ограничение.", mc.Username))
	}
	if err != nil {
		return err
	}

	logger.Info(ctx, "moderation", "sanction.issued",
		slog.Int64("sanction_id", id),
		slog.Int64("user_id", mc.TeleID),
		slog.Int64("chat_id", mc.ChatID),
	)

	_ = tghelpers.SendTo(c, &tele.User{ID: mc.TeleID}, fmt.Sprintf(
		"Ваши сообщения в чате дома ограничены на %d минут за нарушение правил.",
		a.cfg.Moderation.MuteMinutes))
	return tghelpers.EditOrSendMD(c, fmt.Sprintf(
		"Ограничение для %s выдано на %d минут.", mc.Username, a.cfg.Moderation.MuteMinutes))
}

// handleModIgnore closes the case without a sanction.
func (a *App) handleModIgnore(c tele.Context, caseID string) error {
	mc, ok := a.takeCase(caseID)
	if !ok {
		return tghelpers.EditOrSendMD(c, "Случай уже обработан.")
	}
	return tghelpers.EditOrSendMD(c, fmt.Sprintf("Нарушение от %s пропущено.", mc.Username))
}

// handleAdminSync marks the chat's administrators in the residents table.
// Run inside the group chat.
func (a *App) handleAdminSync(c tele.Context) error {
	chat := c.Chat()
	if chat == nil || chat.Type == tele.ChatPrivate {
		return c.Send("Команда выполняется в чате дома.")
	}

	admins, err := c.Bot().AdminsOf(chat)
	if err != nil {
		return fmt.Errorf("bot: list chat admins: %w", err)
	}

	ctx := tghelpers.BuildContext(c)
	synced := 0
	for _, member := range admins {
		if member.User == nil || member.User.IsBot {
			continue
		}
		if err := a.residents.SetAdmin(ctx, member.User.ID, true); err != nil {
			logger.Warn(ctx, "bot", "admin.sync_failed",
				slog.Int64("user_id", member.User.ID),
				slog.String("err", err.Error()),
			)
			continue
		}
		synced++
	}

	logger.Info(ctx, "bot", "admin.synced", slog.Int("count", synced))
	return c.Send(fmt.Sprintf("Список администраторов обновлён (%d).", synced))
}

func displayName(u *tele.User) string {
	if u == nil {
		return "пользователь"
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return fmt.Sprintf("id%d", u.ID)
}
