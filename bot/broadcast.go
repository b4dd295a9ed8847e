package bot

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/residentbot/core/logger"
	tghelpers "github.com/m3rciful/residentbot/core/telegram/helpers"
	"github.com/m3rciful/residentbot/core/telegram/state"
)

// Broadcast dialog: the admin picks a porch, types the message, and
// confirms before the fan-out.
const (
	stBroadcastPorch   state.State = "broadcast/porch"
	stBroadcastText    state.State = "broadcast/text"
	stBroadcastConfirm state.State = "broadcast/confirm"
)

func (a *App) registerBroadcastNodes() {
	a.engine.Register(stBroadcastPorch, state.Node{
		Field:    "porch",
		Validate: a.validatePorch,
		Next:     stBroadcastText,
	})
	a.engine.Register(stBroadcastText, state.Node{
		Field:    "text",
		Validate: validateBroadcastText,
		Next:     stBroadcastConfirm,
		Prompt:   promptText("Текст объявления?"),
	})
	a.engine.Register(stBroadcastConfirm, state.Node{
		Field:    "confirm",
		Validate: validateYesNo,
		Next:     state.StateIdle,
		Prompt: func(c tele.Context) error {
			userID := c.Sender().ID
			porch, _ := a.engine.Data(userID, "porch")
			text, _ := a.engine.Data(userID, "text")
			return c.Send(fmt.Sprintf(
				"Отправить объявление жителям подъезда %s?\n\n%s\n\nОтветьте «да» или «нет».",
				porch, text))
		},
		Complete: a.completeBroadcast,
	})
}

func (a *App) startBroadcast(c tele.Context) error {
	userID := c.Sender().ID
	a.engine.Exclusive(userID, func() {
		a.engine.Cancel(userID)
		a.engine.Set(userID, stBroadcastPorch)
	})
	return c.Send(fmt.Sprintf("Какому подъезду отправить объявление? (1–%d)", a.cfg.House.Porches))
}

func (a *App) validatePorch(_ tele.Context, input string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 || n > a.cfg.House.Porches {
		return "", state.Invalid(fmt.Sprintf(
			"Номер подъезда должен быть числом от 1 до %d.", a.cfg.House.Porches))
	}
	return strconv.Itoa(n), nil
}

func validateBroadcastText(_ tele.Context, input string) (string, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return "", state.Invalid("Текст объявления не может быть пустым.")
	}
	return text, nil
}

func validateYesNo(_ tele.Context, input string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "да", "yes", "y":
		return "yes", nil
	case "нет", "no", "n":
		return "no", nil
	}
	return "", state.Invalid("Ответьте «да» или «нет».")
}

func (a *App) completeBroadcast(c tele.Context, data map[string]string) error {
	if data["confirm"] != "yes" {
		return c.Send("Рассылка отменена.")
	}

	ctx := tghelpers.BuildContext(c)
	porch, _ := strconv.Atoi(data["porch"])
	text := data["text"]

	all, err := a.residents.ListConfirmed(ctx)
	if err != nil {
		return err
	}

	sent := 0
	for _, r := range all {
		if a.porchOf(r.Apartment) != porch {
			continue
		}
		if err := tghelpers.SendTo(c, &tele.User{ID: r.TeleID}, "📣 "+text); err != nil {
			logger.Warn(ctx, "bot", "broadcast.send_failed",
				slog.Int64("user_id", r.TeleID),
				slog.String("err", err.Error()),
			)
			continue
		}
		sent++
	}

	logger.Info(ctx, "bot", "broadcast.done",
		slog.Int("porch", porch),
		slog.Int("count", sent),
	)
	return c.Send(fmt.Sprintf("Объявление отправлено жителям подъезда %d (%d получателей).", porch, sent))
}

// porchOf derives the porch from the apartment number, assuming apartments
// are distributed evenly across porches.
func (a *App) porchOf(apartment int) int {
	perPorch := a.cfg.House.Apartments / a.cfg.House.Porches
	if perPorch <= 0 {
		return 1
	}
	porch := (apartment-1)/perPorch + 1
	if porch > a.cfg.House.Porches {
		porch = a.cfg.House.Porches
	}
	return porch
}
