package bot

import (
	"errors"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/residentbot/core/telegram/callbacks"
	"github.com/m3rciful/residentbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/residentbot/core/telegram/helpers"
	"github.com/m3rciful/residentbot/residents"
	"github.com/m3rciful/residentbot/storage"
)

const aboutText = "Бот дома: приём показаний счётчиков воды, объявления по подъездам " +
	"и порядок в общем чате. Начните с регистрации, администратор подтвердит заявку."

func (a *App) registerCommands() {
	a.registry.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Главное меню",
		Aliases:     []string{"menu"},
	})
	a.registry.RegisterCommand("/menu", commands.Command{
		Handler:     a.handleStart,
		Description: "Главное меню",
		Hidden:      true,
	})
	a.registry.RegisterCommand("/about", commands.Command{
		Handler:     func(c tele.Context) error { return c.Send(aboutText) },
		Description: "О боте",
	})
	a.registry.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "Прервать текущий диалог",
	})
	a.registry.RegisterCommand("/residents", commands.Command{
		Handler:     a.handleResidentReview,
		Description: "Заявки на регистрацию",
		AdminOnly:   true,
	})
	a.registry.RegisterCommand("/broadcast", commands.Command{
		Handler:     a.startBroadcast,
		Description: "Объявление по подъезду",
		AdminOnly:   true,
	})
	a.registry.RegisterCommand("/words", commands.Command{
		Handler:     a.showWordList,
		Description: "Запрещённые слова",
		AdminOnly:   true,
	})
	a.registry.RegisterCommand("/fixmeter", commands.Command{
		Handler:     a.startMeterFix,
		Description: "Исправить показание жителя",
		AdminOnly:   true,
	})
	a.registry.RegisterCommand("/admin", commands.Command{
		Handler:     a.handleAdminSync,
		Description: "Синхронизировать администраторов чата",
		AdminOnly:   true,
		Hidden:      true,
	})

	a.registry.SetTextFallback(func(c tele.Context) error {
		return c.Send("Не понял. Откройте меню: /start")
	})
}

func (a *App) registerCallbacks() {
	withPayload := func(h func(tele.Context, string) error) tele.HandlerFunc {
		return func(c tele.Context) error {
			return h(c, callbacks.CallbackPayload(c))
		}
	}

	_ = a.registry.RegisterCallback(cbMenuRegister, func(c tele.Context) error {
		return a.startRegistration(c)
	})
	_ = a.registry.RegisterCallback(cbMenuProfile, func(c tele.Context) error {
		return a.startProfileEdit(c)
	})
	_ = a.registry.RegisterCallback(cbMenuMeters, a.showMeterMenu)
	_ = a.registry.RegisterCallback(cbMenuStatus, a.showMeterStatus)
	_ = a.registry.RegisterCallback(cbCancel, a.handleCancel)

	_ = a.registry.RegisterCallback(cbMeterChannel, withPayload(a.handleMeterChannel))
	_ = a.registry.RegisterCallback(cbFixChannel, withPayload(a.handleFixChannel))

	_ = a.registry.RegisterCallback(cbResidentOK, withPayload(a.handleResidentConfirm))
	_ = a.registry.RegisterCallback(cbResidentNo, withPayload(a.handleResidentReject))

	_ = a.registry.RegisterCallback(cbModMute, withPayload(a.handleModMute))
	_ = a.registry.RegisterCallback(cbModIgnore, withPayload(a.handleModIgnore))

	_ = a.registry.RegisterCallback(cbWordAdd, a.handleWordAdd)
	_ = a.registry.RegisterCallback(cbWordSelect, withPayload(a.handleWordSelect))
	_ = a.registry.RegisterCallback(cbWordRename, withPayload(a.handleWordRename))
	_ = a.registry.RegisterCallback(cbWordDelete, withPayload(a.handleWordDelete))
	_ = a.registry.RegisterCallback(cbWordDelOK, withPayload(a.handleWordDeleteConfirmed))
}

// handleStart greets the user with a role-dependent menu.
func (a *App) handleStart(c tele.Context) error {
	if chat := c.Chat(); chat != nil && chat.Type != tele.ChatPrivate {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	a.engine.Cancel(c.Sender().ID)

	r, err := a.residents.Get(ctx, c.Sender().ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Send("Здравствуйте! Это бот вашего дома. "+
				"Зарегистрируйтесь, чтобы передавать показания счётчиков.",
				residentMenu(false))
		}
		return err
	}

	greeting := fmt.Sprintf("Здравствуйте, %s!", r.Name)
	if !r.Confirmed {
		greeting += "\nВаша регистрация ожидает подтверждения."
	}
	return c.Send(greeting, residentMenu(r.Confirmed))
}

// handleCancel aborts the active dialog, if any.
func (a *App) handleCancel(c tele.Context) error {
	userID := c.Sender().ID
	if !a.engine.InProgress(userID) {
		return c.Send("Сейчас нет активного диалога.")
	}
	a.engine.Cancel(userID)
	return c.Send("Диалог прерван.")
}

// handleResidentReview lists profiles awaiting confirmation.
func (a *App) handleResidentReview(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	pending, err := a.residents.ListUnconfirmed(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return c.Send("Нет заявок на регистрацию.")
	}
	for _, r := range pending {
		text := fmt.Sprintf("%s, кв. %d, %s", r.Name, r.Apartment, r.Phone)
		if err := c.Send(text, reviewMarkup(strconv.FormatInt(r.TeleID, 10))); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) handleResidentConfirm(c tele.Context, payload string) error {
	teleID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return tghelpers.EditOrSendMD(c, "Некорректная заявка.")
	}
	ctx := tghelpers.BuildContext(c)
	r, err := a.residents.Confirm(ctx, teleID)
	if err != nil {
		if errors.Is(err, residents.ErrNotRegistered) {
			return tghelpers.EditOrSendMD(c, "Заявка уже обработана.")
		}
		return err
	}
	_ = tghelpers.SendTo(c, &tele.User{ID: teleID},
		"Ваша регистрация подтверждена! Теперь вам доступна передача показаний: /start")
	return tghelpers.EditOrSendMD(c, fmt.Sprintf("✅ %s (кв. %d) подтверждён.", r.Name, r.Apartment))
}

func (a *App) handleResidentReject(c tele.Context, payload string) error {
	teleID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return tghelpers.EditOrSendMD(c, "Некорректная заявка.")
	}
	ctx := tghelpers.BuildContext(c)
	if err := a.residents.Reject(ctx, teleID); err != nil && !errors.Is(err, residents.ErrNotRegistered) {
		return err
	}
	_ = tghelpers.SendTo(c, &tele.User{ID: teleID},
		"Регистрация отклонена. Проверьте данные и зарегистрируйтесь заново: /start")
	return tghelpers.EditOrSendMD(c, "❌ Заявка отклонена.")
}
