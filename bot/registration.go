package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/residentbot/core/telegram/helpers"
	"github.com/m3rciful/residentbot/core/telegram/keyboard"
	"github.com/m3rciful/residentbot/core/telegram/state"
	"github.com/m3rciful/residentbot/residents"
	"github.com/m3rciful/residentbot/storage"
)

// Registration and profile-edit dialogs. Both walk name -> apartment ->
// phone; the edit variant accepts "." to keep the stored value.
const (
	stRegName      state.State = "register/name"
	stRegApartment state.State = "register/apartment"
	stRegPhone     state.State = "register/phone"

	stProfName      state.State = "profile/name"
	stProfApartment state.State = "profile/apartment"
	stProfPhone     state.State = "profile/phone"
)

func (a *App) registerRegistrationNodes() {
	a.engine.Register(stRegName, state.Node{
		Field:    "name",
		Validate: validateName,
		Next:     stRegApartment,
	})
	a.engine.Register(stRegApartment, state.Node{
		Field:    "apartment",
		Validate: a.validateApartment,
		Next:     stRegPhone,
		Prompt:   promptText("Номер вашей квартиры?"),
	})
	a.engine.Register(stRegPhone, state.Node{
		Field:    "phone",
		Validate: a.validatePhone,
		Next:     state.StateIdle,
		Prompt:   promptText("Ваш телефон в формате +7XXXXXXXXXX?"),
		Complete: a.completeRegistration,
	})

	a.engine.Register(stProfName, state.Node{
		Field:    "name",
		Validate: a.keepCurrent(validateName, func(r *storage.Resident) string { return r.Name }),
		Next:     stProfApartment,
	})
	a.engine.Register(stProfApartment, state.Node{
		Field: "apartment",
		Validate: a.keepCurrent(a.validateApartment, func(r *storage.Resident) string {
			return strconv.Itoa(r.Apartment)
		}),
		Next:   stProfPhone,
		Prompt: promptText("Номер квартиры? Отправьте «.», чтобы оставить текущий."),
	})
	a.engine.Register(stProfPhone, state.Node{
		Field:    "phone",
		Validate: a.keepCurrent(a.validatePhone, func(r *storage.Resident) string { return r.Phone }),
		Next:     state.StateIdle,
		Prompt:   promptText("Телефон в формате +7XXXXXXXXXX? Отправьте «.», чтобы оставить текущий."),
		Complete: a.completeProfileEdit,
	})
}

func (a *App) startRegistration(c tele.Context) error {
	userID := c.Sender().ID
	a.engine.Exclusive(userID, func() {
		a.engine.Cancel(userID)
		a.engine.Set(userID, stRegName)
	})
	return c.Send("Как вас зовут?", keyboard.SingleCancelMarkup(cbCancel))
}

func (a *App) startProfileEdit(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if _, err := a.residents.Get(ctx, c.Sender().ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Send("Вы ещё не зарегистрированы.", residentMenu(false))
		}
		return err
	}
	userID := c.Sender().ID
	a.engine.Exclusive(userID, func() {
		a.engine.Cancel(userID)
		a.engine.Set(userID, stProfName)
	})
	return c.Send("Ваше имя? Отправьте «.», чтобы оставить текущее.",
		keyboard.SingleCancelMarkup(cbCancel))
}

func validateName(_ tele.Context, input string) (string, error) {
	name := strings.TrimSpace(input)
	if name == "" || name == state.KeepCurrent {
		return "", state.Invalid("Имя не может быть пустым.")
	}
	return name, nil
}

func (a *App) validateApartment(_ tele.Context, input string) (string, error) {
	n, err := a.residents.ValidateApartment(input)
	if err != nil {
		return "", state.Invalid(capitalize(err.Error()) + ".")
	}
	return strconv.Itoa(n), nil
}

func (a *App) validatePhone(c tele.Context, input string) (string, error) {
	phone, err := residents.ValidatePhone(input)
	if err != nil {
		return "", state.Invalid(capitalize(err.Error()) + ".")
	}
	ctx := tghelpers.BuildContext(c)
	taken, err := a.stores.Residents.PhoneTaken(ctx, phone, c.Sender().ID)
	if err != nil {
		return "", err
	}
	if taken {
		return "", state.Invalid("Этот телефон уже используется другим жителем.")
	}
	return phone, nil
}

// keepCurrent wraps a validator so "." passes the stored profile value
// through. Without a stored value the sentinel is rejected like any other
// invalid input.
func (a *App) keepCurrent(validate func(tele.Context, string) (string, error), pick func(*storage.Resident) string) func(tele.Context, string) (string, error) {
	return func(c tele.Context, input string) (string, error) {
		if strings.TrimSpace(input) == state.KeepCurrent {
			ctx := tghelpers.BuildContext(c)
			r, err := a.residents.Get(ctx, c.Sender().ID)
			if err == nil {
				if v := pick(r); v != "" {
					return v, nil
				}
			}
			return "", state.Invalid("Сохранённого значения нет, введите новое.")
		}
		return validate(c, input)
	}
}

func (a *App) completeRegistration(c tele.Context, data map[string]string) error {
	return a.saveProfile(c, data, false)
}

func (a *App) completeProfileEdit(c tele.Context, data map[string]string) error {
	return a.saveProfile(c, data, true)
}

func (a *App) saveProfile(c tele.Context, data map[string]string, edit bool) error {
	ctx := tghelpers.BuildContext(c)
	apartment, err := strconv.Atoi(data["apartment"])
	if err != nil {
		return fmt.Errorf("bot: bad apartment in session: %w", err)
	}

	var r *storage.Resident
	if edit {
		r, err = a.residents.UpdateProfile(ctx, c.Sender().ID, data["name"], apartment, data["phone"])
	} else {
		r, err = a.residents.Register(ctx, c.Sender().ID, data["name"], apartment, data["phone"])
	}
	if err != nil {
		if errors.Is(err, residents.ErrPhoneTaken) {
			return c.Send("Этот телефон уже используется другим жителем. Начните заново: /start")
		}
		return err
	}

	a.notifyAdminReview(c, r)
	return c.Send("Данные отправлены на проверку. Администратор подтвердит вашу регистрацию.")
}

// notifyAdminReview sends the profile to the configured admin with
// confirm/reject buttons. Best effort.
func (a *App) notifyAdminReview(c tele.Context, r *storage.Resident) {
	if a.cfg.Telegram.AdminID == 0 {
		return
	}
	text := fmt.Sprintf("Новая заявка на регистрацию:\n%s, кв. %d, %s", r.Name, r.Apartment, r.Phone)
	_ = tghelpers.SendTo(c, &tele.User{ID: a.cfg.Telegram.AdminID}, text,
		reviewMarkup(strconv.FormatInt(r.TeleID, 10)))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

func promptText(text string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Send(text, keyboard.SingleCancelMarkup(cbCancel))
	}
}
