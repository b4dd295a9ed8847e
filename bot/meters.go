package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/residentbot/core/telegram/helpers"
	"github.com/m3rciful/residentbot/core/telegram/state"
	"github.com/m3rciful/residentbot/meters"
	"github.com/m3rciful/residentbot/storage"
)

// Meter entry (resident) and meter correction (admin) dialogs. The counter
// is picked via inline buttons; only the value itself arrives as text.
const (
	stMeterValue state.State = "meter/value"

	stFixApartment state.State = "fixmeter/apartment"
	stFixValue     state.State = "fixmeter/value"
)

func (a *App) registerMeterNodes() {
	a.engine.Register(stMeterValue, state.Node{
		Field:    "value",
		Validate: a.validateMeterValue,
		Next:     state.StateIdle,
		Complete: a.completeMeterEntry,
	})

	a.engine.Register(stFixApartment, state.Node{
		Field:    "apartment",
		Validate: a.validateFixApartment,
		Next:     stFixValue,
	})
	a.engine.Register(stFixValue, state.Node{
		Field:    "value",
		Validate: a.validateFixValue,
		Next:     state.StateIdle,
		Prompt: func(c tele.Context) error {
			return c.Send("Какой счётчик исправить?", channelMenu(cbFixChannel))
		},
		Complete: a.completeMeterFix,
	})
}

// showMeterMenu displays this month's readings and the counter menu.
func (a *App) showMeterMenu(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	r, err := a.residents.Get(ctx, c.Sender().ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Send("Сначала пройдите регистрацию.", residentMenu(false))
		}
		return err
	}
	if !r.Confirmed {
		return c.Send("Ваша регистрация ещё не подтверждена администратором.")
	}

	reading, err := a.meters.CurrentMonth(ctx, r.ID)
	if err != nil {
		return err
	}
	text := "Выберите счётчик:\n" + formatReadings(reading)
	return c.Send(text, channelMenu(cbMeterChannel))
}

// showMeterStatus displays this month's readings without starting a dialog.
func (a *App) showMeterStatus(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	r, err := a.residents.Get(ctx, c.Sender().ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Send("Сначала пройдите регистрацию.", residentMenu(false))
		}
		return err
	}
	reading, err := a.meters.CurrentMonth(ctx, r.ID)
	if err != nil {
		return err
	}
	return c.Send("Показания за текущий месяц:\n" + formatReadings(reading))
}

// handleMeterChannel reacts to a counter button: remembers the selection
// and moves the dialog to the value node.
func (a *App) handleMeterChannel(c tele.Context, payload string) error {
	ch := storage.Channel(payload)
	title, ok := meters.ChannelTitles[ch]
	if !ok {
		return c.Send("Неизвестный счётчик.")
	}

	ctx := tghelpers.BuildContext(c)
	r, err := a.residents.Get(ctx, c.Sender().ID)
	if err != nil || !r.Confirmed {
		return c.Send("Передача показаний доступна после подтверждения регистрации.")
	}

	userID := c.Sender().ID
	a.engine.Exclusive(userID, func() {
		a.engine.SetData(userID, "channel", string(ch))
		a.engine.SetData(userID, "resident_id", strconv.FormatInt(r.ID, 10))
		a.engine.Set(userID, stMeterValue)
	})

	prompt := fmt.Sprintf("Введите показание: %s", title)
	if prior, err := a.meters.Prior(ctx, r.ID, ch); err == nil && prior != nil {
		prompt += fmt.Sprintf("\nПредыдущее значение: %d", *prior)
	}
	return tghelpers.EditOrSendMD(c, prompt)
}

func (a *App) validateMeterValue(c tele.Context, input string) (string, error) {
	v, err := meters.ParseValue(input)
	if err != nil {
		return "", state.Invalid("Показание должно быть целым числом.")
	}

	userID := c.Sender().ID
	chStr, _ := a.engine.Data(userID, "channel")
	residentStr, _ := a.engine.Data(userID, "resident_id")
	residentID, _ := strconv.ParseInt(residentStr, 10, 64)
	if chStr == "" || residentID == 0 {
		return "", state.Invalid("Сначала выберите счётчик кнопкой.")
	}

	ctx := tghelpers.BuildContext(c)
	prior, err := a.meters.Prior(ctx, residentID, storage.Channel(chStr))
	if err != nil {
		return "", err
	}
	if prior != nil && v < *prior {
		return "", state.Invalid(fmt.Sprintf(
			"Показание не может быть меньше предыдущего (%d).", *prior))
	}
	return strconv.Itoa(v), nil
}

func (a *App) completeMeterEntry(c tele.Context, data map[string]string) error {
	ctx := tghelpers.BuildContext(c)
	residentID, _ := strconv.ParseInt(data["resident_id"], 10, 64)
	value, _ := strconv.Atoi(data["value"])
	ch := storage.Channel(data["channel"])

	if err := a.meters.Submit(ctx, residentID, ch, value); err != nil {
		var below *meters.BelowPriorError
		if errors.As(err, &below) {
			return c.Send(capitalize(below.Error()) + ".")
		}
		return err
	}
	return c.Send(
		fmt.Sprintf("Записано: %s — %d. Спасибо!", meters.ChannelTitles[ch], value),
		channelMenu(cbMeterChannel),
	)
}

// startMeterFix begins the admin correction dialog.
func (a *App) startMeterFix(c tele.Context) error {
	userID := c.Sender().ID
	a.engine.Exclusive(userID, func() {
		a.engine.Cancel(userID)
		a.engine.Set(userID, stFixApartment)
	})
	return c.Send("Номер квартиры, где нужно исправить показание?")
}

func (a *App) validateFixApartment(c tele.Context, input string) (string, error) {
	n, err := a.residents.ValidateApartment(input)
	if err != nil {
		return "", state.Invalid(capitalize(err.Error()) + ".")
	}
	ctx := tghelpers.BuildContext(c)
	r, err := a.residents.GetByApartment(ctx, n)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", state.Invalid("За этой квартирой никто не закреплён.")
		}
		return "", err
	}
	a.engine.SetData(c.Sender().ID, "resident_id", strconv.FormatInt(r.ID, 10))
	return strconv.Itoa(n), nil
}

// handleFixChannel stores the admin's counter selection.
func (a *App) handleFixChannel(c tele.Context, payload string) error {
	ch := storage.Channel(payload)
	title, ok := meters.ChannelTitles[ch]
	if !ok {
		return c.Send("Неизвестный счётчик.")
	}
	userID := c.Sender().ID
	inDialog := false
	a.engine.Exclusive(userID, func() {
		if a.engine.Current(userID) == stFixValue {
			a.engine.SetData(userID, "channel", string(ch))
			inDialog = true
		}
	})
	if !inDialog {
		return c.Send("Сначала выполните /fixmeter.")
	}
	return tghelpers.EditOrSendMD(c, fmt.Sprintf("Новое значение для: %s", title))
}

func (a *App) validateFixValue(c tele.Context, input string) (string, error) {
	v, err := meters.ParseValue(input)
	if err != nil {
		return "", state.Invalid("Показание должно быть целым числом.")
	}
	if chStr, _ := a.engine.Data(c.Sender().ID, "channel"); chStr == "" {
		return "", state.Invalid("Сначала выберите счётчик кнопкой.")
	}
	return strconv.Itoa(v), nil
}

func (a *App) completeMeterFix(c tele.Context, data map[string]string) error {
	ctx := tghelpers.BuildContext(c)
	residentID, _ := strconv.ParseInt(data["resident_id"], 10, 64)
	value, _ := strconv.Atoi(data["value"])
	ch := storage.Channel(data["channel"])

	if err := a.meters.Correct(ctx, residentID, ch, value); err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("Исправлено: кв. %s, %s — %d.",
		data["apartment"], meters.ChannelTitles[ch], value))
}

func formatReadings(r *storage.MeterReading) string {
	var b strings.Builder
	for _, ch := range storage.Channels {
		b.WriteString(meters.ChannelTitles[ch])
		b.WriteString(": ")
		if v := r.Value(ch); v != nil {
			b.WriteString(strconv.Itoa(*v))
		} else {
			b.WriteString("—")
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
