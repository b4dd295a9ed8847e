package bot

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/residentbot/core/telegram/keyboard"
	"github.com/m3rciful/residentbot/meters"
	"github.com/m3rciful/residentbot/storage"
)

// Callback keys. Payload formats are noted where non-empty.
const (
	cbMenuRegister = "menu_register"
	cbMenuProfile  = "menu_profile"
	cbMenuMeters   = "menu_meters"
	cbMenuStatus   = "menu_status"
	cbCancel       = "dialog_cancel"

	cbMeterChannel = "meter_ch" // payload: channel
	cbFixChannel   = "fix_ch"   // payload: channel

	cbResidentOK = "res_ok" // payload: tele_id
	cbResidentNo = "res_no" // payload: tele_id

	cbModMute   = "mod_mute"   // payload: case id
	cbModIgnore = "mod_ignore" // payload: case id

	cbWordAdd    = "word_add"
	cbWordSelect = "word_sel" // payload: word
	cbWordRename = "word_ren" // payload: word
	cbWordDelete = "word_del" // payload: word
	cbWordDelOK  = "word_delok"
)

func residentMenu(confirmed bool) *tele.ReplyMarkup {
	if !confirmed {
		return keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "📝 Регистрация", Unique: cbMenuRegister},
			{Text: "✏️ Изменить данные", Unique: cbMenuProfile},
		})
	}
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "🚰 Передать показания", Unique: cbMenuMeters},
		{Text: "📊 Показания за месяц", Unique: cbMenuStatus},
		{Text: "✏️ Изменить данные", Unique: cbMenuProfile},
	})
}

func channelMenu(unique string) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(storage.Channels)+1)
	for _, ch := range storage.Channels {
		btns = append(btns, keyboard.InlineBtn{
			Text:   meters.ChannelTitles[ch],
			Unique: unique,
			Data:   string(ch),
		})
	}
	markup := keyboard.InlineButtons(btns)
	cancel := keyboard.CancelButton(markup, cbCancel)
	markup.InlineKeyboard = append(markup.InlineKeyboard, []tele.InlineButton{*cancel.Inline()})
	return markup
}

func reviewMarkup(teleID string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "✅ Подтвердить", Unique: cbResidentOK, Data: teleID},
		{Text: "❌ Отклонить", Unique: cbResidentNo, Data: teleID},
	})
}

func moderationMarkup(caseID string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "🔇 Ограничить", Unique: cbModMute, Data: caseID},
		{Text: "👌 Пропустить", Unique: cbModIgnore, Data: caseID},
	})
}

func wordListMarkup(words []string) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(words)+1)
	for _, w := range words {
		btns = append(btns, keyboard.InlineBtn{Text: w, Unique: cbWordSelect, Data: w})
	}
	markup := keyboard.InlineButtonsNPerRow(btns, 2)
	add := markup.Data("➕ Добавить слово", cbWordAdd)
	markup.InlineKeyboard = append(markup.InlineKeyboard, []tele.InlineButton{*add.Inline()})
	return markup
}

func wordActionsMarkup(word string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "✏️ Заменить", Unique: cbWordRename, Data: word},
		{Text: "🗑 Удалить", Unique: cbWordDelete, Data: word},
	})
}
