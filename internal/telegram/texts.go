package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bulatfbi/coffee-bot/internal/dialog"
)

// Callback data is the dialog.Choice value.
var knownChoices = map[string]dialog.Choice{
	string(dialog.ChoiceDaily):       dialog.ChoiceDaily,
	string(dialog.ChoiceOccasional):  dialog.ChoiceOccasional,
	string(dialog.ChoiceOptOut):      dialog.ChoiceOptOut,
	string(dialog.ChoiceAway):        dialog.ChoiceAway,
	string(dialog.ChoiceReturned):    dialog.ChoiceReturned,
	string(dialog.ChoiceCantDuty):    dialog.ChoiceCantDuty,
	string(dialog.ChoiceCheckedIn):   dialog.ChoiceCheckedIn,
	string(dialog.ChoiceChangeHabit): dialog.ChoiceChangeHabit,
}

func parseChoice(data string) (dialog.Choice, bool) {
	c, ok := knownChoices[data]
	return c, ok
}

func button(label string, c dialog.Choice) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, string(c)))
}

// menuKeyboard builds the inline keyboard for a dialog menu.
func menuKeyboard(menu dialog.Menu) (tgbotapi.InlineKeyboardMarkup, bool) {
	switch menu {
	case dialog.MenuPoll:
		return pollKeyboard(), true
	case dialog.MenuDaily:
		return dailyKeyboard(), true
	case dialog.MenuOccasional:
		return occasionalKeyboard(), true
	}
	return tgbotapi.InlineKeyboardMarkup{}, false
}

func pollKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		button("☕ Every day", dialog.ChoiceDaily),
		button("⏰ Not every day", dialog.ChoiceOccasional),
		button("🚫 I no longer drink coffee", dialog.ChoiceOptOut),
	)
}

func dailyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		button("⏸️ I'm off coffee for a while", dialog.ChoiceAway),
		button("😔 I'm on duty but can't clean the machine", dialog.ChoiceCantDuty),
		button("🎉 I'm back!", dialog.ChoiceReturned),
		button("🔄 My coffee habit changed", dialog.ChoiceChangeHabit),
	)
}

func occasionalKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		button("✅ I'm having coffee today", dialog.ChoiceCheckedIn),
		button("😔 I'm on duty but can't clean the machine", dialog.ChoiceCantDuty),
		button("🔄 My coffee habit changed", dialog.ChoiceChangeHabit),
	)
}
