package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/model"
	"taskflow/internal/query"
)

const (
	btnSkip           = "⏭️ Пропустить"
	btnConfirm        = "✅ Подтвердить"
	btnCancel         = "↩️ Отмена"
	btnCancelDialog   = "⏪ Отменить ввод"
	btnPriorityHigh   = "🔴 Высокий"
	btnPriorityMedium = "🟡 Средний"
	btnPriorityLow    = "🟢 Низкий"
	btnRecurNone      = "🚫 Не повторять"
	btnRecurDaily     = "📅 Каждый день"
	btnRecurWeekly    = "🗓 Каждую неделю"
	btnRecurMonthly   = "📆 Каждый месяц"
	menuLabelNewTask  = "➕ Новая задача"
	menuLabelTasks    = "📋 Задачи"
	menuLabelBoard    = "🗂 Доска"
	menuLabelStats    = "📊 Статистика"
	menuLabelHelp     = "ℹ️ Помощь"
)

// maxCategoryButtons keeps the category keyboard to three rows.
const maxCategoryButtons = 6

var defaultCategories = []string{"Работа", "Личное", "Покупки", "Здоровье"}

// handleMenuAlias maps main menu buttons to commands while shortcuts are on.
func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	if !b.prefs.Get().ShortcutsEnabled {
		return false, nil
	}
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.sendTaskList(msg.Chat.ID, query.View{}, "📋 <b>Задачи · "+bucketLabel(query.BucketAll)+"</b>")
	case strings.ToLower(menuLabelBoard):
		return true, b.handleBoard(msg)
	case strings.ToLower(menuLabelStats):
		return true, b.handleStats(msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelBoard),
			tgbotapi.NewKeyboardButton(menuLabelStats),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// categoryKeyboard offers categories already in use, falling back to a few
// common ones for an empty list.
func categoryKeyboard(tasks []model.Task) tgbotapi.ReplyKeyboardMarkup {
	names := query.Categories(tasks)
	if len(names) == 0 {
		names = defaultCategories
	}
	if len(names) > maxCategoryButtons {
		names = names[:maxCategoryButtons]
	}

	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(names); i += 2 {
		row := tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(categoryButton(names[i])))
		if i+1 < len(names) {
			row = append(row, tgbotapi.NewKeyboardButton(categoryButton(names[i+1])))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnSkip),
		tgbotapi.NewKeyboardButton(btnCancelDialog),
	))

	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnPriorityHigh),
			tgbotapi.NewKeyboardButton(btnPriorityMedium),
			tgbotapi.NewKeyboardButton(btnPriorityLow),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func recurrenceKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnRecurNone),
			tgbotapi.NewKeyboardButton(btnRecurDaily),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnRecurWeekly),
			tgbotapi.NewKeyboardButton(btnRecurMonthly),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func captureKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "пропустить" || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "подтвердить" || value == "да"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "отмена" || value == "нет"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "отменить ввод" || value == "отмена"
}
