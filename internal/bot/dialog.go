package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/model"
	"taskflow/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stageCategory
	stageDueDate
	stagePriority
	stageRecurring
)

type conversationState struct {
	stage conversationStage
	input service.TaskInput
}

func (b *Bot) startNewTaskConversation(msg *tgbotapi.Message) error {
	log.Printf("[info] start new task conversation chat=%d", msg.Chat.ID)
	b.setConversation(msg.Chat.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Создаём новую задачу.\n<b>Шаг 1:</b> как её назвать?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.Chat.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Название не может быть пустым. Как назовём задачу?", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ <b>Шаг 2:</b> добавь короткое описание (или нажми «Пропустить»).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 <b>Шаг 3:</b> выбери категорию или отправь свою (можно «Пропустить»).", categoryKeyboard(b.taskSvc.Snapshot()))
	case stageCategory:
		if !isSkipInput(text) {
			state.input.Category = stripCategoryIcon(text)
		}
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("⏰ <b>Шаг 4:</b> срок в формате <code>%s</code>. «Пропустить» поставит сегодняшнюю дату.", model.FormatDate(b.taskSvc.Now())), skipKeyboard())
	case stageDueDate:
		if !isSkipInput(text) {
			if _, err := model.ParseDate(text, b.taskSvc.Location()); err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Не могу распознать дату. Используй формат <code>2025-11-30</code> или «Пропустить».", skipKeyboard())
			}
			state.input.DueDate = text
		}
		state.stage = stagePriority
		return b.sendWithReplyMarkup(msg.Chat.ID, "🚦 <b>Шаг 5:</b> приоритет?", priorityKeyboard())
	case stagePriority:
		priority, ok := parsePriorityInput(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Выбери приоритет кнопкой.", priorityKeyboard())
		}
		state.input.Priority = priority
		state.stage = stageRecurring
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔁 <b>Шаг 6:</b> повторять задачу?", recurrenceKeyboard())
	case stageRecurring:
		recurring, ok := parseRecurrenceInput(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Выбери вариант повтора кнопкой.", recurrenceKeyboard())
		}
		state.input.Recurring = recurring
		b.clearConversation(msg.Chat.ID)
		return b.finishTaskCreation(ctx, msg.Chat.ID, state.input)
	default:
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "Диалог сброшен. Попробуй ещё раз через /newtask.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, input service.TaskInput) error {
	task, err := b.taskSvc.CreateTask(ctx, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось сохранить задачу. %s", errorText(err)))
	}

	log.Printf("[info] task created id=%s recurring=%s", task.ID, task.Recurring)

	var summary strings.Builder
	summary.WriteString("✅ <b>Задача сохранена</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> <code>%s</code>\n", shortID(task.ID)))
	summary.WriteString(fmt.Sprintf("• <b>Название:</b> %s\n", escape(normalizeTitle(task.Title))))
	if task.Description != "" {
		summary.WriteString(fmt.Sprintf("• <b>Описание:</b> %s\n", escape(task.Description)))
	}
	if task.Category != "" {
		summary.WriteString(fmt.Sprintf("• <b>Категория:</b> %s\n", categoryLabel(task.Category)))
	}
	summary.WriteString(fmt.Sprintf("• <b>Срок:</b> %s\n", task.DueDate))
	summary.WriteString(fmt.Sprintf("• <b>Приоритет:</b> %s %s\n", service.PriorityIcon(task.Priority), service.PriorityLabel(task.Priority)))
	if task.Recurring.Active() {
		summary.WriteString(fmt.Sprintf("• <b>Повтор:</b> %s\n", service.RecurrenceLabel(task.Recurring)))
	}

	return b.sendText(chatID, strings.TrimSpace(summary.String()))
}

func parsePriorityInput(text string) (model.Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(btnPriorityHigh), "высокий", "high":
		return model.PriorityHigh, true
	case strings.ToLower(btnPriorityMedium), "средний", "medium":
		return model.PriorityMedium, true
	case strings.ToLower(btnPriorityLow), "низкий", "low":
		return model.PriorityLow, true
	}
	if isSkipInput(text) {
		return model.PriorityMedium, true
	}
	return "", false
}

func parseRecurrenceInput(text string) (model.Recurrence, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(btnRecurNone), "нет", "no", "none":
		return model.RecurNone, true
	case strings.ToLower(btnRecurDaily), "ежедневно", "daily":
		return model.RecurDaily, true
	case strings.ToLower(btnRecurWeekly), "еженедельно", "weekly":
		return model.RecurWeekly, true
	case strings.ToLower(btnRecurMonthly), "ежемесячно", "monthly":
		return model.RecurMonthly, true
	}
	if isSkipInput(text) {
		return model.RecurNone, true
	}
	return "", false
}
