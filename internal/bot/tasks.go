package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/lifecycle"
	"taskflow/internal/markup"
	"taskflow/internal/model"
	"taskflow/internal/query"
	"taskflow/internal/service"
)

const (
	cbMovePrefix    = "mv:"
	cbDeletePrefix  = "del:"
	cbConfirmPrefix = "cfm:"
	cbCancelPrefix  = "cnl:"
)

// maxListed caps one list message; Telegram rejects huge inline keyboards.
const maxListed = 20

func (b *Bot) handleListTasks(msg *tgbotapi.Message) error {
	bucket, err := query.ParseBucket(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Неизвестный фильтр. Доступны: "+bucketNames())
	}
	log.Printf("[info] list tasks chat=%d bucket=%s", msg.Chat.ID, bucket)
	return b.sendTaskList(msg.Chat.ID, query.View{Bucket: bucket}, fmt.Sprintf("📋 <b>Задачи · %s</b>", bucketLabel(bucket)))
}

func (b *Bot) handleSearch(msg *tgbotapi.Message) error {
	term := strings.TrimSpace(msg.CommandArguments())
	if term == "" {
		return b.sendText(msg.Chat.ID, "Что ищем? Например: /search отчёт")
	}
	return b.sendTaskList(msg.Chat.ID, query.View{Search: term}, fmt.Sprintf("🔎 <b>Поиск:</b> %s", escape(term)))
}

func (b *Bot) sendTaskList(chatID int64, view query.View, title string) error {
	res := b.taskSvc.Query(view)
	if len(res.Tasks) == 0 {
		return b.sendText(chatID, title+"\n\nНичего не найдено. Добавь задачу через /newtask.")
	}

	var builder strings.Builder
	builder.WriteString(title)
	builder.WriteString(fmt.Sprintf("\nВсего: %d · просрочено: %d · скоро срок: %d\n\n", res.Counts.Total, res.Counts.Overdue, res.Counts.DueSoon))

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, task := range res.Tasks {
		if i == maxListed {
			builder.WriteString(fmt.Sprintf("…и ещё %d. Уточни фильтр или поиск.\n", len(res.Tasks)-maxListed))
			break
		}
		builder.WriteString(formatTask(task, res.Now))
		rows = append(rows, taskButtons(task))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleShow(msg *tgbotapi.Message) error {
	ref := strings.TrimSpace(msg.CommandArguments())
	if ref == "" {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /task a1b2c3")
	}
	task, err := b.taskSvc.Resolve(ref)
	if err != nil {
		return b.sendText(msg.Chat.ID, errorText(err))
	}

	text := formatTask(task, b.taskSvc.Now())
	if len(task.Tags) > 0 {
		text += "🔖 " + escape(strings.Join(task.Tags, ", ")) + "\n"
	}
	if notes := markup.Telegram(task.Notes); notes != "" {
		text += "\n🗒 <b>Заметки</b>\n" + notes
	}
	if task.CompletedAt != nil {
		text += fmt.Sprintf("\n\n✅ Выполнено %s", task.CompletedAt.In(b.taskSvc.Location()).Format("02.01.2006 15:04"))
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, strings.TrimSpace(text))
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(taskButtons(task))
	_, err = b.api.Send(out)
	return err
}

func (b *Bot) handleBoard(msg *tgbotapi.Message) error {
	columns := b.taskSvc.Board(query.View{})
	now := b.taskSvc.Now()

	var builder strings.Builder
	builder.WriteString("🗂 <b>Доска</b>\n\n")
	for _, col := range columns {
		builder.WriteString(fmt.Sprintf("%s <b>%s</b> (%d)\n", statusIcon(col.Status), strings.ToUpper(service.StatusLabel(col.Status)), len(col.Tasks)))
		if len(col.Tasks) == 0 {
			builder.WriteString("— пусто\n")
		}
		for i, task := range col.Tasks {
			if i == maxListed {
				builder.WriteString(fmt.Sprintf("…и ещё %d\n", len(col.Tasks)-maxListed))
				break
			}
			builder.WriteString(fmt.Sprintf("• %s %s · %s\n", service.PriorityIcon(task.Priority), escape(shortTitle(task.Title, 40)), dueLabel(task, now)))
		}
		builder.WriteByte('\n')
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleStats(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, formatDashboard(b.taskSvc.Dashboard()))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	ref := strings.TrimSpace(msg.CommandArguments())
	if ref == "" {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /delete a1b2c3")
	}

	task, err := b.taskSvc.Resolve(ref)
	if err != nil {
		return b.sendText(msg.Chat.ID, errorText(err))
	}
	if err := b.taskSvc.DeleteTask(ctx, task.ID); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось удалить задачу. %s", errorText(err)))
	}

	log.Printf("[info] task deleted id=%s", task.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Задача «%s» удалена.", escape(normalizeTitle(task.Title))))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data
	log.Printf("[info] callback chat=%d data=%s", chatID, data)

	switch {
	case strings.HasPrefix(data, cbMovePrefix):
		b.ack(cb, "")
		to, taskID, ok := parseMoveData(data)
		if !ok {
			return nil
		}
		return b.moveTask(ctx, chatID, taskID, to)
	case strings.HasPrefix(data, cbDeletePrefix):
		b.ack(cb, "")
		return b.askDeleteConfirmation(chatID, strings.TrimPrefix(data, cbDeletePrefix))
	case strings.HasPrefix(data, cbConfirmPrefix):
		b.ack(cb, "")
		b.clearConfirmation(chatID)
		return b.deleteTask(ctx, chatID, strings.TrimPrefix(data, cbConfirmPrefix))
	case strings.HasPrefix(data, cbCancelPrefix):
		b.ack(cb, "Отменено")
		b.clearState(chatID)
		return nil
	default:
		b.ack(cb, "")
		return nil
	}
}

func (b *Bot) moveTask(ctx context.Context, chatID int64, taskID string, to model.Status) error {
	task, err := b.taskSvc.Find(taskID)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}

	if to == model.StatusCompleted {
		if !lifecycle.CanTransition(task.Status, to) {
			return b.sendText(chatID, errorText(&lifecycle.TransitionError{From: task.Status, To: to}))
		}
		b.setCapture(chatID, task.ID)
		text := fmt.Sprintf("📷 Пришли фото, подтверждающее выполнение «%s».\nБез фото задача останется в работе.", escape(normalizeTitle(task.Title)))
		return b.sendWithReplyMarkup(chatID, text, captureKeyboard())
	}

	res, err := b.taskSvc.Move(ctx, task.ID, to, "")
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	log.Printf("[info] task moved id=%s %s -> %s", task.ID, res.From, res.To)
	return b.sendText(chatID, fmt.Sprintf("%s «%s»: %s", statusIcon(res.To), escape(normalizeTitle(res.Task.Title)), service.StatusLabel(res.To)))
}

// handleCapture runs while a chat owes a completion photo.
func (b *Bot) handleCapture(ctx context.Context, msg *tgbotapi.Message, taskID string) error {
	if len(msg.Photo) == 0 && !isImageDocument(msg.Document) && !isCancelDialogInput(msg.Text) {
		return b.sendWithReplyMarkup(msg.Chat.ID, "Жду фото. Чтобы передумать, нажми «Отменить ввод».", captureKeyboard())
	}
	b.clearCapture(msg.Chat.ID)

	res, err := b.taskSvc.CompleteWithCapture(ctx, taskID, messagePhoto(msg))
	if errors.Is(err, service.ErrCaptureCancelled) {
		return b.sendText(msg.Chat.ID, "Завершение отменено, задача не изменилась.")
	}
	if err != nil && res == nil {
		return b.sendText(msg.Chat.ID, errorText(err))
	}

	log.Printf("[info] task completed id=%s", taskID)
	text := fmt.Sprintf("✅ Задача «%s» выполнена. Фото сохранено.", escape(normalizeTitle(res.Task.Title)))
	if res.Spawned != nil {
		text += fmt.Sprintf("\n♻️ Следующий повтор запланирован на %s.", res.Spawned.DueDate)
	}
	if err != nil {
		text += "\n" + errorText(err)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) askDeleteConfirmation(chatID int64, taskID string) error {
	task, err := b.taskSvc.Find(taskID)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	b.setConfirmation(chatID, task.ID)

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Удалить задачу «%s»?", escape(normalizeTitle(task.Title))))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnConfirm, cbConfirmPrefix+task.ID),
		tgbotapi.NewInlineKeyboardButtonData(btnCancel, cbCancelPrefix+task.ID),
	))
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, taskID string) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.Chat.ID)
		return b.deleteTask(ctx, msg.Chat.ID, taskID)
	case isCancelInput(text):
		b.clearConfirmation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "Удаление отменено.")
	default:
		return b.sendText(msg.Chat.ID, "Подтверди или отмени удаление задачи кнопкой выше.")
	}
}

func (b *Bot) deleteTask(ctx context.Context, chatID int64, taskID string) error {
	task, err := b.taskSvc.Find(taskID)
	if err != nil {
		return b.sendText(chatID, errorText(err))
	}
	if err := b.taskSvc.DeleteTask(ctx, task.ID); err != nil {
		return b.sendText(chatID, errorText(err))
	}
	log.Printf("[info] task deleted id=%s", task.ID)
	return b.sendText(chatID, fmt.Sprintf("🗑 Задача «%s» удалена.", escape(normalizeTitle(task.Title))))
}

// messagePhoto uses the largest photo size, or an image sent as a file. Any
// other message cancels the capture.
func messagePhoto(msg *tgbotapi.Message) service.PhotoSource {
	return service.PhotoFunc(func(context.Context, model.Task) (string, error) {
		if n := len(msg.Photo); n > 0 {
			return msg.Photo[n-1].FileID, nil
		}
		if isImageDocument(msg.Document) {
			return msg.Document.FileID, nil
		}
		return "", service.ErrCaptureCancelled
	})
}

func isImageDocument(doc *tgbotapi.Document) bool {
	return doc != nil && strings.HasPrefix(doc.MimeType, "image/")
}

func taskButtons(task model.Task) []tgbotapi.InlineKeyboardButton {
	var row []tgbotapi.InlineKeyboardButton
	for _, to := range lifecycle.Targets(task.Status) {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(moveLabel(task.Status, to), cbMovePrefix+string(to)+":"+task.ID))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+task.ID))
	return row
}

func parseMoveData(data string) (model.Status, string, bool) {
	rest := strings.TrimPrefix(data, cbMovePrefix)
	status, id, ok := strings.Cut(rest, ":")
	if !ok || id == "" || !model.Status(status).Valid() {
		return "", "", false
	}
	return model.Status(status), id, true
}

func moveLabel(from, to model.Status) string {
	switch {
	case to == model.StatusInProgress:
		return "▶️ В работу"
	case to == model.StatusCompleted:
		return "✅ Завершить"
	case from == model.StatusCompleted:
		return "🔄 Заново"
	}
	return "⏸ Отложить"
}

func formatDashboard(d query.Dashboard) string {
	var b strings.Builder
	b.WriteString("📊 <b>Статистика</b>\n")
	b.WriteString(fmt.Sprintf("Всего: %d · к выполнению: %d · в работе: %d · выполнено: %d\n", d.Counts.Total, d.Counts.Todo, d.Counts.InProgress, d.Counts.Completed))
	b.WriteString(fmt.Sprintf("✅ Выполнено: %d%% · 📷 с фото: %d%%\n", d.CompletionRate, d.PhotoRate))
	b.WriteString(fmt.Sprintf("⚠️ Просрочено: %d · ⏳ скоро срок: %d\n\n", d.Counts.Overdue, d.Counts.DueSoon))

	b.WriteString("<b>Приоритеты</b>\n")
	for _, share := range d.Priorities {
		p := model.Priority(share.Label)
		b.WriteString(fmt.Sprintf("%s %s: %d\n", service.PriorityIcon(p), service.PriorityLabel(p), share.Count))
	}

	if len(d.Categories) > 0 {
		b.WriteString("\n<b>Категории</b>\n")
		for _, share := range d.Categories {
			label := share.Label
			if label == query.OtherCategory {
				label = noCategory
			}
			b.WriteString(fmt.Sprintf("%s: %d\n", categoryLabel(label), share.Count))
		}
	}

	b.WriteString("\n<b>Неделя</b> (создано / выполнено)\n")
	for _, day := range d.Week {
		b.WriteString(fmt.Sprintf("<code>%s %s</code> %d / %d\n", weekdayLabel(day.Weekday), day.Date[5:], day.Created, day.Completed))
	}
	return strings.TrimSpace(b.String())
}
