package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/config"
	"taskflow/internal/lifecycle"
	"taskflow/internal/model"
	"taskflow/internal/service"
)

// client is the part of tgbotapi.BotAPI the bot uses.
type client interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// ChatRegistry records chats that talk to the bot.
type ChatRegistry interface {
	Upsert(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.Chat, error)
	ListAll(ctx context.Context) ([]model.Chat, error)
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api         client
	chats       ChatRegistry
	taskSvc     *service.TaskService
	reminderSvc *service.ReminderService
	overdue     *service.OverdueWatcher
	prefs       *config.PreferencesStore
	download    func(ctx context.Context, url string) ([]byte, error)

	mu            sync.Mutex
	conversations map[int64]*conversationState
	captures      map[int64]string
	confirmations map[int64]string
}

func New(token string, chats ChatRegistry, taskSvc *service.TaskService, reminderSvc *service.ReminderService, prefs *config.PreferencesStore) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return newBot(api, chats, taskSvc, reminderSvc, prefs), nil
}

func newBot(api client, chats ChatRegistry, taskSvc *service.TaskService, reminderSvc *service.ReminderService, prefs *config.PreferencesStore) *Bot {
	return &Bot{
		api:           api,
		chats:         chats,
		taskSvc:       taskSvc,
		reminderSvc:   reminderSvc,
		overdue:       service.NewOverdueWatcher(),
		prefs:         prefs,
		download:      httpGet,
		conversations: make(map[int64]*conversationState),
		captures:      make(map[int64]string),
		confirmations: make(map[int64]string),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if _, err := b.chats.Upsert(ctx, msg.Chat.ID, msg.From.FirstName, msg.From.LastName, msg.From.UserName); err != nil {
		log.Printf("register chat %d: %v", msg.Chat.ID, err)
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if taskID, ok := b.getCapture(msg.Chat.ID); ok {
		return b.handleCapture(ctx, msg, taskID)
	}

	if isCancelDialogInput(msg.Text) {
		b.clearState(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Действие отменено.")
	}

	if taskID, ok := b.getConfirmation(msg.Chat.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, taskID)
	}

	if b.hasConversation(msg.Chat.ID) {
		log.Printf("[info] conversation step %d from %d", b.getConversation(msg.Chat.ID).stage, msg.From.ID)
		return b.handleConversation(ctx, msg)
	}

	if msg.Document != nil {
		return b.handleImport(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /newtask, чтобы добавить задачу, или /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "newtask":
		return b.startNewTaskConversation(msg)
	case "tasks":
		return b.handleListTasks(msg)
	case "search":
		return b.handleSearch(msg)
	case "task":
		return b.handleShow(msg)
	case "board":
		return b.handleBoard(msg)
	case "stats":
		return b.handleStats(msg)
	case "report":
		return b.handleReport(msg)
	case "export":
		return b.handleExport(msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "shortcuts":
		return b.handleShortcuts(msg)
	case "cancel":
		b.clearState(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Текущее действие отменено.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	if b.prefs.Get().OnboardingSeen {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("👋 С возвращением, %s! /tasks покажет задачи, /help напомнит команды.", escape(name)))
	}

	if _, err := b.prefs.Update(func(p *config.Preferences) { p.OnboardingSeen = true }); err != nil {
		log.Printf("save onboarding flag: %v", err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf(onboardingText, escape(name)))
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, helpText)
}

func (b *Bot) handleShortcuts(msg *tgbotapi.Message) error {
	arg := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	var enabled bool
	switch arg {
	case "on", "вкл":
		enabled = true
	case "off", "выкл":
		enabled = false
	default:
		state := "выключены"
		if b.prefs.Get().ShortcutsEnabled {
			state = "включены"
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Быстрые кнопки сейчас %s. Используй /shortcuts on или /shortcuts off.", state))
	}

	if _, err := b.prefs.Update(func(p *config.Preferences) { p.ShortcutsEnabled = enabled }); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось сохранить настройку: %s", escape(err.Error())))
	}
	if enabled {
		return b.sendText(msg.Chat.ID, "⌨️ Быстрые кнопки включены.")
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, "⌨️ Быстрые кнопки выключены.", tgbotapi.NewRemoveKeyboard(true))
}

func (b *Bot) handleReport(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, b.reminderSvc.DailySummary(b.taskSvc.Snapshot(), b.taskSvc.Now()))
}

// SendDigests sends the task summary to every known chat.
func (b *Bot) SendDigests(ctx context.Context) error {
	chats, err := b.chats.ListAll(ctx)
	if err != nil {
		return err
	}
	text := b.reminderSvc.DailySummary(b.taskSvc.Snapshot(), b.taskSvc.Now())
	for _, chat := range chats {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendText(chat.TelegramID, text); err != nil {
			log.Printf("send summary to %d: %v", chat.TelegramID, err)
		}
	}
	return nil
}

// AnnounceOverdue tells every chat about tasks that went overdue since the
// previous call.
func (b *Bot) AnnounceOverdue(ctx context.Context) error {
	now := b.taskSvc.Now()
	fresh := b.overdue.Check(b.taskSvc.Snapshot(), now)
	if len(fresh) == 0 {
		return nil
	}

	var builder strings.Builder
	builder.WriteString("⚠️ <b>Срок вышел</b>\n")
	for _, task := range fresh {
		builder.WriteString(formatTask(task, now))
	}
	text := strings.TrimSpace(builder.String())

	chats, err := b.chats.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, chat := range chats {
		if err := b.sendText(chat.TelegramID, text); err != nil {
			log.Printf("send overdue notice to %d: %v", chat.TelegramID, err)
		}
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if b.prefs.Get().ShortcutsEnabled {
		msg.ReplyMarkup = mainMenuKeyboard()
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		log.Printf("callback ack: %v", err)
	}
}

// errorText turns a service error into a chat reply.
func errorText(err error) string {
	var verr *service.ValidationError
	var terr *lifecycle.TransitionError
	switch {
	case errors.Is(err, model.ErrTaskNotFound):
		return "Задача не найдена или уже удалена."
	case errors.Is(err, service.ErrAmbiguousRef):
		return "Под это сокращение подходит несколько задач, укажи больше символов."
	case errors.Is(err, lifecycle.ErrPhotoRequired):
		return "📷 Чтобы завершить задачу, нужно фото-подтверждение."
	case errors.Is(err, lifecycle.ErrInvalidDueDate):
		return "Не получилось перенести повторяющуюся задачу: у неё неверная дата."
	case errors.As(err, &terr):
		return fmt.Sprintf("Нельзя перевести задачу из «%s» в «%s».", service.StatusLabel(terr.From), service.StatusLabel(terr.To))
	case errors.As(err, &verr):
		return fmt.Sprintf("Проверь поле %s: %s", escape(verr.Field), escape(verr.Message))
	}
	return fmt.Sprintf("Ошибка: %s", escape(err.Error()))
}

func (b *Bot) clearState(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
	delete(b.captures, chatID)
	delete(b.confirmations, chatID)
}

func (b *Bot) setCapture(chatID int64, taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
	delete(b.confirmations, chatID)
	b.captures[chatID] = taskID
}

func (b *Bot) getCapture(chatID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.captures[chatID]
	return id, ok
}

func (b *Bot) clearCapture(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.captures, chatID)
}

func (b *Bot) setConfirmation(chatID int64, taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[chatID] = taskID
}

func (b *Bot) getConfirmation(chatID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.confirmations[chatID]
	return id, ok
}

func (b *Bot) clearConfirmation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, chatID)
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.captures, chatID)
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[chatID]
	return ok
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}

const onboardingText = "👋 Привет, %s!\n<b>Я TaskFlow: веду задачи, напоминаю о сроках и собираю статистику.</b>\n\n" +
	"Как это устроено:\n" +
	"1️⃣ /newtask добавляет задачу по шагам.\n" +
	"2️⃣ В /tasks у каждой задачи есть кнопки: взять в работу, вернуть, завершить.\n" +
	"3️⃣ Завершить можно только с фото: нажми «✅ Завершить» и пришли снимок.\n" +
	"4️⃣ Повторяющиеся задачи после завершения сами появятся на следующий срок.\n" +
	"5️⃣ /board, /stats и /report покажут общую картину.\n\n" +
	"Полный список команд: /help"

const helpText = "ℹ️ <b>Подсказки</b>\n" +
	"• /newtask — добавить задачу пошагово\n" +
	"• /tasks [фильтр] — список задач; фильтры: all, pending, completed, high, overdue, due-soon, with-photo\n" +
	"• /search &lt;текст&gt; — поиск по названию и описанию\n" +
	"• /task &lt;id&gt; — карточка задачи с заметками\n" +
	"• /board — доска: к выполнению, в работе, выполнено\n" +
	"• /stats — статистика и недельный тренд\n" +
	"• /report — сводка по срокам прямо сейчас\n" +
	"• /export — выгрузить задачи в JSON\n" +
	"• пришли JSON-файл — импортировать задачи\n" +
	"• /delete &lt;id&gt; — удалить задачу (хватит последних 6 символов id)\n" +
	"• /shortcuts on|off — быстрые кнопки меню\n" +
	"• /cancel — отменить текущий ввод"
