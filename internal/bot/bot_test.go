package bot

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/config"
	"taskflow/internal/lifecycle"
	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/internal/service"
	"taskflow/internal/testutil"
)

const chatID = int64(42)

var now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

type fakeClient struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
	acks int
}

func (c *fakeClient) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (c *fakeClient) StopReceivingUpdates() {}

func (c *fakeClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return tgbotapi.Message{}, nil
}

func (c *fakeClient) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acks++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (c *fakeClient) GetFileDirectURL(fileID string) (string, error) {
	return "https://files.example/" + fileID, nil
}

func (c *fakeClient) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent)
	msg, ok := c.sent[len(c.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok, "last chattable is %T", c.sent[len(c.sent)-1])
	return msg
}

func (c *fakeClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type fakeChats struct {
	mu    sync.Mutex
	chats []model.Chat
}

func (f *fakeChats) Upsert(_ context.Context, telegramID int64, firstName, lastName, username string) (*model.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.chats {
		if f.chats[i].TelegramID == telegramID {
			return &f.chats[i], nil
		}
	}
	f.chats = append(f.chats, model.Chat{TelegramID: telegramID, FirstName: firstName, LastName: lastName, Username: username})
	return &f.chats[len(f.chats)-1], nil
}

func (f *fakeChats) ListAll(context.Context) ([]model.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Chat(nil), f.chats...), nil
}

type fixture struct {
	bot    *Bot
	client *fakeClient
	chats  *fakeChats
	svc    *service.TaskService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := repository.NewTaskRepository(testutil.NewDB(t))
	svc := service.NewTaskService(repo, time.UTC, service.WithClock(testutil.Clock(now)))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Start(ctx))
	t.Cleanup(svc.Close)

	prefs, err := config.OpenPreferences(filepath.Join(t.TempDir(), "prefs.yaml"))
	require.NoError(t, err)

	client := &fakeClient{}
	chats := &fakeChats{}
	return &fixture{
		bot:    newBot(client, chats, svc, service.NewReminderService(), prefs),
		client: client,
		chats:  chats,
		svc:    svc,
	}
}

func (f *fixture) send(t *testing.T, msg *tgbotapi.Message) {
	t.Helper()
	require.NoError(t, f.bot.handleMessage(context.Background(), msg))
}

func (f *fixture) tap(t *testing.T, data string) {
	t.Helper()
	cb := &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID, Type: "private"}},
		Data:    data,
	}
	require.NoError(t, f.bot.handleCallback(context.Background(), cb))
}

// waitFor blocks until the service snapshot satisfies cond.
func (f *fixture) waitFor(t *testing.T, cond func([]model.Task) bool) {
	t.Helper()
	require.Eventually(t, func() bool { return cond(f.svc.Snapshot()) }, 2*time.Second, 10*time.Millisecond)
}

func (f *fixture) createTask(t *testing.T, title string) model.Task {
	t.Helper()
	task, err := f.svc.CreateTask(context.Background(), service.TaskInput{Title: title})
	require.NoError(t, err)
	f.waitFor(t, func(tasks []model.Task) bool { return len(tasks) > 0 && tasks[0].ID == task.ID })
	return *task
}

func (f *fixture) statusOf(id string) model.Status {
	task, err := f.svc.Find(id)
	if err != nil {
		return ""
	}
	return task.Status
}

func textMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID, Type: "private"},
		From: &tgbotapi.User{ID: chatID, FirstName: "Ann"},
		Text: text,
	}
}

func command(text string) *tgbotapi.Message {
	msg := textMessage(text)
	length := len(text)
	for i, r := range text {
		if r == ' ' {
			length = i
			break
		}
	}
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	return msg
}

func TestStartShowsOnboardingOnce(t *testing.T) {
	f := newFixture(t)

	f.send(t, command("/start"))
	assert.Contains(t, f.client.last(t).Text, "Я TaskFlow")
	assert.True(t, f.bot.prefs.Get().OnboardingSeen)

	f.send(t, command("/start"))
	assert.Contains(t, f.client.last(t).Text, "С возвращением")

	chats, err := f.chats.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, chatID, chats[0].TelegramID)
}

func TestNewTaskConversation(t *testing.T) {
	f := newFixture(t)

	f.send(t, command("/newtask"))
	for _, step := range []string{"купить молоко", btnSkip, "💼 Работа", "2024-01-12", btnPriorityHigh, btnRecurWeekly} {
		f.send(t, textMessage(step))
	}
	assert.Contains(t, f.client.last(t).Text, "Задача сохранена")
	assert.False(t, f.bot.hasConversation(chatID))

	f.waitFor(t, func(tasks []model.Task) bool { return len(tasks) == 1 })
	task := f.svc.Snapshot()[0]
	assert.Equal(t, "купить молоко", task.Title)
	assert.Equal(t, "Работа", task.Category)
	assert.Equal(t, "2024-01-12", task.DueDate)
	assert.Equal(t, model.PriorityHigh, task.Priority)
	assert.Equal(t, model.RecurWeekly, task.Recurring)
}

func TestNewTaskConversationRejectsBadDate(t *testing.T) {
	f := newFixture(t)

	f.send(t, command("/newtask"))
	f.send(t, textMessage("report"))
	f.send(t, textMessage(btnSkip))
	f.send(t, textMessage(btnSkip))
	f.send(t, textMessage("30.11.2025"))
	assert.Contains(t, f.client.last(t).Text, "Не могу распознать дату")
	assert.Equal(t, stageDueDate, f.bot.getConversation(chatID).stage)

	f.send(t, textMessage(btnCancelDialog))
	assert.False(t, f.bot.hasConversation(chatID))
	assert.Empty(t, f.svc.Snapshot())
}

func TestTaskListShowsMoveButtons(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "write report")

	f.send(t, command("/tasks"))
	msg := f.client.last(t)
	assert.Contains(t, msg.Text, "Write report")
	assert.Contains(t, msg.Text, shortID(task.ID))

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	row := markup.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Equal(t, "mv:in-progress:"+task.ID, *row[0].CallbackData)
	assert.Equal(t, "del:"+task.ID, *row[1].CallbackData)

	f.send(t, command("/tasks bogus"))
	assert.Contains(t, f.client.last(t).Text, "Неизвестный фильтр")
}

func TestMoveButtonsFollowLifecycle(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "deploy")

	f.tap(t, "mv:completed:"+task.ID)
	assert.Contains(t, f.client.last(t).Text, "Нельзя перевести")
	_, capturing := f.bot.getCapture(chatID)
	assert.False(t, capturing)

	f.tap(t, "mv:in-progress:"+task.ID)
	f.waitFor(t, func([]model.Task) bool { return f.statusOf(task.ID) == model.StatusInProgress })

	f.tap(t, "mv:todo:"+task.ID)
	f.waitFor(t, func([]model.Task) bool { return f.statusOf(task.ID) == model.StatusTodo })
}

func TestCompletionNeedsPhoto(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "clean kitchen")
	_, err := f.svc.Move(context.Background(), task.ID, model.StatusInProgress, "")
	require.NoError(t, err)
	f.waitFor(t, func([]model.Task) bool { return f.statusOf(task.ID) == model.StatusInProgress })

	f.tap(t, "mv:completed:"+task.ID)
	assert.Contains(t, f.client.last(t).Text, "Пришли фото")

	f.send(t, textMessage("done!"))
	assert.Contains(t, f.client.last(t).Text, "Жду фото")
	assert.Equal(t, model.StatusInProgress, f.statusOf(task.ID))

	photo := textMessage("")
	photo.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}
	f.send(t, photo)
	assert.Contains(t, f.client.last(t).Text, "выполнена")

	f.waitFor(t, func([]model.Task) bool { return f.statusOf(task.ID) == model.StatusCompleted })
	done, err := f.svc.Find(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "large", done.CompletionPhoto)
	assert.NotNil(t, done.CompletedAt)
}

func TestCompletionCaptureCancel(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "water plants")
	_, err := f.svc.Move(context.Background(), task.ID, model.StatusInProgress, "")
	require.NoError(t, err)
	f.waitFor(t, func([]model.Task) bool { return f.statusOf(task.ID) == model.StatusInProgress })

	f.tap(t, "mv:completed:"+task.ID)
	f.send(t, textMessage(btnCancelDialog))
	assert.Contains(t, f.client.last(t).Text, "Завершение отменено")

	_, capturing := f.bot.getCapture(chatID)
	assert.False(t, capturing)
	found, err := f.svc.Find(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, found.Status)
	assert.Empty(t, found.CompletionPhoto)
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "old task")

	f.tap(t, "del:"+task.ID)
	assert.Contains(t, f.client.last(t).Text, "Удалить задачу")

	f.send(t, textMessage("что?"))
	assert.Contains(t, f.client.last(t).Text, "Подтверди или отмени")
	require.Len(t, f.svc.Snapshot(), 1)

	f.send(t, textMessage(btnConfirm))
	assert.Contains(t, f.client.last(t).Text, "удалена")
	f.waitFor(t, func(tasks []model.Task) bool { return len(tasks) == 0 })
}

func TestDeleteCommandResolvesShortID(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "temp")

	f.send(t, command("/delete abc"))
	assert.Contains(t, f.client.last(t).Text, "не найдена")

	f.send(t, command("/delete "+shortID(task.ID)))
	assert.Contains(t, f.client.last(t).Text, "удалена")
	f.waitFor(t, func(tasks []model.Task) bool { return len(tasks) == 0 })
}

func TestExportSendsDocument(t *testing.T) {
	f := newFixture(t)
	f.createTask(t, "backup me")

	f.send(t, command("/export"))
	f.client.mu.Lock()
	doc, ok := f.client.sent[len(f.client.sent)-1].(tgbotapi.DocumentConfig)
	f.client.mu.Unlock()
	require.True(t, ok)

	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "taskflow-backup-2024-01-10.json", file.Name)
	assert.Contains(t, string(file.Bytes), `"title": "backup me"`)
}

func TestImportDocument(t *testing.T) {
	f := newFixture(t)
	var fetched string
	f.bot.download = func(_ context.Context, url string) ([]byte, error) {
		fetched = url
		return []byte(`[{"title":"A"},{"title":"B","priority":"high"}]`), nil
	}

	msg := textMessage("")
	msg.Document = &tgbotapi.Document{FileID: "file-1", FileName: "backup.json"}
	f.send(t, msg)

	assert.Equal(t, "https://files.example/file-1", fetched)
	assert.Contains(t, f.client.last(t).Text, "Импортировано задач: 2")
	f.waitFor(t, func(tasks []model.Task) bool { return len(tasks) == 2 })
}

func TestImportRejectsMalformedFile(t *testing.T) {
	f := newFixture(t)
	f.bot.download = func(context.Context, string) ([]byte, error) {
		return []byte(`{"title":"not a list"}`), nil
	}

	msg := textMessage("")
	msg.Document = &tgbotapi.Document{FileID: "file-2", FileName: "tasks.json"}
	f.send(t, msg)
	assert.Contains(t, f.client.last(t).Text, "не похож на выгрузку")

	msg.Document = &tgbotapi.Document{FileID: "file-3", FileName: "notes.txt", MimeType: "text/plain"}
	f.send(t, msg)
	assert.Contains(t, f.client.last(t).Text, "пришли JSON-файл")
	assert.Empty(t, f.svc.Snapshot())
}

func TestShortcutsToggle(t *testing.T) {
	f := newFixture(t)

	f.send(t, textMessage(menuLabelHelp))
	assert.Contains(t, f.client.last(t).Text, "Подсказки")
	_, ok := f.client.last(t).ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	assert.True(t, ok)

	f.send(t, command("/shortcuts off"))
	assert.False(t, f.bot.prefs.Get().ShortcutsEnabled)

	f.send(t, textMessage(menuLabelHelp))
	msg := f.client.last(t)
	assert.Contains(t, msg.Text, "не понял")
	assert.Nil(t, msg.ReplyMarkup)
}

func TestSendDigestsReachesEveryChat(t *testing.T) {
	f := newFixture(t)
	_, _ = f.chats.Upsert(context.Background(), 1, "A", "", "")
	_, _ = f.chats.Upsert(context.Background(), 2, "B", "", "")

	require.NoError(t, f.bot.SendDigests(context.Background()))
	assert.Equal(t, 2, f.client.count())
	assert.Contains(t, f.client.last(t).Text, "Сводка задач")
}

func TestAnnounceOverdueOnlyReportsNewTasks(t *testing.T) {
	f := newFixture(t)
	_, _ = f.chats.Upsert(context.Background(), 1, "A", "", "")

	require.NoError(t, f.bot.AnnounceOverdue(context.Background()))
	assert.Zero(t, f.client.count())

	task, err := f.svc.CreateTask(context.Background(), service.TaskInput{Title: "late", DueDate: "2024-01-05"})
	require.NoError(t, err)
	f.waitFor(t, func(tasks []model.Task) bool { return len(tasks) == 1 })

	require.NoError(t, f.bot.AnnounceOverdue(context.Background()))
	require.Equal(t, 1, f.client.count())
	assert.Contains(t, f.client.last(t).Text, shortID(task.ID))

	require.NoError(t, f.bot.AnnounceOverdue(context.Background()))
	assert.Equal(t, 1, f.client.count())
}

func TestParseMoveData(t *testing.T) {
	to, id, ok := parseMoveData("mv:in-progress:abc")
	require.True(t, ok)
	assert.Equal(t, model.StatusInProgress, to)
	assert.Equal(t, "abc", id)

	for _, data := range []string{"mv:done:abc", "mv:todo:", "mv:todo"} {
		_, _, ok := parseMoveData(data)
		assert.False(t, ok, data)
	}
}

func TestTextHelpers(t *testing.T) {
	assert.Equal(t, "Купить", normalizeTitle("  купить "))
	assert.Equal(t, "Очень дл…", shortTitle("очень длинное", 9))
	assert.Equal(t, "Коротко", shortTitle("коротко", 20))
	assert.Equal(t, "345678", shortID("0123-345678"))
	assert.Equal(t, "Работа", stripCategoryIcon("💼 Работа"))
	assert.Equal(t, "Хобби", stripCategoryIcon(categoryButton("хобби")))
	assert.Equal(t, "моя категория", stripCategoryIcon("моя категория"))
}

func TestParseDialogChoices(t *testing.T) {
	p, ok := parsePriorityInput(btnPriorityLow)
	require.True(t, ok)
	assert.Equal(t, model.PriorityLow, p)
	p, ok = parsePriorityInput(btnSkip)
	require.True(t, ok)
	assert.Equal(t, model.PriorityMedium, p)
	_, ok = parsePriorityInput("urgent")
	assert.False(t, ok)

	r, ok := parseRecurrenceInput(btnRecurMonthly)
	require.True(t, ok)
	assert.Equal(t, model.RecurMonthly, r)
	r, ok = parseRecurrenceInput("нет")
	require.True(t, ok)
	assert.Equal(t, model.RecurNone, r)
	_, ok = parseRecurrenceInput("yearly")
	assert.False(t, ok)
}

func TestErrorText(t *testing.T) {
	assert.Contains(t, errorText(model.ErrTaskNotFound), "не найдена")
	assert.Contains(t, errorText(service.ErrAmbiguousRef), "несколько задач")
	assert.Contains(t, errorText(&lifecycle.TransitionError{From: model.StatusTodo, To: model.StatusCompleted}), "«к выполнению» в «выполнено»")
	assert.Contains(t, errorText(&service.ValidationError{Field: "title", Message: "is required"}), "title")
	assert.Equal(t, "Ошибка: a &lt;b&gt;", errorText(errors.New("a <b>")))
}

func TestShowRendersNotes(t *testing.T) {
	f := newFixture(t)
	task, err := f.svc.CreateTask(context.Background(), service.TaskInput{
		Title: "plan trip",
		Notes: "**важно**\n- билеты",
		Tags:  []string{"travel"},
	})
	require.NoError(t, err)
	f.waitFor(t, func(tasks []model.Task) bool { return len(tasks) == 1 })

	f.send(t, command("/task "+shortID(task.ID)))
	msg := f.client.last(t)
	assert.Contains(t, msg.Text, "Plan trip")
	assert.Contains(t, msg.Text, "<b>важно</b>")
	assert.Contains(t, msg.Text, "• билеты")
	assert.Contains(t, msg.Text, "travel")
	_, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.True(t, ok)
}
