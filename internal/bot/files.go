package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/service"
)

// maxImportSize bounds a downloaded import file.
const maxImportSize = 10 << 20

func (b *Bot) handleExport(msg *tgbotapi.Message) error {
	var buf bytes.Buffer
	if err := b.taskSvc.Export(&buf); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось выгрузить задачи. %s", errorText(err)))
	}

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  service.ExportFileName(b.taskSvc.Now()),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("📦 Задач в выгрузке: %d", len(b.taskSvc.Snapshot()))
	_, err := b.api.Send(doc)
	return err
}

func (b *Bot) handleImport(ctx context.Context, msg *tgbotapi.Message) error {
	doc := msg.Document
	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".json") && doc.MimeType != "application/json" {
		return b.sendText(msg.Chat.ID, "Для импорта пришли JSON-файл, выгруженный через /export.")
	}
	if doc.FileSize > maxImportSize {
		return b.sendText(msg.Chat.ID, "Файл слишком большой для импорта.")
	}

	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		return fmt.Errorf("get file url: %w", err)
	}
	data, err := b.download(ctx, url)
	if err != nil {
		log.Printf("download import file: %v", err)
		return b.sendText(msg.Chat.ID, "Не удалось скачать файл, попробуй ещё раз.")
	}

	res, err := b.taskSvc.Import(ctx, bytes.NewReader(data))
	if errors.Is(err, service.ErrMalformedImport) {
		return b.sendText(msg.Chat.ID, "Файл не похож на выгрузку задач: нужен JSON-массив объектов.")
	}
	if err != nil && res.Created == 0 {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Импорт не удался. %s", errorText(err)))
	}

	log.Printf("[info] imported %d tasks chat=%d", res.Created, msg.Chat.ID)
	text := fmt.Sprintf("📥 Импортировано задач: %d", res.Created)
	if err != nil {
		text += "\nЧасть задач не сохранилась. " + errorText(err)
	}
	return b.sendText(msg.Chat.ID, text)
}

func httpGet(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImportSize))
}
