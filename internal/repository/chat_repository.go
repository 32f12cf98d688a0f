package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskflow/internal/model"
)

// ChatRepository remembers the Telegram chats that talk to the bot, so
// scheduled digests know where to go.
type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Upsert finds or creates a chat by Telegram id and refreshes its profile.
func (r *ChatRepository) Upsert(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.Chat, error) {
	var chat model.Chat
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&chat).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"first_name": firstName,
			"last_name":  lastName,
			"username":   username,
		}
		if err := db.Model(&chat).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update chat: %w", err)
		}
		return &chat, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		chat = model.Chat{
			TelegramID: telegramID,
			FirstName:  firstName,
			LastName:   lastName,
			Username:   username,
		}
		if err := db.Create(&chat).Error; err != nil {
			return nil, fmt.Errorf("create chat: %w", err)
		}
		return &chat, nil
	default:
		return nil, fmt.Errorf("find chat: %w", err)
	}
}

func (r *ChatRepository) ListAll(ctx context.Context) ([]model.Chat, error) {
	var chats []model.Chat
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}
