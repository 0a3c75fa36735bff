package repository

import (
	"context"
	"strconv"
	"time"

	"lingua_lms_backend/internal/feed"
	"lingua_lms_backend/internal/model"

	"gorm.io/gorm"
)

// ChatRepository appends transcript rows. There is no update or delete:
// transcripts are append-only and ordered by the auto-increment id.
type ChatRepository struct {
	DB  *gorm.DB
	Bus feed.Bus
}

func NewChatRepository(db *gorm.DB, bus feed.Bus) *ChatRepository {
	return &ChatRepository{DB: db, Bus: bus}
}

func chatRowID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func (r *ChatRepository) Append(ctx context.Context, msg *model.ChatMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if err := r.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return err
	}
	if r.Bus != nil {
		_ = r.Bus.Publish(ctx, feed.NewEvent(feed.EntityChat, feed.ActionInsert, msg.SessionID, chatRowID(msg.ID), msg))
	}
	return nil
}

// ListBySession returns the transcript in creation order.
func (r *ChatRepository) ListBySession(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&msgs).Error
	return msgs, err
}

// ListAfter supports incremental catch-up after a feed gap.
func (r *ChatRepository) ListAfter(ctx context.Context, sessionID string, afterID uint, limit int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.DB.WithContext(ctx).
		Where("session_id = ? AND id > ?", sessionID, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

func (r *ChatRepository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ChatMessage{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}
