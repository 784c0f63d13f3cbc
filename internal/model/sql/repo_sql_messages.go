package sql

import (
	"chathub/internal/entity"
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// AppendMessage inserts the message and bumps its conversation in one transaction.
func (r *GormRepository) AppendMessage(ctx context.Context, message *entity.Message) error {
	if err := r.ready(); err != nil {
		return err
	}
	if message == nil {
		return fmt.Errorf("message is nil")
	}
	if message.ConversationID == 0 {
		return fmt.Errorf("message has no conversation")
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return touchConversation(tx, message.ConversationID, message.Timestamp)
	})
}

// UpdateMessageContent rewrites the content of an existing message in place.
func (r *GormRepository) UpdateMessageContent(ctx context.Context, id uint, content string) error {
	if err := r.ready(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&entity.Message{}).Where("id = ?", id).UpdateColumn("content", content).Error
}

// DeleteMessage removes a single message.
func (r *GormRepository) DeleteMessage(ctx context.Context, id uint) error {
	if err := r.ready(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&entity.Message{}, id).Error
}

// ListMessages returns one page of a conversation in display order.
func (r *GormRepository) ListMessages(ctx context.Context, conversationID uint, offset, limit int) ([]entity.Message, int64, error) {
	if err := r.ready(); err != nil {
		return nil, 0, err
	}
	query := r.db.WithContext(ctx).Model(&entity.Message{}).Where("conversation_id = ?", conversationID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	messages := make([]entity.Message, 0, limit)
	if err := query.Order("timestamp ASC").Order("id ASC").
		Offset(offset).Limit(limit).Find(&messages).Error; err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// ListAllMessages returns the whole conversation in display order.
func (r *GormRepository) ListAllMessages(ctx context.Context, conversationID uint) ([]entity.Message, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var messages []entity.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").Order("id ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
