package sql

import (
	"chathub/internal/entity"
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// CreateConversation persists a new conversation.
func (r *GormRepository) CreateConversation(ctx context.Context, conversation *entity.Conversation) error {
	if err := r.ready(); err != nil {
		return err
	}
	if conversation == nil {
		return fmt.Errorf("conversation is nil")
	}
	return r.db.WithContext(ctx).Create(conversation).Error
}

// GetConversation loads a conversation only when ownerID owns it.
func (r *GormRepository) GetConversation(ctx context.Context, ownerID, id uint) (*entity.Conversation, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var conversation entity.Conversation
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// ListConversations returns one page of the owner's conversations, most recently updated first.
func (r *GormRepository) ListConversations(ctx context.Context, ownerID uint, exclude []uint, offset, limit int) ([]entity.Conversation, int64, error) {
	if err := r.ready(); err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Model(&entity.Conversation{}).Where("user_id = ?", ownerID)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	conversations := make([]entity.Conversation, 0, limit)
	if err := query.Order("updated_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).Find(&conversations).Error; err != nil {
		return nil, 0, err
	}
	return conversations, total, nil
}

// UpdateConversationTitle sets the title and bumps updated_at.
func (r *GormRepository) UpdateConversationTitle(ctx context.Context, id uint, title string, at time.Time) error {
	if err := r.ready(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.Conversation{}).Where("id = ?", id).UpdateColumn("title", title).Error; err != nil {
			return err
		}
		return touchConversation(tx, id, at)
	})
}

// TouchConversation moves updated_at forward to at; it never moves it back.
func (r *GormRepository) TouchConversation(ctx context.Context, id uint, at time.Time) error {
	if err := r.ready(); err != nil {
		return err
	}
	return touchConversation(r.db.WithContext(ctx), id, at)
}

func touchConversation(db *gorm.DB, id uint, at time.Time) error {
	return db.Model(&entity.Conversation{}).
		Where("id = ? AND updated_at < ?", id, at).
		UpdateColumn("updated_at", at).Error
}

// DeleteConversation removes a conversation and its messages.
func (r *GormRepository) DeleteConversation(ctx context.Context, id uint) error {
	if err := r.ready(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&entity.Message{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&entity.Conversation{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
