package service

import (
	"chathub/internal/entity"
	"chathub/internal/storage"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const transcriptCategory = "transcripts"

// TranscriptService 把会话导出为 JSON 并写入归档存储
type TranscriptService struct {
	conversations *ConversationService
	archive       storage.Archive
}

// NewTranscriptService archive 为 nil 时导出返回 ErrArchiveUnavailable
func NewTranscriptService(conversations *ConversationService, archive storage.Archive) *TranscriptService {
	return &TranscriptService{
		conversations: conversations,
		archive:       archive,
	}
}

func (s *TranscriptService) Available() bool {
	return s != nil && s.archive != nil
}

// Export 归档 owner 名下的会话并返回存储位置。
// 对象名包含会话的 updated_at，内容未变化时重复导出不会重写对象。
func (s *TranscriptService) Export(ctx context.Context, ownerID, conversationID uint) (string, error) {
	conversation, err := s.conversations.Get(ctx, ownerID, conversationID)
	if err != nil {
		return "", err
	}
	return s.Archive(ctx, conversation)
}

// Archive 归档已加载的会话；可直接作为 ConversationService 的删除前回调
func (s *TranscriptService) Archive(ctx context.Context, conversation *entity.Conversation) (string, error) {
	if !s.Available() {
		return "", ErrArchiveUnavailable
	}
	messages, err := s.conversations.History(ctx, conversation.ID)
	if err != nil {
		return "", err
	}
	if messages == nil {
		messages = []entity.Message{}
	}

	body, err := json.MarshalIndent(entity.Transcript{
		Conversation: *conversation,
		Messages:     messages,
		ExportedAt:   time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}

	location, err := s.archive.Put(ctx, storage.Object{
		Category:     transcriptCategory,
		Owner:        fmt.Sprintf("user-%d", conversation.UserID),
		Name:         fmt.Sprintf("conversation-%d-%d", conversation.ID, conversation.UpdatedAt.Unix()),
		Extension:    "json",
		Body:         body,
		SkipIfExists: true,
	})
	if err != nil {
		return "", fmt.Errorf("store transcript: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"conversation_id": conversation.ID,
		"user_id":         conversation.UserID,
		"storage":         s.archive.Kind(),
		"location":        location,
	}).Info("conversation transcript archived")
	return location, nil
}
