package service

import (
	"chathub/internal/entity"
	"chathub/internal/model"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page 是分页查询结果
type Page[T any] struct {
	Items      []T
	HasMore    bool
	Page       int
	Total      int64
	TotalPages int
}

func newPage[T any](items []T, page, limit int, total int64) *Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := entity.TotalPages(total, limit)
	return &Page[T]{
		Items:      items,
		HasMore:    page < totalPages,
		Page:       page,
		Total:      total,
		TotalPages: totalPages,
	}
}

// NormalizePage 补齐默认的分页参数，并把 limit 限制在 MaxPageLimit 以内
func NormalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// ParseIDList 解析逗号分隔的整数列表，空白项和非正数会被忽略
func ParseIDList(raw string) ([]uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uint, 0, len(parts))
	seen := make(map[uint]struct{}, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIDList, part)
		}
		// 非正数不可能匹配任何记录
		if value <= 0 {
			continue
		}
		id := uint(value)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// ConversationService 会话与消息的业务逻辑，所有读写都按所有者隔离
type ConversationService struct {
	repo model.Repository
	now  func() time.Time

	// archiveFunc 在删除会话前调用（由调用方设置）
	archiveFunc func(ctx context.Context, conversation *entity.Conversation) error
}

func NewConversationService(repo model.Repository) *ConversationService {
	return &ConversationService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetArchiveFunc 设置删除前的归档回调
func (s *ConversationService) SetArchiveFunc(fn func(ctx context.Context, conversation *entity.Conversation) error) {
	s.archiveFunc = fn
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrInvalidTitle
	}
	if utf8.RuneCountInString(title) > entity.MaxConversationTitle {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidTitle, entity.MaxConversationTitle)
	}
	return title, nil
}

// Create 为 owner 新建会话，标题为空时使用默认标题
func (s *ConversationService) Create(ctx context.Context, owner *entity.User, title string) (*entity.Conversation, error) {
	if owner == nil || !owner.CanChat {
		return nil, ErrChatForbidden
	}
	if strings.TrimSpace(title) == "" {
		title = entity.DefaultConversationTitle
	}
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}

	now := s.now()
	conversation := &entity.Conversation{
		UserID:    owner.ID,
		Title:     &title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateConversation(ctx, conversation); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conversation, nil
}

func (s *ConversationService) List(ctx context.Context, ownerID uint, page, limit int, exclude []uint) (*Page[entity.Conversation], error) {
	page, limit = NormalizePage(page, limit)
	items, total, err := s.repo.ListConversations(ctx, ownerID, exclude, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return newPage(items, page, limit, total), nil
}

// Get 返回 owner 名下的会话；不存在和不属于 owner 都返回 ErrConversationNotFound
func (s *ConversationService) Get(ctx context.Context, ownerID, id uint) (*entity.Conversation, error) {
	conversation, err := s.repo.GetConversation(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return conversation, nil
}

func (s *ConversationService) UpdateTitle(ctx context.Context, ownerID, id uint, title string) (*entity.Conversation, error) {
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	conversation, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.setTitle(ctx, conversation, title); err != nil {
		return nil, err
	}
	return conversation, nil
}

func (s *ConversationService) setTitle(ctx context.Context, conversation *entity.Conversation, title string) error {
	now := s.now()
	if err := s.repo.UpdateConversationTitle(ctx, conversation.ID, title, now); err != nil {
		return fmt.Errorf("update conversation title: %w", err)
	}
	conversation.Title = &title
	if now.After(conversation.UpdatedAt) {
		conversation.UpdatedAt = now
	}
	return nil
}

// Delete 删除会话及其全部消息；设置了归档回调时先归档，归档失败则不删除
func (s *ConversationService) Delete(ctx context.Context, ownerID, id uint) error {
	conversation, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if s.archiveFunc != nil {
		if err := s.archiveFunc(ctx, conversation); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"conversation_id": conversation.ID,
				"user_id":         ownerID,
			}).Error("failed to archive conversation before delete")
			return fmt.Errorf("archive conversation: %w", err)
		}
	}

	if err := s.repo.DeleteConversation(ctx, conversation.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// AppendMessage 追加一条消息并刷新会话的 updated_at。
// 用户消息不能为空，助手消息允许以空内容占位。
func (s *ConversationService) AppendMessage(ctx context.Context, conversation *entity.Conversation, authorID uint, role entity.MessageRole, content string) (*entity.Message, error) {
	if role == entity.MessageRoleUser && strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	message := &entity.Message{
		ConversationID: conversation.ID,
		UserID:         authorID,
		Role:           role,
		Content:        content,
		Timestamp:      s.now(),
	}
	if err := s.repo.AppendMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("append %s message: %w", role, err)
	}
	if message.Timestamp.After(conversation.UpdatedAt) {
		conversation.UpdatedAt = message.Timestamp
	}
	return message, nil
}

func (s *ConversationService) ListMessages(ctx context.Context, ownerID, conversationID uint, page, limit int) (*Page[entity.Message], error) {
	if _, err := s.Get(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}
	page, limit = NormalizePage(page, limit)
	items, total, err := s.repo.ListMessages(ctx, conversationID, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return newPage(items, page, limit, total), nil
}

// History 返回会话的全部消息（按时间升序）
func (s *ConversationService) History(ctx context.Context, conversationID uint) ([]entity.Message, error) {
	messages, err := s.repo.ListAllMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation history: %w", err)
	}
	return messages, nil
}
