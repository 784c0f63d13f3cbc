package model

import (
	"chathub/internal/entity"
	"context"
	"time"
)

// Repository 定义数据库操作接口
type Repository interface {
	// 用户管理
	CreateUser(ctx context.Context, user *entity.User) error
	UpdateUser(ctx context.Context, id uint, updates entity.UserUpdates) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
	GetUserByID(ctx context.Context, id uint) (*entity.User, error)
	ListUsers(ctx context.Context, params *entity.UserQuery) ([]entity.User, *entity.Meta, error)
	DeleteUser(ctx context.Context, id uint) error
	CountUsers(ctx context.Context) (int64, error)

	// 会话
	CreateConversation(ctx context.Context, conversation *entity.Conversation) error
	GetConversation(ctx context.Context, ownerID, id uint) (*entity.Conversation, error)
	ListConversations(ctx context.Context, ownerID uint, exclude []uint, offset, limit int) ([]entity.Conversation, int64, error)
	UpdateConversationTitle(ctx context.Context, id uint, title string, at time.Time) error
	TouchConversation(ctx context.Context, id uint, at time.Time) error
	DeleteConversation(ctx context.Context, id uint) error

	// 消息
	AppendMessage(ctx context.Context, message *entity.Message) error
	UpdateMessageContent(ctx context.Context, id uint, content string) error
	DeleteMessage(ctx context.Context, id uint) error
	ListMessages(ctx context.Context, conversationID uint, offset, limit int) ([]entity.Message, int64, error)
	ListAllMessages(ctx context.Context, conversationID uint) ([]entity.Message, error)
}
