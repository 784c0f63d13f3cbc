package entity

import "time"

const (
	DefaultConversationTitle = "New Chat"
	MaxConversationTitle     = 200
)

// MessageRole identifies who authored a message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Conversation is an ordered exchange owned by exactly one user.
type Conversation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"column:user_id;index;not null" json:"user_id"`
	Title     *string   `gorm:"column:title;type:varchar(200)" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// TitleOrEmpty dereferences the nullable title.
func (c *Conversation) TitleOrEmpty() string {
	if c == nil || c.Title == nil {
		return ""
	}
	return *c.Title
}

// Message is one utterance inside a conversation.
type Message struct {
	ID             uint        `gorm:"primarykey" json:"id"`
	ConversationID uint        `gorm:"column:conversation_id;index:idx_messages_conversation_ts,priority:1;not null" json:"conversation_id"`
	UserID         uint        `gorm:"column:user_id;index;not null" json:"user_id"`
	Role           MessageRole `gorm:"column:role;type:varchar(20);not null" json:"role"`
	Content        string      `gorm:"column:content;type:text;not null" json:"content"`
	Timestamp      time.Time   `gorm:"column:timestamp;index:idx_messages_conversation_ts,priority:2;not null" json:"timestamp"`
}

func (Message) TableName() string {
	return "messages"
}

type ConversationCreateRequest struct {
	Title string `json:"title"`
}

type ConversationUpdateRequest struct {
	Title string `json:"title" binding:"required"`
}

// ConversationQuery carries the listing parameters of GET /conversations.
type ConversationQuery struct {
	PageWindow
	ExcludeIDs string `form:"exclude_ids"`
}

type ConversationListResponse struct {
	Conversations []Conversation `json:"conversations"`
	HasMore       bool           `json:"hasMore"`
	Page          int            `json:"page"`
	Total         int64          `json:"total"`
	TotalPages    int            `json:"totalPages"`
}

type MessageListResponse struct {
	Messages   []Message `json:"messages"`
	HasMore    bool      `json:"hasMore"`
	Page       int       `json:"page"`
	Total      int64     `json:"total"`
	TotalPages int       `json:"totalPages"`
}

// ChatSendRequest accepts the text under "content"; "message" is kept for older clients.
type ChatSendRequest struct {
	ConversationID uint   `json:"conversation_id" binding:"required"`
	Content        string `json:"content"`
	Message        string `json:"message"`
}

// Text returns the submitted message body.
func (r ChatSendRequest) Text() string {
	if r.Content != "" {
		return r.Content
	}
	return r.Message
}

type TitleResponse struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

type ExportResponse struct {
	ConversationID uint   `json:"conversation_id"`
	Location       string `json:"location"`
}

// Transcript is the archived form of a conversation.
type Transcript struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
	ExportedAt   time.Time    `json:"exported_at"`
}
