package service

import "errors"

var (
	ErrConversationNotFound  = errors.New("conversation not found")
	ErrChatForbidden         = errors.New("user is not allowed to chat")
	ErrCompletionUnavailable = errors.New("completion service unavailable")
	ErrStreamFailed          = errors.New("completion stream failed")
	ErrEmptyMessage          = errors.New("message content is empty")
	ErrInvalidTitle          = errors.New("invalid conversation title")
	ErrEmptyConversation     = errors.New("conversation has no messages")
	ErrNotSubstantial        = errors.New("conversation does not have enough content for a title")
	ErrArchiveUnavailable    = errors.New("transcript archive unavailable")
	ErrInvalidIDList         = errors.New("invalid id list")
)
