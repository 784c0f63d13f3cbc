package api

import (
	"chathub/internal/entity"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func (s *testServer) createConversation(token, title string) entity.Conversation {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/conversations", token, gin.H{"title": title})
	if w.Code != http.StatusCreated {
		s.t.Fatalf("create conversation: %d (%s)", w.Code, w.Body.String())
	}
	var conversation entity.Conversation
	if err := json.Unmarshal(w.Body.Bytes(), &conversation); err != nil {
		s.t.Fatalf("decode conversation: %v", err)
	}
	return conversation
}

func (s *testServer) storedMessages(conversationID uint) []entity.Message {
	s.t.Helper()
	messages, err := s.repo.ListAllMessages(context.Background(), conversationID)
	if err != nil {
		s.t.Fatalf("list messages: %v", err)
	}
	return messages
}

func TestConversationOwnership(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := srv.token(srv.createUser("alice", entity.UserRoleUser, true, true))
	mallory := srv.token(srv.createUser("mallory", entity.UserRoleUser, true, true))

	conversation := srv.createConversation(alice, "Plans")
	path := fmt.Sprintf("/api/conversations/%d", conversation.ID)

	if w := srv.do(http.MethodGet, path, alice, nil); w.Code != http.StatusOK {
		t.Fatalf("owner lookup failed: %d (%s)", w.Code, w.Body.String())
	}

	expectError(t, srv.do(http.MethodGet, path, mallory, nil), http.StatusNotFound, ErrCodeConversationNotFound, "Conversation not found")
	expectError(t, srv.do(http.MethodPut, path, mallory, gin.H{"title": "mine"}), http.StatusNotFound, ErrCodeConversationNotFound, "")
	expectError(t, srv.do(http.MethodGet, path+"/messages", mallory, nil), http.StatusNotFound, ErrCodeConversationNotFound, "")
	expectError(t, srv.do(http.MethodDelete, path, mallory, nil), http.StatusNotFound, ErrCodeConversationNotFound, "")

	if w := srv.do(http.MethodDelete, path, alice, nil); w.Code != http.StatusNoContent {
		t.Fatalf("owner delete failed: %d (%s)", w.Code, w.Body.String())
	}
	expectError(t, srv.do(http.MethodGet, path, alice, nil), http.StatusNotFound, ErrCodeConversationNotFound, "")
}

func TestCreateConversationWithoutBody(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.token(srv.createUser("alice", entity.UserRoleUser, true, true))

	w := srv.do(http.MethodPost, "/api/conversations", token, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"title":"New Chat"`) {
		t.Fatalf("expected default title, got %s", w.Body.String())
	}
}

func TestCreateConversationRequiresChatPermission(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.token(srv.createUser("muted", entity.UserRoleUser, true, false))

	expectError(t, srv.do(http.MethodPost, "/api/conversations", token, gin.H{"title": "x"}),
		http.StatusForbidden, ErrCodeChatDisabled, "")
}

func TestListConversationsQueryValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.token(srv.createUser("alice", entity.UserRoleUser, true, true))
	first := srv.createConversation(token, "one")
	srv.createConversation(token, "two")
	srv.createConversation(token, "three")

	tests := []struct {
		name  string
		query string
	}{
		{"non numeric exclude", "?exclude_ids=abc"},
		{"float exclude", "?exclude_ids=1.5"},
		{"page zero", "?page=0"},
		{"limit too large", "?limit=101"},
		{"limit zero", "?limit=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, srv.do(http.MethodGet, "/api/conversations"+tt.query, token, nil),
				http.StatusBadRequest, ErrCodeInvalidRequest, "")
		})
	}

	w := srv.do(http.MethodGet, fmt.Sprintf("/api/conversations?limit=1&exclude_ids=%d,,%d", first.ID, first.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var response entity.ConversationListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if response.Total != 2 || response.TotalPages != 2 || !response.HasMore || len(response.Conversations) != 1 {
		t.Fatalf("unexpected page %+v", response)
	}
	if response.Conversations[0].ID == first.ID {
		t.Fatal("excluded conversation returned")
	}
}

func TestSendStream(t *testing.T) {
	completer := &stubCompleter{fragments: []string{"Hel", "lo", " there"}, title: "Greeting"}
	srv := newTestServer(t, completer)
	token := srv.token(srv.createUser("alice", entity.UserRoleUser, true, true))
	conversation := srv.createConversation(token, "")

	w := srv.do(http.MethodPost, "/api/chat/send_stream", token, gin.H{
		"conversation_id": conversation.ID,
		"content":         "Say hello",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}
	want := "data: Hel\n\ndata: lo\n\ndata:  there\n\ndata: [DONE]\n\n"
	if w.Body.String() != want {
		t.Fatalf("unexpected stream body %q", w.Body.String())
	}

	messages := srv.storedMessages(conversation.ID)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != entity.MessageRoleUser || messages[0].Content != "Say hello" {
		t.Fatalf("unexpected user message %+v", messages[0])
	}
	if messages[1].Role != entity.MessageRoleAssistant || messages[1].Content != "Hello there" {
		t.Fatalf("unexpected assistant message %+v", messages[1])
	}
}

func TestSendStreamAcceptsLegacyMessageField(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{fragments: []string{"ok"}})
	token := srv.token(srv.createUser("alice", entity.UserRoleUser, true, true))
	conversation := srv.createConversation(token, "Legacy")

	w := srv.do(http.MethodPost, "/api/chat/send_stream", token, gin.H{
		"conversation_id": conversation.ID,
		"message":         "hi",
	})
	if w.Code != http.StatusOK || !strings.HasSuffix(w.Body.String(), "data: [DONE]\n\n") {
		t.Fatalf("unexpected response %d %q", w.Code, w.Body.String())
	}
}

func TestSendStreamRejections(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{fragments: []string{"x"}})
	alice := srv.token(srv.createUser("alice", entity.UserRoleUser, true, true))
	muted := srv.token(srv.createUser("muted", entity.UserRoleUser, true, false))
	conversation := srv.createConversation(alice, "Mine")

	expectError(t, srv.do(http.MethodPost, "/api/chat/send_stream", alice, gin.H{"conversation_id": conversation.ID}),
		http.StatusBadRequest, ErrCodeMissingField, "content")
	expectError(t, srv.do(http.MethodPost, "/api/chat/send_stream", alice, gin.H{"content": "hi"}),
		http.StatusBadRequest, "", "")
	expectError(t, srv.do(http.MethodPost, "/api/chat/send_stream", muted, gin.H{"conversation_id": conversation.ID, "content": "hi"}),
		http.StatusForbidden, ErrCodeChatDisabled, "")
	expectError(t, srv.do(http.MethodPost, "/api/chat/send_stream", alice, gin.H{"conversation_id": 9999, "content": "hi"}),
		http.StatusNotFound, ErrCodeConversationNotFound, "")

	if messages := srv.storedMessages(conversation.ID); len(messages) != 0 {
		t.Fatalf("rejected requests stored %d messages", len(messages))
	}
}

func TestSendStreamWithoutCompleter(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.token(srv.createUser("alice", entity.UserRoleUser, true, true))
	conversation := srv.createConversation(token, "Offline")

	expectError(t, srv.do(http.MethodPost, "/api/chat/send_stream", token, gin.H{"conversation_id": conversation.ID, "content": "hi"}),
		http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "")
	if messages := srv.storedMessages(conversation.ID); len(messages) != 0 {
		t.Fatalf("expected nothing stored, got %d messages", len(messages))
	}

	expectError(t, srv.do(http.MethodPost, fmt.Sprintf("/api/conversations/%d/title", conversation.ID), token, nil),
		http.StatusNotFound, ErrCodeConversationNotFound, "empty conversation")
}

func TestSendStreamOpenFailure(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{openErr: errors.New("upstream refused")})
	token := srv.token(srv.createUser("alice", entity.UserRoleUser, true, true))
	conversation := srv.createConversation(token, "Broken")

	w := srv.do(http.MethodPost, "/api/chat/send_stream", token, gin.H{"conversation_id": conversation.ID, "content": "hi"})
	expectError(t, w, http.StatusInternalServerError, ErrCodeStreamFailed, "Streaming failed")
	if strings.Contains(w.Body.String(), "upstream refused") {
		t.Fatalf("upstream error leaked: %s", w.Body.String())
	}

	messages := srv.storedMessages(conversation.ID)
	if len(messages) != 1 || messages[0].Role != entity.MessageRoleUser {
		t.Fatalf("expected only the user message to remain, got %+v", messages)
	}
}

func TestExportWithoutStorage(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.token(srv.createUser("alice", entity.UserRoleUser, true, true))
	conversation := srv.createConversation(token, "Keep")

	expectError(t, srv.do(http.MethodPost, fmt.Sprintf("/api/conversations/%d/export", conversation.ID), token, nil),
		http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "")
}

func TestSendStreamEmptyReplyIsAFailure(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{})
	token := srv.token(srv.createUser("alice", entity.UserRoleUser, true, true))
	conversation := srv.createConversation(token, "Filtered")

	w := srv.do(http.MethodPost, "/api/chat/send_stream", token, gin.H{"conversation_id": conversation.ID, "content": "hi"})
	expectError(t, w, http.StatusInternalServerError, ErrCodeStreamFailed, "Streaming failed")

	messages := srv.storedMessages(conversation.ID)
	if len(messages) != 1 || messages[0].Role != entity.MessageRoleUser {
		t.Fatalf("expected only the user message to remain, got %+v", messages)
	}
}

func TestListConversationsIgnoresNonPositiveExcludes(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.token(srv.createUser("alice", entity.UserRoleUser, true, true))
	srv.createConversation(token, "one")
	srv.createConversation(token, "two")

	w := srv.do(http.MethodGet, "/api/conversations?exclude_ids=-1,0", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var response entity.ConversationListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if response.Total != 2 || len(response.Conversations) != 2 {
		t.Fatalf("unexpected page %+v", response)
	}
}

