package service

import (
	"chathub/internal/entity"
	"chathub/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDList(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []uint
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"blank", "   ", nil, false},
		{"single", "7", []uint{7}, false},
		{"spaces and blanks", " 1, 2,,3 ", []uint{1, 2, 3}, false},
		{"duplicates", "4,4,5", []uint{4, 5}, false},
		{"letters", "1,a", nil, true},
		{"negative skipped", "-1", []uint{}, false},
		{"zero skipped", "0,3", []uint{3}, false},
		{"float", "1.5", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIDList(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidIDList)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePage(t *testing.T) {
	page, limit := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPageLimit, limit)

	page, limit = NormalizePage(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, MaxPageLimit, limit)
}

func TestConversationService_CreateRules(t *testing.T) {
	repo := newTestRepository(t)
	svc := NewConversationService(repo)
	ctx := context.Background()

	alice := newTestUser(t, repo, "alice", true)
	conversation, err := svc.Create(ctx, alice, "  ")
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultConversationTitle, conversation.TitleOrEmpty())
	assert.Equal(t, alice.ID, conversation.UserID)

	conversation, err = svc.Create(ctx, alice, " Trip plans ")
	require.NoError(t, err)
	assert.Equal(t, "Trip plans", conversation.TitleOrEmpty())

	_, err = svc.Create(ctx, alice, strings.Repeat("x", entity.MaxConversationTitle+1))
	require.ErrorIs(t, err, ErrInvalidTitle)

	muted := newTestUser(t, repo, "muted", false)
	_, err = svc.Create(ctx, muted, "")
	require.ErrorIs(t, err, ErrChatForbidden)
}

func TestConversationService_PaginationUnion(t *testing.T) {
	repo := newTestRepository(t)
	svc := NewConversationService(repo)
	ctx := context.Background()

	alice := newTestUser(t, repo, "alice", true)
	bob := newTestUser(t, repo, "bob", true)
	_, err := svc.Create(ctx, bob, "not yours")
	require.NoError(t, err)

	var ids []uint
	for i := 0; i < 7; i++ {
		c, err := svc.Create(ctx, alice, "")
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	excluded := ids[2]

	seen := map[uint]bool{}
	const limit = 2
	for page := 1; ; page++ {
		result, err := svc.List(ctx, alice.ID, page, limit, []uint{excluded})
		require.NoError(t, err)
		assert.Equal(t, int64(6), result.Total)
		assert.Equal(t, 3, result.TotalPages)
		assert.Equal(t, page, result.Page)
		assert.Equal(t, page < 3, result.HasMore)
		for _, c := range result.Items {
			assert.Equal(t, alice.ID, c.UserID)
			assert.False(t, seen[c.ID], "conversation %d listed twice", c.ID)
			seen[c.ID] = true
		}
		if !result.HasMore {
			break
		}
	}
	assert.Len(t, seen, 6)
	assert.False(t, seen[excluded])

	beyond, err := svc.List(ctx, alice.ID, 9, limit, nil)
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.NotNil(t, beyond.Items)
	assert.False(t, beyond.HasMore)
}

func TestConversationService_OwnershipIsolation(t *testing.T) {
	repo := newTestRepository(t)
	svc := NewConversationService(repo)
	ctx := context.Background()

	alice := newTestUser(t, repo, "alice", true)
	bob := newTestUser(t, repo, "bob", true)
	conversation, err := svc.Create(ctx, alice, "")
	require.NoError(t, err)
	_, err = svc.AppendMessage(ctx, conversation, alice.ID, entity.MessageRoleUser, "secret plans")
	require.NoError(t, err)

	_, err = svc.Get(ctx, bob.ID, conversation.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	_, err = svc.UpdateTitle(ctx, bob.ID, conversation.ID, "mine now")
	assert.ErrorIs(t, err, ErrConversationNotFound)
	_, err = svc.ListMessages(ctx, bob.ID, conversation.ID, 1, 10)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, bob.ID, conversation.ID), ErrConversationNotFound)

	_, err = svc.Get(ctx, alice.ID, conversation.ID+1000)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	page, err := svc.List(ctx, bob.ID, 1, 10, nil)
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	stored, err := svc.Get(ctx, alice.ID, conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultConversationTitle, stored.TitleOrEmpty())
}

func TestConversationService_UpdateTitleBumpsUpdatedAt(t *testing.T) {
	repo := newTestRepository(t)
	svc := NewConversationService(repo)
	ctx := context.Background()

	alice := newTestUser(t, repo, "alice", true)
	conversation, err := svc.Create(ctx, alice, "")
	require.NoError(t, err)
	before := conversation.UpdatedAt

	updated, err := svc.UpdateTitle(ctx, alice.ID, conversation.ID, "  Renamed  ")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.TitleOrEmpty())
	assert.False(t, updated.UpdatedAt.Before(before))

	_, err = svc.UpdateTitle(ctx, alice.ID, conversation.ID, " ")
	assert.ErrorIs(t, err, ErrInvalidTitle)
}

func TestConversationService_MessagesPaginateAscending(t *testing.T) {
	repo := newTestRepository(t)
	svc := NewConversationService(repo)
	ctx := context.Background()

	alice := newTestUser(t, repo, "alice", true)
	conversation, err := svc.Create(ctx, alice, "")
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three", "four", "five"} {
		_, err := svc.AppendMessage(ctx, conversation, alice.ID, entity.MessageRoleUser, text)
		require.NoError(t, err)
	}
	_, err = svc.AppendMessage(ctx, conversation, alice.ID, entity.MessageRoleUser, "  ")
	require.ErrorIs(t, err, ErrEmptyMessage)

	var contents []string
	for page := 1; page <= 3; page++ {
		result, err := svc.ListMessages(ctx, alice.ID, conversation.ID, page, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(5), result.Total)
		assert.Equal(t, 3, result.TotalPages)
		for _, m := range result.Items {
			contents = append(contents, m.Content)
		}
	}
	assert.Equal(t, []string{"one", "two", "three", "four", "five"}, contents)
}

func TestConversationService_DeleteArchivesFirst(t *testing.T) {
	repo := newTestRepository(t)
	svc := NewConversationService(repo)
	ctx := context.Background()

	alice := newTestUser(t, repo, "alice", true)
	conversation, err := svc.Create(ctx, alice, "")
	require.NoError(t, err)
	_, err = svc.AppendMessage(ctx, conversation, alice.ID, entity.MessageRoleUser, "hello")
	require.NoError(t, err)

	svc.SetArchiveFunc(func(context.Context, *entity.Conversation) error {
		return errors.New("bucket offline")
	})
	require.Error(t, svc.Delete(ctx, alice.ID, conversation.ID))
	_, err = svc.Get(ctx, alice.ID, conversation.ID)
	require.NoError(t, err, "conversation must survive a failed archive")

	var archived uint
	svc.SetArchiveFunc(func(_ context.Context, c *entity.Conversation) error {
		archived = c.ID
		return nil
	})
	require.NoError(t, svc.Delete(ctx, alice.ID, conversation.ID))
	assert.Equal(t, conversation.ID, archived)

	_, err = svc.Get(ctx, alice.ID, conversation.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	messages, err := svc.History(ctx, conversation.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestTranscriptService_Export(t *testing.T) {
	repo := newTestRepository(t)
	conversations := NewConversationService(repo)
	ctx := context.Background()

	dir := t.TempDir()
	archive, err := storage.NewLocalArchive(dir)
	require.NoError(t, err)
	transcripts := NewTranscriptService(conversations, archive)

	alice := newTestUser(t, repo, "alice", true)
	conversation, err := conversations.Create(ctx, alice, "Trip")
	require.NoError(t, err)
	_, err = conversations.AppendMessage(ctx, conversation, alice.ID, entity.MessageRoleUser, "Plan a week in Kyoto")
	require.NoError(t, err)
	_, err = conversations.AppendMessage(ctx, conversation, alice.ID, entity.MessageRoleAssistant, "Day one: temples")
	require.NoError(t, err)

	location, err := transcripts.Export(ctx, alice.ID, conversation.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(location, "transcripts/user-"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(location)))
	require.NoError(t, err)
	var transcript entity.Transcript
	require.NoError(t, json.Unmarshal(data, &transcript))
	assert.Equal(t, conversation.ID, transcript.Conversation.ID)
	require.Len(t, transcript.Messages, 2)
	assert.Equal(t, "Plan a week in Kyoto", transcript.Messages[0].Content)
	assert.Equal(t, "Day one: temples", transcript.Messages[1].Content)

	again, err := transcripts.Export(ctx, alice.ID, conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, location, again)

	_, err = transcripts.Export(ctx, alice.ID+1, conversation.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = NewTranscriptService(conversations, nil).Export(ctx, alice.ID, conversation.ID)
	assert.ErrorIs(t, err, ErrArchiveUnavailable)
}
