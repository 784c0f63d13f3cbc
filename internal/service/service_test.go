package service

import (
	"chathub/internal/entity"
	"chathub/internal/llm"
	"chathub/internal/model"
	"chathub/internal/model/sql"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func newTestRepository(t *testing.T) *sql.GormRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	repo, err := model.OpenRepository(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := repo.DB().DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repo
}

func newTestUser(t *testing.T, repo model.Repository, username string, canChat bool) *entity.User {
	t.Helper()
	u := &entity.User{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "hash",
		Role:         entity.UserRoleUser,
		IsActive:     true,
		CanChat:      canChat,
	}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

// fakeStream replays fragments and then either err or io.EOF.
// block makes Recv wait for the stream context instead.
type fakeStream struct {
	ctx       context.Context
	fragments []string
	err       error
	block     bool
	idx       int
	closed    bool
}

func (s *fakeStream) Recv() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.idx < len(s.fragments) {
		f := s.fragments[s.idx]
		s.idx++
		return f, nil
	}
	if s.block {
		<-s.ctx.Done()
		return "", s.ctx.Err()
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

type fakeCompleter struct {
	mu sync.Mutex

	fragments []string
	streamErr error
	openErr   error
	block     bool

	title    string
	titleErr error

	prompts     [][]llm.Message
	titleOpts   []llm.CompletionOptions
	lastStream  *fakeStream
	streamCalls int
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, messages []llm.Message, opts llm.CompletionOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, messages)
	f.titleOpts = append(f.titleOpts, opts)
	if f.titleErr != nil {
		return "", f.titleErr
	}
	return f.title, nil
}

func (f *fakeCompleter) Stream(ctx context.Context, messages []llm.Message, _ llm.CompletionOptions) (llm.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamCalls++
	f.prompts = append(f.prompts, messages)
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.lastStream = &fakeStream{ctx: ctx, fragments: f.fragments, err: f.streamErr, block: f.block}
	return f.lastStream, nil
}

var _ llm.ChatCompleter = (*fakeCompleter)(nil)
