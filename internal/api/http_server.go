package api

import (
	"chathub/internal/auth"
	"chathub/internal/config"
	"chathub/internal/entity"
	"chathub/internal/llm"
	"chathub/internal/model"
	"chathub/internal/service"
	"chathub/internal/storage"
	"context"
	"time"
)

const requestTimeout = 5 * time.Second

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg         config.Config
	repo        model.Repository
	authManager *auth.Manager

	// 服务层
	conversations *service.ConversationService
	chat          *service.ChatService
	transcripts   *service.TranscriptService
}

// NewHTTPHandler 创建 HTTP 处理器实例；completer 和 archive 可以为 nil，对应功能返回 503
func NewHTTPHandler(cfg config.Config, repo model.Repository, completer llm.ChatCompleter, archive storage.Archive) (*HTTPHandler, error) {
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL(), cfg.TokenMaxTTL())
	if err != nil {
		return nil, err
	}

	conversations := service.NewConversationService(repo)
	chat := service.NewChatService(repo, conversations, completer, service.ChatOptions{
		Model:       cfg.LLMModel,
		TitleModel:  cfg.LLMTitleModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout(),
	})
	transcripts := service.NewTranscriptService(conversations, archive)

	// 删除前归档
	if cfg.ArchiveOnDelete && transcripts.Available() {
		conversations.SetArchiveFunc(func(ctx context.Context, conversation *entity.Conversation) error {
			_, err := transcripts.Archive(ctx, conversation)
			return err
		})
	}

	return &HTTPHandler{
		cfg:           cfg,
		repo:          repo,
		authManager:   authManager,
		conversations: conversations,
		chat:          chat,
		transcripts:   transcripts,
	}, nil
}
