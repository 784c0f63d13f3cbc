package service

import (
	"chathub/internal/entity"
	"chathub/internal/llm"
	"chathub/internal/model"
	"chathub/internal/utils"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// StreamDone 是流式响应结束时发送的标记
const StreamDone = "[DONE]"

const (
	titlePromptLimit     = 1000
	titleMaxTokens       = 50
	titleTemperature     = 0.3
	defaultStreamTimeout = 60 * time.Second
)

const titleSystemPrompt = `You generate concise, descriptive titles for conversations.
The title must be 3-8 words, describe the main topic, and read as plain words.
Do not use quotes, colons, punctuation or any formatting.
Reply with the title only.`

// ErrClientDisconnected 表示调用方在流结束前离开
var ErrClientDisconnected = errors.New("client disconnected")

// ChatOptions 对话补全参数
type ChatOptions struct {
	Model       string
	TitleModel  string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// ChatService 流式对话流水线：保存用户消息、转发模型增量输出、生成标题
type ChatService struct {
	repo          model.Repository
	conversations *ConversationService
	completer     llm.ChatCompleter
	heuristic     TitleHeuristic
	opts          ChatOptions
}

// NewChatService completer 为 nil 时所有对话请求都会返回 ErrCompletionUnavailable
func NewChatService(repo model.Repository, conversations *ConversationService, completer llm.ChatCompleter, opts ChatOptions) *ChatService {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultStreamTimeout
	}
	if opts.TitleModel == "" {
		opts.TitleModel = opts.Model
	}
	return &ChatService{
		repo:          repo,
		conversations: conversations,
		completer:     completer,
		heuristic:     DefaultTitleHeuristic(),
		opts:          opts,
	}
}

func (s *ChatService) Available() bool {
	return s != nil && s.completer != nil
}

// ChatTurn 是一次已经开始的对话轮次，Run 负责把模型输出推给调用方
type ChatTurn struct {
	svc          *ChatService
	ctx          context.Context
	cancel       context.CancelFunc
	stream       llm.Stream
	user         *entity.User
	conversation *entity.Conversation
	reply        *entity.Message
}

func (t *ChatTurn) Conversation() *entity.Conversation { return t.conversation }

func (t *ChatTurn) ReplyID() uint { return t.reply.ID }

// Begin 完成流开始前的全部检查和持久化，返回的错误都能对应到确定的 HTTP 状态码。
// 成功时调用方必须调用 Run。
func (s *ChatService) Begin(ctx context.Context, user *entity.User, conversationID uint, content string) (*ChatTurn, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	if user == nil || !user.CanChat {
		return nil, ErrChatForbidden
	}
	conversation, err := s.conversations.Get(ctx, user.ID, conversationID)
	if err != nil {
		return nil, err
	}
	if !s.Available() {
		return nil, ErrCompletionUnavailable
	}

	if _, err := s.conversations.AppendMessage(ctx, conversation, user.ID, entity.MessageRoleUser, content); err != nil {
		return nil, err
	}

	history, err := s.conversations.History(ctx, conversation.ID)
	if err != nil {
		return nil, err
	}

	reply, err := s.conversations.AppendMessage(ctx, conversation, user.ID, entity.MessageRoleAssistant, "")
	if err != nil {
		return nil, err
	}

	logger := logrus.WithFields(logrus.Fields{
		"conversation_id": conversation.ID,
		"user_id":         user.ID,
		"message_id":      reply.ID,
		"llm_driver":      s.completer.Name(),
		"request_id":      utils.RequestID(ctx),
	})

	streamCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	stream, err := s.completer.Stream(streamCtx, toPrompt(history), llm.CompletionOptions{
		Model:       s.opts.Model,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		cancel()
		logger.WithError(err).Error("failed to open completion stream")
		s.discardReply(context.WithoutCancel(ctx), reply.ID)
		return nil, fmt.Errorf("%w: %v", ErrStreamFailed, err)
	}

	return &ChatTurn{
		svc:          s,
		ctx:          ctx,
		cancel:       cancel,
		stream:       stream,
		user:         user,
		conversation: conversation,
		reply:        reply,
	}, nil
}

// Run 逐段读取模型输出：先累加并持久化，再交给 emit。
// 正常结束时发送 StreamDone 并尝试生成标题；上游失败或超时删除占位消息并返回 ErrStreamFailed；
// 调用方断开（请求 context 取消或 emit 出错）时保留已收到的内容并返回 ErrClientDisconnected。
func (t *ChatTurn) Run(emit func(fragment string) error) error {
	defer t.cancel()
	defer t.stream.Close()

	// 落库不受请求取消影响
	store := context.WithoutCancel(t.ctx)
	logger := logrus.WithFields(logrus.Fields{
		"conversation_id": t.conversation.ID,
		"message_id":      t.reply.ID,
		"request_id":      utils.RequestID(t.ctx),
	})

	var accumulated strings.Builder
	fragments := 0
	for {
		fragment, err := t.stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if t.ctx.Err() != nil {
				return t.abandon(store, accumulated.String())
			}
			logger.WithError(err).WithField("fragments", fragments).Error("completion stream failed")
			t.svc.discardReply(store, t.reply.ID)
			return fmt.Errorf("%w: %v", ErrStreamFailed, err)
		}
		if fragment == "" {
			continue
		}

		accumulated.WriteString(fragment)
		fragments++
		if err := t.svc.repo.UpdateMessageContent(store, t.reply.ID, accumulated.String()); err != nil {
			logger.WithError(err).Error("failed to persist streamed content")
			t.svc.discardReply(store, t.reply.ID)
			return fmt.Errorf("%w: %v", ErrStreamFailed, err)
		}
		if err := emit(fragment); err != nil {
			return t.abandon(store, accumulated.String())
		}
	}

	// 上游正常结束但没有任何内容（例如被内容过滤截断），不能留下空回复
	if fragments == 0 {
		logger.Warn("completion stream ended without content")
		t.svc.discardReply(store, t.reply.ID)
		return fmt.Errorf("%w: %w", ErrStreamFailed, llm.ErrEmptyCompletion)
	}

	t.reply.Content = accumulated.String()
	t.svc.touch(store, t.conversation)

	if err := emit(StreamDone); err != nil {
		logger.WithError(err).Debug("client left before end marker")
	}

	t.svc.autoTitle(store, t.conversation)
	return nil
}

// abandon 处理调用方中途离开：有内容则保留，没有内容则删除占位消息
func (t *ChatTurn) abandon(ctx context.Context, content string) error {
	if content == "" {
		t.svc.discardReply(ctx, t.reply.ID)
		return ErrClientDisconnected
	}
	if err := t.svc.repo.UpdateMessageContent(ctx, t.reply.ID, content); err != nil {
		logrus.WithError(err).WithField("message_id", t.reply.ID).Error("failed to flush partial reply")
	}
	t.reply.Content = content
	t.svc.touch(ctx, t.conversation)
	return ErrClientDisconnected
}

func (s *ChatService) touch(ctx context.Context, conversation *entity.Conversation) {
	now := s.conversations.now()
	if err := s.repo.TouchConversation(ctx, conversation.ID, now); err != nil {
		logrus.WithError(err).WithField("conversation_id", conversation.ID).Warn("failed to bump conversation")
		return
	}
	if now.After(conversation.UpdatedAt) {
		conversation.UpdatedAt = now
	}
}

func (s *ChatService) discardReply(ctx context.Context, id uint) {
	if err := s.repo.DeleteMessage(ctx, id); err != nil {
		logrus.WithError(err).WithField("message_id", id).Error("failed to delete reserved reply")
	}
}

// autoTitle 只为仍是默认标题的会话生成标题，失败时保持原状
func (s *ChatService) autoTitle(ctx context.Context, conversation *entity.Conversation) {
	current := conversation.TitleOrEmpty()
	if current != "" && current != entity.DefaultConversationTitle {
		return
	}
	logger := logrus.WithField("conversation_id", conversation.ID)

	messages, err := s.conversations.History(ctx, conversation.ID)
	if err != nil {
		logger.WithError(err).Warn("failed to load messages for title")
		return
	}
	if !s.heuristic.ShouldGenerate(messages) {
		return
	}
	title, err := s.generateTitle(ctx, messages)
	if err != nil {
		logger.WithError(err).Warn("automatic title generation failed")
		return
	}
	if err := s.conversations.setTitle(ctx, conversation, title); err != nil {
		logger.WithError(err).Warn("failed to store generated title")
	}
}

// SynthesizeTitle 为会话生成并保存标题。模型调用失败时保存默认的 "New Conversation"。
func (s *ChatService) SynthesizeTitle(ctx context.Context, ownerID, conversationID uint) (*entity.Conversation, error) {
	conversation, err := s.conversations.Get(ctx, ownerID, conversationID)
	if err != nil {
		return nil, err
	}
	messages, err := s.conversations.History(ctx, conversation.ID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, ErrEmptyConversation
	}
	if !s.Available() {
		return nil, ErrCompletionUnavailable
	}
	if !s.heuristic.ShouldGenerate(messages) {
		return nil, ErrNotSubstantial
	}

	title, err := s.generateTitle(ctx, messages)
	if err != nil {
		logrus.WithError(err).WithField("conversation_id", conversation.ID).Warn("title generation failed, using fallback")
		title = s.heuristic.Fallback
	}
	if err := s.conversations.setTitle(ctx, conversation, title); err != nil {
		return nil, err
	}
	return conversation, nil
}

func (s *ChatService) generateTitle(ctx context.Context, messages []entity.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	raw, err := s.completer.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: titleSystemPrompt},
		{Role: llm.RoleUser, Content: "Generate a title for this conversation:\n\n" + renderTranscript(messages, titlePromptLimit)},
	}, llm.CompletionOptions{
		Model:       s.opts.TitleModel,
		MaxTokens:   titleMaxTokens,
		Temperature: titleTemperature,
	})
	if err != nil {
		return "", err
	}
	return s.heuristic.Normalize(raw), nil
}

// renderTranscript 把会话渲染成 "User: ..." / "Assistant: ..." 行，超过 limit 个字符时截断并追加 "..."
func renderTranscript(messages []entity.Message, limit int) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Role {
		case entity.MessageRoleUser:
			b.WriteString("User: ")
		case entity.MessageRoleAssistant:
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	text := []rune(b.String())
	if len(text) > limit {
		return string(text[:limit]) + "..."
	}
	return string(text)
}

func toPrompt(messages []entity.Message) []llm.Message {
	prompt := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		prompt = append(prompt, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return prompt
}
