package llm

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	volcModel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"
)

//文档:https://www.volcengine.com/docs/82379/1494384

// VolcengineCompleter drives Ark chat completions through the official SDK.
// Token and temperature limits are configured on the Ark endpoint itself.
type VolcengineCompleter struct {
	client   *arkruntime.Client
	defaults CompletionOptions
}

func NewVolcengineCompleter(apiKey, baseURL string, defaults CompletionOptions) *VolcengineCompleter {
	var opts []arkruntime.ConfigOption
	if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
		opts = append(opts, arkruntime.WithBaseUrl(trimmed))
	}
	return &VolcengineCompleter{
		client:   arkruntime.NewClientWithApiKey(apiKey, opts...),
		defaults: defaults,
	}
}

func (v *VolcengineCompleter) Name() string { return DriverVolcengine }

func (v *VolcengineCompleter) buildRequest(messages []Message, opts CompletionOptions) volcModel.CreateChatCompletionRequest {
	opts = mergeOptions(v.defaults, opts)
	out := make([]*volcModel.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, &volcModel.ChatCompletionMessage{
			Role: volcengineRole(m.Role),
			Content: &volcModel.ChatCompletionMessageContent{
				StringValue: volcengine.String(m.Content),
			},
		})
	}
	return volcModel.CreateChatCompletionRequest{
		Model:    opts.Model,
		Messages: out,
	}
}

func volcengineRole(role string) string {
	switch role {
	case RoleSystem:
		return volcModel.ChatMessageRoleSystem
	case RoleAssistant:
		return volcModel.ChatMessageRoleAssistant
	default:
		return volcModel.ChatMessageRoleUser
	}
}

// Complete performs a non-streaming request.
func (v *VolcengineCompleter) Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	req := v.buildRequest(messages, opts)
	log := providerLogger(ctx, DriverVolcengine, req.Model)

	resp, err := v.client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.WithError(err).Error("chat completion failed")
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", ErrEmptyCompletion
	}
	content := resp.Choices[0].Message.Content
	if content == nil || content.StringValue == nil || strings.TrimSpace(*content.StringValue) == "" {
		return "", ErrEmptyCompletion
	}
	return *content.StringValue, nil
}

// Stream opens an incremental answer; empty deltas are skipped.
func (v *VolcengineCompleter) Stream(ctx context.Context, messages []Message, opts CompletionOptions) (Stream, error) {
	req := v.buildRequest(messages, opts)
	log := providerLogger(ctx, DriverVolcengine, req.Model)

	stream, err := v.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		log.WithError(err).Error("open chat completion stream failed")
		return nil, err
	}

	recv := func() (string, error) {
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			if err != nil {
				log.WithError(err).Warn("chat completion stream interrupted")
				return "", err
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0] == nil {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				return delta, nil
			}
		}
	}
	closeStream := func() error {
		stream.Close()
		return nil
	}
	return streamFuncs{recv: recv, close: closeStream}, nil
}
