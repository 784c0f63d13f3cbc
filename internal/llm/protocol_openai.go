package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type oaChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

type oaError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

type oaStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *oaError `json:"error,omitempty"`
}

type oaChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *oaError `json:"error,omitempty"`
}

// OpenAICompleter talks to any OpenAI-compatible /chat/completions endpoint.
type OpenAICompleter struct {
	apiKey   string
	endpoint string
	defaults CompletionOptions
	client   *http.Client
}

func NewOpenAICompleter(apiKey, baseURL string, defaults CompletionOptions) *OpenAICompleter {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	endpoint := baseURL
	if !strings.HasSuffix(endpoint, "/chat/completions") {
		endpoint += "/chat/completions"
	}
	return &OpenAICompleter{
		apiKey:   apiKey,
		endpoint: endpoint,
		defaults: defaults,
		client:   &http.Client{Timeout: 0}, // SSE 不要超短超时，由调用方的 ctx 控制
	}
}

func (o *OpenAICompleter) Name() string { return DriverOpenAI }

func (o *OpenAICompleter) do(ctx context.Context, messages []Message, opts CompletionOptions, stream bool) (*http.Response, error) {
	if strings.TrimSpace(o.apiKey) == "" {
		return nil, errors.New("openai api key missing")
	}
	opts = mergeOptions(o.defaults, opts)

	body, err := json.Marshal(oaChatRequest{
		Model:       opts.Model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	log := providerLogger(ctx, DriverOpenAI, opts.Model)
	log.WithFields(logrus.Fields{
		"message_count": len(messages),
		"stream":        stream,
	}).Debug("chat completion request")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(io.LimitReader(resp.Body, 64*1024))
		log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   logSnippet(buf.String()),
		}).Error("chat completion failed")
		return nil, fmt.Errorf("openai http %d: %s", resp.StatusCode, logSnippet(buf.String()))
	}
	return resp, nil
}

// Complete performs a non-streaming request.
func (o *OpenAICompleter) Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	resp, err := o.do(ctx, messages, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out oaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("openai error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

// Stream opens an SSE response; each data line carries one delta.
func (o *OpenAICompleter) Stream(ctx context.Context, messages []Message, opts CompletionOptions) (Stream, error) {
	resp, err := o.do(ctx, messages, opts, true)
	if err != nil {
		return nil, err
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	done, finished := false, false
	recv := func() (string, error) {
		for !done && sc.Scan() {
			line := sc.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				done = true
				break
			}

			var chunk oaStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				providerLogger(ctx, DriverOpenAI, "").WithField("data", logSnippet(data)).Debug("skip undecodable stream chunk")
				continue
			}
			if chunk.Error != nil {
				return "", fmt.Errorf("openai stream error: %s", chunk.Error.Message)
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].FinishReason != nil && *chunk.Choices[0].FinishReason != "" {
				finished = true
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			return chunk.Choices[0].Delta.Content, nil
		}
		if done {
			return "", io.EOF
		}
		if err := sc.Err(); err != nil {
			return "", err
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if finished {
			return "", io.EOF
		}
		return "", io.ErrUnexpectedEOF
	}

	return streamFuncs{recv: recv, close: resp.Body.Close}, nil
}
