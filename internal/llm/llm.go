package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyCompletion is returned when the upstream answered without any text.
var ErrEmptyCompletion = errors.New("completion returned no content")

// Message is one turn of the prompt sent upstream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionOptions tunes a single completion call. Zero values fall back to the driver defaults.
type CompletionOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Stream yields response fragments in order. Recv returns io.EOF after the last fragment.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// ChatCompleter is the external completion capability used by the chat pipeline.
type ChatCompleter interface {
	// Complete returns the whole answer in one piece.
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)

	// Stream opens an incremental answer.
	Stream(ctx context.Context, messages []Message, opts CompletionOptions) (Stream, error)

	// Name identifies the driver in logs.
	Name() string
}

// streamFuncs adapts a pair of closures to Stream.
type streamFuncs struct {
	recv  func() (string, error)
	close func() error
}

func (s streamFuncs) Recv() (string, error) { return s.recv() }

func (s streamFuncs) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func mergeOptions(defaults, opts CompletionOptions) CompletionOptions {
	if opts.Model == "" {
		opts.Model = defaults.Model
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaults.MaxTokens
	}
	if opts.Temperature <= 0 {
		opts.Temperature = defaults.Temperature
	}
	return opts
}
