package llm

import (
	"chathub/internal/config"
	"fmt"
	"strings"
)

const (
	DriverOpenAI     = "openai"
	DriverVolcengine = "volcengine"
)

// NewChatCompleter instantiates the completion driver named by LLM_DRIVER.
// It returns nil without error when no API key is configured.
func NewChatCompleter(cfg config.Config) (ChatCompleter, error) {
	apiKey := strings.TrimSpace(cfg.LLMAPIKey)
	if apiKey == "" {
		return nil, nil
	}

	defaults := CompletionOptions{
		Model:       strings.TrimSpace(cfg.LLMModel),
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.LLMDriver))
	switch driver {
	case DriverOpenAI, "":
		return NewOpenAICompleter(apiKey, cfg.LLMBaseURL, defaults), nil
	case DriverVolcengine:
		return NewVolcengineCompleter(apiKey, cfg.LLMBaseURL, defaults), nil
	default:
		return nil, fmt.Errorf("unsupported llm driver: %s", cfg.LLMDriver)
	}
}
