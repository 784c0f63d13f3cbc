package llm

import (
	"chathub/internal/utils"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// 上游响应写进日志时最多保留的字符数
const snippetRunes = 120

func providerLogger(ctx context.Context, driver, model string) *logrus.Entry {
	entry := logrus.WithField("llm_driver", driver)
	if model = strings.TrimSpace(model); model != "" {
		entry = entry.WithField("model", model)
	}
	if requestID := utils.RequestID(ctx); requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	return entry
}

// logSnippet 把上游响应压成一行并截断
func logSnippet(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	if utf8.RuneCountInString(value) <= snippetRunes {
		return value
	}
	count := 0
	for i := range value {
		if count == snippetRunes {
			return value[:i] + "..."
		}
		count++
	}
	return value
}
