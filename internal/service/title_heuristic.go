package service

import (
	"chathub/internal/entity"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultGeneratedTitle = "New Conversation"

// TitleHeuristic decides whether a conversation carries enough content to be titled
// and cleans up the raw title returned by the model.
type TitleHeuristic struct {
	// Greetings are lowercase prefixes that mark a short message as small talk.
	Greetings []string
	// GreetingMaxLen is the exclusive length bound under which a greeting prefix disqualifies a message.
	GreetingMaxLen int
	// MinSubstantialLen is the trimmed length a user message needs to count as content.
	MinSubstantialLen int
	// QuoteGlyphs are stripped from both ends of a generated title.
	QuoteGlyphs string
	// Fallback replaces a title that normalizes to nothing.
	Fallback string
}

// DefaultTitleHeuristic returns the heuristic used by the chat pipeline.
func DefaultTitleHeuristic() TitleHeuristic {
	return TitleHeuristic{
		Greetings: []string{
			"hello", "hi", "hey", "good morning", "good afternoon",
			"good evening", "howdy", "greetings", "sup", "what's up",
			"yo", "hi there", "hello there", "hey there",
		},
		GreetingMaxLen:    30,
		MinSubstantialLen: 10,
		QuoteGlyphs:       "\"'“”‘’«»`",
		Fallback:          DefaultGeneratedTitle,
	}
}

// ShouldGenerate reports whether messages contain a user message worth summarising.
func (h TitleHeuristic) ShouldGenerate(messages []entity.Message) bool {
	if len(messages) < 2 {
		return false
	}
	for _, m := range messages {
		if m.Role != entity.MessageRoleUser {
			continue
		}
		content := strings.ToLower(strings.TrimSpace(m.Content))
		n := utf8.RuneCountInString(content)
		if h.isGreeting(content, n) {
			continue
		}
		if n >= h.MinSubstantialLen {
			return true
		}
	}
	return false
}

func (h TitleHeuristic) isGreeting(content string, length int) bool {
	if length >= h.GreetingMaxLen {
		return false
	}
	for _, g := range h.Greetings {
		if strings.HasPrefix(content, g) {
			return true
		}
	}
	return false
}

// Normalize turns a raw model answer into a display title.
func (h TitleHeuristic) Normalize(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.TrimSpace(strings.Trim(title, h.QuoteGlyphs))
	if idx := strings.LastIndex(title, ":"); idx >= 0 {
		title = strings.TrimSpace(title[idx+1:])
		title = strings.TrimSpace(strings.Trim(title, h.QuoteGlyphs))
	}
	title = cases.Title(language.Und).String(title)
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return h.Fallback
	}
	if utf8.RuneCountInString(title) > entity.MaxConversationTitle {
		title = strings.TrimSpace(string([]rune(title)[:entity.MaxConversationTitle]))
	}
	return title
}
