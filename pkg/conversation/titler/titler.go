// Package titler derives a short thread name from the opening of a conversation.
package titler

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"arcane-chat-be/internal/entity"
	"arcane-chat-be/pkg/llm"
)

const (
	// MinUserContent is the rune count of user-authored text a thread needs
	// before it is titled.
	MinUserContent = 30
	MinMessages    = 2
	// PromptMessages is how many opening messages are summarized.
	PromptMessages = 4
	FallbackTitle  = "Chat"

	promptTemplate = "Based on this conversation, generate a short, descriptive title (max 4-5 words) that captures the main topic or question being discussed:\n\n%s\n\nRespond with only the title, no explanation."
)

type Titler struct {
	provider llm.LLMProvider
}

func New(provider llm.LLMProvider) *Titler {
	return &Titler{provider: provider}
}

// ShouldTitle reports whether the thread is due for its one automatic title.
func ShouldTitle(thread *entity.ChatThread, messages []*entity.ChatMessage) bool {
	if thread == nil || thread.AutoRenamed || len(messages) < MinMessages {
		return false
	}
	total := 0
	for _, m := range messages {
		if m.Role == entity.MessageRoleUser {
			total += utf8.RuneCountInString(m.Content)
		}
	}
	return total >= MinUserContent
}

// Prompt renders the summarization request for the opening messages.
func Prompt(messages []*entity.ChatMessage) string {
	if len(messages) > PromptMessages {
		messages = messages[:PromptMessages]
	}
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = fmt.Sprintf("%s: %s", m.Role, m.Content)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(lines, "\n"))
}

// Title asks the provider for a title. It never fails: an error or a blank
// answer yields FallbackTitle, and the error is returned alongside for logging.
func (t *Titler) Title(ctx context.Context, messages []*entity.ChatMessage) (string, error) {
	reply, err := t.provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: Prompt(messages)},
	})
	if err != nil {
		return FallbackTitle, err
	}
	title := strings.TrimSpace(reply)
	if title == "" {
		return FallbackTitle, nil
	}
	return title, nil
}
