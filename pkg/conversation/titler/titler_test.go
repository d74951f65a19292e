package titler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"arcane-chat-be/internal/entity"
	"arcane-chat-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	reply string
	err   error
	got   []llm.Message
}

func (s *stubProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	s.got = history
	return s.reply, s.err
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func msg(role entity.MessageRole, content string) *entity.ChatMessage {
	return entity.NewChatMessage(uuid.Nil, role, content, time.Now())
}

func TestShouldTitle(t *testing.T) {
	long := strings.Repeat("a", 30)
	thread := &entity.ChatThread{Name: entity.DefaultThreadName}

	assert.True(t, ShouldTitle(thread, []*entity.ChatMessage{
		msg(entity.MessageRoleUser, long),
		msg(entity.MessageRoleAssistant, "ok"),
	}))

	// user text accumulates across messages
	assert.True(t, ShouldTitle(thread, []*entity.ChatMessage{
		msg(entity.MessageRoleUser, strings.Repeat("a", 15)),
		msg(entity.MessageRoleAssistant, "ok"),
		msg(entity.MessageRoleUser, strings.Repeat("b", 15)),
	}))

	assert.False(t, ShouldTitle(thread, []*entity.ChatMessage{
		msg(entity.MessageRoleUser, "short"),
		msg(entity.MessageRoleAssistant, strings.Repeat("x", 100)),
	}), "assistant text does not count")

	assert.False(t, ShouldTitle(thread, []*entity.ChatMessage{
		msg(entity.MessageRoleUser, long),
	}), "needs two messages")

	renamed := &entity.ChatThread{AutoRenamed: true}
	assert.False(t, ShouldTitle(renamed, []*entity.ChatMessage{
		msg(entity.MessageRoleUser, long),
		msg(entity.MessageRoleAssistant, "ok"),
	}))
}

func TestShouldTitle_CountsRunes(t *testing.T) {
	thread := &entity.ChatThread{}
	assert.False(t, ShouldTitle(thread, []*entity.ChatMessage{
		msg(entity.MessageRoleUser, strings.Repeat("é", 29)),
		msg(entity.MessageRoleAssistant, "ok"),
	}))
}

func TestPrompt_UsesFirstFourMessages(t *testing.T) {
	messages := []*entity.ChatMessage{
		msg(entity.MessageRoleUser, "one"),
		msg(entity.MessageRoleAssistant, "two"),
		msg(entity.MessageRoleUser, "three"),
		msg(entity.MessageRoleAssistant, "four"),
		msg(entity.MessageRoleUser, "five"),
	}

	prompt := Prompt(messages)

	assert.Contains(t, prompt, "user: one\nassistant: two\nuser: three\nassistant: four")
	assert.NotContains(t, prompt, "five")
	assert.True(t, strings.HasPrefix(prompt, "Based on this conversation"))
	assert.True(t, strings.HasSuffix(prompt, "Respond with only the title, no explanation."))
}

func TestTitle(t *testing.T) {
	messages := []*entity.ChatMessage{msg(entity.MessageRoleUser, "hello")}

	stub := &stubProvider{reply: "  Greeting Exchange \n"}
	title, err := New(stub).Title(context.Background(), messages)
	require.NoError(t, err)
	assert.Equal(t, "Greeting Exchange", title)
	require.Len(t, stub.got, 1)
	assert.Equal(t, llm.RoleUser, stub.got[0].Role)

	title, err = New(&stubProvider{reply: "   "}).Title(context.Background(), messages)
	require.NoError(t, err)
	assert.Equal(t, FallbackTitle, title)

	title, err = New(&stubProvider{err: errors.New("down")}).Title(context.Background(), messages)
	assert.Error(t, err)
	assert.Equal(t, FallbackTitle, title)
}
