package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"arcane-chat-be/pkg/llm"
	"arcane-chat-be/pkg/llm/chatapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatAPI_LiveCompletion(t *testing.T) {
	baseURL := os.Getenv("LLM_BASE_URL")
	if baseURL == "" {
		t.Skip("Skipping integration test: LLM_BASE_URL not set")
	}

	provider := chatapi.NewProvider(baseURL, 60*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	reply, err := provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: "Reply with the single word: pong"},
	})
	if llm.IsRateLimited(err) {
		t.Skip("Completion endpoint is throttling requests")
	}
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
	t.Logf("Reply: %s", reply)
}
