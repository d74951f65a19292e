package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"arcane-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1717228800,
	"model": "test-model",
	"choices": [{
		"index": 0,
		"finish_reason": "stop",
		"message": {"role": "assistant", "content": "hello there"}
	}]
}`

func TestProvider_Chat(t *testing.T) {
	var received struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer server.Close()

	p := NewProvider("key", server.URL+"/", "test-model", time.Second)
	reply, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
		{Role: llm.RoleUser, Content: "again"},
	})

	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)
	assert.Equal(t, "test-model", received.Model)
	require.Len(t, received.Messages, 3)
	assert.Equal(t, "assistant", received.Messages[1].Role)
	assert.Equal(t, "again", received.Messages[2].Content)
}

func TestProvider_Chat_TooManyRequestsIsNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`))
	}))
	defer server.Close()

	_, err := NewProvider("key", server.URL+"/", "test-model", time.Second).Chat(context.Background(), nil)

	var cerr *llm.CompletionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, http.StatusTooManyRequests, cerr.Status)
	assert.True(t, llm.IsRateLimited(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestProvider_Chat_ServerErrorIsNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream broke"}}`))
	}))
	defer server.Close()

	_, err := NewProvider("key", server.URL+"/", "test-model", time.Second).Chat(context.Background(), nil)

	var cerr *llm.CompletionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, http.StatusInternalServerError, cerr.Status)
	assert.False(t, llm.IsRateLimited(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestProvider_Chat_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL + "/"
	server.Close()

	_, err := NewProvider("key", url, "test-model", time.Second).Chat(context.Background(), nil)

	var cerr *llm.CompletionError
	require.ErrorAs(t, err, &cerr)
	assert.Zero(t, cerr.Status)
	assert.False(t, llm.IsRateLimited(err))
}

func TestProvider_Chat_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	start := time.Now()
	_, err := NewProvider("key", server.URL+"/", "test-model", 100*time.Millisecond).Chat(context.Background(), nil)

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
