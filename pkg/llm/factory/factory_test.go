package factory

import (
	"testing"

	"arcane-chat-be/pkg/llm/chatapi"
	"arcane-chat-be/pkg/llm/openai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	p, err := NewLLMProvider(Config{})
	require.NoError(t, err)
	api, ok := p.(*chatapi.Provider)
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:8000", api.BaseURL)

	p, err = NewLLMProvider(Config{Provider: ProviderOpenAI, APIKey: "k", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &openai.Provider{}, p)

	_, err = NewLLMProvider(Config{Provider: ProviderOpenAI})
	assert.Error(t, err)

	_, err = NewLLMProvider(Config{Provider: "ollama"})
	assert.Error(t, err)
}
