package factory

import (
	"fmt"
	"time"

	"arcane-chat-be/pkg/llm"
	"arcane-chat-be/pkg/llm/chatapi"
	"arcane-chat-be/pkg/llm/openai"
)

const (
	ProviderChatAPI = "chatapi"
	ProviderOpenAI  = "openai"
)

type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "", ProviderChatAPI:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://127.0.0.1:8000" // Default
		}
		return chatapi.NewProvider(baseURL, cfg.Timeout), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an api key")
		}
		return openai.NewProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
