package openai

import (
	"context"
	"errors"
	"time"

	"arcane-chat-be/pkg/llm"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("arcane-chat-be/llm/openai")

// Provider calls any OpenAI-compatible chat completions API.
type Provider struct {
	client openai.Client
	model  string
}

var _ llm.LLMProvider = &Provider{}

// NewProvider makes exactly one attempt per call. A failed completion goes
// straight back to the caller.
func NewProvider(apiKey, baseURL, model string, timeout time.Duration) *Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return &Provider{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func toParams(history []llm.Message) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		case "system":
			messages = append(messages, openai.SystemMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	return messages
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := &llm.Options{Model: p.model}
	for _, opt := range opts {
		opt(options)
	}

	ctx, span := tracer.Start(ctx, "openai.Chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", options.Model),
		attribute.Int("llm.messages", len(history)),
	)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(options.Model),
		Messages: toParams(history),
	}
	if options.Temperature > 0 {
		params.Temperature = openai.Float(options.Temperature)
	}
	if options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(options.MaxTokens))
	}

	response, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")

		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &llm.CompletionError{Status: apiErr.StatusCode, Message: apiErr.Message, Err: err}
		}
		return "", &llm.CompletionError{Err: err}
	}

	if len(response.Choices) == 0 {
		return "", nil
	}
	return response.Choices[0].Message.Content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}
