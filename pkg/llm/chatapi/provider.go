package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"arcane-chat-be/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("arcane-chat-be/llm/chatapi")

// Provider talks to a completion endpoint that accepts
// {"messages": [...]} on POST {base}/chat and answers {"response": "..."}
// or {"error": "..."}.
type Provider struct {
	BaseURL string
	Client  *http.Client
}

// Ensure Provider implements LLMProvider
var _ llm.LLMProvider = &Provider{}

func NewProvider(baseURL string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Provider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatRequest struct {
	Messages []llm.Message `json:"messages"`
}

type chatResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	ctx, span := tracer.Start(ctx, "chatapi.Chat")
	defer span.End()
	span.SetAttributes(attribute.Int("llm.messages", len(history)))

	messages := make([]llm.Message, len(history))
	for i, msg := range history {
		messages[i] = llm.Message{Role: msg.Role, Content: msg.Content}
	}

	payloadBytes, err := json.Marshal(chatRequest{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/chat", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return "", &llm.CompletionError{Err: err}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	// A body that cannot be read or decoded counts as an empty object.
	var body chatResponse
	if raw, err := io.ReadAll(resp.Body); err == nil {
		_ = json.Unmarshal(raw, &body)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cerr := &llm.CompletionError{Status: resp.StatusCode, Message: body.Error}
		span.RecordError(cerr)
		span.SetStatus(codes.Error, cerr.Error())
		return "", cerr
	}

	return body.Response, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}
