package ai

import (
	"context"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = `You are a technology trend analyst for a marketing technology content hub.
Answer precisely and never invent URLs you have not seen.`

const jsonSystemPrompt = systemPrompt + `
Respond ONLY with a single valid JSON object. No markdown, no commentary.`

// OpenAIClient implements Completer using the OpenAI Chat Completions API.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// Config is shared by the provider constructors.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional
	Timeout time.Duration
}

func NewOpenAI(cfg Config) *OpenAIClient {
	var c *openai.Client
	if cfg.BaseURL != "" {
		cc := openai.DefaultConfig(cfg.APIKey)
		cc.BaseURL = cfg.BaseURL
		c = openai.NewClientWithConfig(cc)
	} else {
		c = openai.NewClient(cfg.APIKey)
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{client: c, model: model, timeout: timeout}
}

func (o *OpenAIClient) Name() string { return "openai" }

func (o *OpenAIClient) Complete(ctx context.Context, prompt string, wantJSON bool) (string, error) {
	// Default timeout guard, if caller didn't set one
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	sys := systemPrompt
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.4,
	}
	if wantJSON {
		sys = jsonSystemPrompt
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	req.Messages = []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: sys},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("openai: completion error", "model", o.model, "err", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}
