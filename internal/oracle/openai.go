package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI implements Oracle for all OpenAI-compatible APIs, including OpenAI,
// DeepSeek, Kimi, Qwen, etc.
type OpenAI struct {
	client openai.Client
	model  string
	name   string
}

func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	name := "openai"
	switch {
	case strings.Contains(baseURL, "deepseek"):
		name = "deepseek"
	case strings.Contains(baseURL, "moonshot"):
		name = "kimi"
	case strings.Contains(baseURL, "dashscope"):
		name = "qwen"
	case strings.Contains(baseURL, "groq"):
		name = "groq"
	}

	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		name:   name,
	}
}

func (o *OpenAI) Name() string { return o.name }

func (o *OpenAI) Complete(ctx context.Context, req *Request) (string, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+1)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, t := range req.Turns {
		switch t.Role {
		case RoleUser:
			msgs = append(msgs, openai.UserMessage(t.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", o.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoResponse
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", ErrNoResponse
	}
	return text, nil
}
