// Package oracle defines the conversational contract with the judge model and
// the provider adapters that implement it. Each call carries the full turn
// history to date; the providers themselves hold no conversation state.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrNoResponse is returned when the provider call succeeded at the transport
// level but produced no text. The judge treats it like any other
// communication failure: fatal, never retried.
var ErrNoResponse = errors.New("judge model returned no content")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in the judge conversation.
type Turn struct {
	Role    Role
	Content string
}

// Request is one complete judge-model call: the system preamble plus the full
// conversation so far.
type Request struct {
	System    string
	Turns     []Turn
	Model     string
	MaxTokens int
}

// Oracle is the judge-model contract. Complete blocks for at most the
// lifetime of ctx and returns the model's full text response.
type Oracle interface {
	Complete(ctx context.Context, req *Request) (string, error)
	Name() string
}

// Options selects and configures a provider. Empty fields fall back to
// environment variables and provider defaults.
type Options struct {
	Provider string // "anthropic" (default) or any OpenAI-compatible provider
	Model    string
	BaseURL  string
	APIKey   string
}

// New builds an Oracle from options plus environment fallbacks
// (ANTHROPIC_API_KEY / OPENAI_API_KEY / LLM_API_KEY, LLM_BASE_URL).
func New(opts Options) (Oracle, error) {
	name := opts.Provider
	if name == "" {
		name = "anthropic"
	}

	apiKey := opts.APIKey
	if apiKey == "" {
		switch name {
		case "anthropic":
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if apiKey == "" {
		apiKey = os.Getenv("LLM_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf(
			"API key not configured for provider %q; set it in the policy file or via ANTHROPIC_API_KEY / OPENAI_API_KEY / LLM_API_KEY",
			name,
		)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("LLM_BASE_URL")
	}

	switch name {
	case "anthropic":
		return NewAnthropic(apiKey, opts.Model), nil
	default:
		// All other providers use an OpenAI-compatible API.
		if name != "openai" && baseURL == "" {
			return nil, fmt.Errorf("unknown provider %q; set base_url in the policy file", name)
		}
		return NewOpenAI(apiKey, baseURL, opts.Model), nil
	}
}
