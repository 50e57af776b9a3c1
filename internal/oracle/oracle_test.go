package oracle

import (
	"testing"
)

func TestNew_ProviderSelection(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		env      map[string]string
		wantName string
		wantErr  bool
	}{
		{
			name:     "default provider is anthropic",
			opts:     Options{APIKey: "sk-test"},
			wantName: "anthropic",
		},
		{
			name:     "explicit openai",
			opts:     Options{Provider: "openai", APIKey: "sk-test"},
			wantName: "openai",
		},
		{
			name:     "openai-compatible via base_url",
			opts:     Options{Provider: "deepseek", APIKey: "sk-test", BaseURL: "https://api.deepseek.com/v1"},
			wantName: "deepseek",
		},
		{
			name:    "unknown provider without base_url",
			opts:    Options{Provider: "mystery", APIKey: "sk-test"},
			wantErr: true,
		},
		{
			name:    "missing key",
			opts:    Options{Provider: "anthropic"},
			wantErr: true,
		},
		{
			name:     "key from environment",
			opts:     Options{Provider: "anthropic"},
			env:      map[string]string{"ANTHROPIC_API_KEY": "sk-env"},
			wantName: "anthropic",
		},
		{
			name:     "generic key fallback",
			opts:     Options{Provider: "openai"},
			env:      map[string]string{"LLM_API_KEY": "sk-generic"},
			wantName: "openai",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Isolate from the host environment.
			for _, k := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "LLM_API_KEY", "LLM_BASE_URL"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			o, err := New(tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			if o.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", o.Name(), tt.wantName)
			}
		})
	}
}

func TestBuildAnthropicMessages_RoleMapping(t *testing.T) {
	turns := []Turn{
		{Role: RoleUser, Content: "judge this"},
		{Role: RoleAssistant, Content: "not json, sorry"},
		{Role: RoleUser, Content: "try again with raw JSON"},
	}
	msgs := buildAnthropicMessages(turns)
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
}
