package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBuiltin(t *testing.T) {
	for _, name := range []string{"default", "validate_bq_query"} {
		t.Run(name, func(t *testing.T) {
			p, err := LoadBuiltin(name)
			if err != nil {
				t.Fatalf("LoadBuiltin(%q): %v", name, err)
			}
			if p.Prompt == "" {
				t.Error("builtin policy has an empty prompt")
			}
		})
	}
}

func TestLoadBuiltin_Unknown(t *testing.T) {
	_, err := LoadBuiltin("no_such_policy")
	if err == nil {
		t.Fatal("expected error for unknown builtin")
	}
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("error is %T, want *ConfigError", err)
	}
}

func TestBuiltins(t *testing.T) {
	names := Builtins()
	if len(names) < 2 {
		t.Fatalf("expected at least 2 builtin policies, got %v", names)
	}
	found := false
	for _, n := range names {
		if n == "validate_bq_query" {
			found = true
		}
	}
	if !found {
		t.Errorf("validate_bq_query missing from %v", names)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	doc := `
prompt: "Deny everything that writes."
model: claude-sonnet-4-20250514
provider: anthropic
api_key: sk-test
allowed_tools:
  - Bash
max_tokens: 2048
timeout_seconds: 45
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Prompt != "Deny everything that writes." {
		t.Errorf("prompt = %q", p.Prompt)
	}
	if p.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q", p.Model)
	}
	if p.APIKey != "sk-test" {
		t.Errorf("api_key = %q", p.APIKey)
	}
	if len(p.AllowedTools) != 1 || p.AllowedTools[0] != "Bash" {
		t.Errorf("allowed_tools = %v", p.AllowedTools)
	}
	if p.TimeoutSeconds != 45 {
		t.Errorf("timeout_seconds = %d", p.TimeoutSeconds)
	}
}

func TestLoad_Errors(t *testing.T) {
	tmp := t.TempDir()
	write := func(name, doc string) string {
		t.Helper()
		path := filepath.Join(tmp, name)
		if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(tmp, "nope.yaml")},
		{"empty file", write("empty.yaml", "   \n")},
		{"missing prompt", write("noprompt.yaml", "model: gpt-4o\n")},
		{"blank prompt", write("blank.yaml", "prompt: \"  \"\n")},
		{"unknown field", write("unknown.yaml", "prompt: p\nmax_retries: 5\n")},
		{"malformed yaml", write("bad.yaml", "prompt: [unclosed\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("error is %T, want *ConfigError", err)
			}
		})
	}
}
