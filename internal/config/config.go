// Package config resolves judge policies. A policy is either a named builtin
// (embedded in the binary) or an external YAML file passed on the command
// line. Resolution failures are configuration errors, distinct from decision
// errors: they surface before the judge pipeline starts and are synthesized
// into a deny response without ever calling the judge model.
package config

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Policy configures one judge invocation. Prompt is the only required field.
type Policy struct {
	// Prompt is the policy text appended to the judge system prompt.
	Prompt string `yaml:"prompt"`

	// Model overrides the provider's default judge model.
	Model string `yaml:"model"`

	// Provider selects the oracle backend ("anthropic" default, or any
	// OpenAI-compatible provider).
	Provider string `yaml:"provider"`

	// BaseURL overrides the API endpoint for OpenAI-compatible providers.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the provider. Usually left empty in favor
	// of the environment (ANTHROPIC_API_KEY / OPENAI_API_KEY / LLM_API_KEY).
	APIKey string `yaml:"api_key"`

	// AllowedTools lists the tool names this policy is written to judge.
	// Included in the system prompt as context for the judge model.
	AllowedTools []string `yaml:"allowed_tools"`

	// MaxTokens caps the judge model's response size. 0 = provider default.
	MaxTokens int `yaml:"max_tokens"`

	// TimeoutSeconds bounds total wall time for one decision, retries
	// included. 0 = the CLI default.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// ConfigError marks a policy resolution failure.
type ConfigError struct {
	Source string // builtin name or file path
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("policy %q: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// LoadBuiltin resolves a named builtin policy embedded in the binary.
func LoadBuiltin(name string) (*Policy, error) {
	data, err := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return nil, &ConfigError{
			Source: name,
			Err:    fmt.Errorf("no builtin policy with that name (available: %s)", strings.Join(Builtins(), ", ")),
		}
	}
	p, err := parse(data)
	if err != nil {
		return nil, &ConfigError{Source: name, Err: err}
	}
	return p, nil
}

// Load resolves an external YAML policy file.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Source: path, Err: err}
	}
	p, err := parse(data)
	if err != nil {
		return nil, &ConfigError{Source: path, Err: err}
	}
	return p, nil
}

// Builtins returns the names of all embedded policies, sorted.
func Builtins() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

func parse(data []byte) (*Policy, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("policy file is empty")
	}

	var p Policy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("invalid policy YAML: %w", err)
	}

	if strings.TrimSpace(p.Prompt) == "" {
		return nil, fmt.Errorf("policy is missing the required non-empty 'prompt' field")
	}
	return &p, nil
}
