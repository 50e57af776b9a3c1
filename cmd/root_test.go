package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hookjudge-ai/hookjudge/internal/hook"
)

func clearJudgeEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "LLM_API_KEY", "LLM_BASE_URL"} {
		t.Setenv(k, "")
	}
}

func decodeEnvelope(t *testing.T, out *bytes.Buffer) hook.Envelope {
	t.Helper()
	var env hook.Envelope
	if err := json.Unmarshal(out.Bytes(), &env); err != nil {
		t.Fatalf("stdout is not a valid envelope: %v\noutput: %s", err, out.String())
	}
	return env
}

// Whatever goes wrong, the process answers with a deny envelope and a nil
// error (exit 0).
func TestRunJudge_FailurePathsEmitDeny(t *testing.T) {
	const validInput = `{
		"session_id": "s", "hook_event_name": "PreToolUse", "tool_name": "Bash",
		"tool_parameters": {"command": "ls"}, "message_history": []
	}`

	tests := []struct {
		name     string
		stdin    string
		mentions string
	}{
		{"stdin not JSON", "this is not json", "not valid JSON"},
		{"missing tool_name", `{
			"session_id": "s", "hook_event_name": "PreToolUse",
			"tool_parameters": {}, "message_history": []
		}`, "tool_name"},
		{"unknown extra field", `{
			"session_id": "s", "hook_event_name": "PreToolUse", "tool_name": "Bash",
			"tool_parameters": {}, "message_history": [], "surprise": 1
		}`, "failed validation"},
		{"no provider credentials", validInput, "configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearJudgeEnv(t)
			var out bytes.Buffer

			if err := runJudge(strings.NewReader(tt.stdin), &out); err != nil {
				t.Fatalf("runJudge returned error: %v", err)
			}

			env := decodeEnvelope(t, &out)
			if env.HookSpecificOutput.PermissionDecision != hook.PermissionDeny {
				t.Errorf("decision = %q, want deny", env.HookSpecificOutput.PermissionDecision)
			}
			if env.HookSpecificOutput.HookEventName != hook.EventName {
				t.Errorf("hookEventName = %q", env.HookSpecificOutput.HookEventName)
			}
			if !strings.Contains(env.HookSpecificOutput.PermissionDecisionReason, tt.mentions) {
				t.Errorf("reason %q does not mention %q",
					env.HookSpecificOutput.PermissionDecisionReason, tt.mentions)
			}
			if env.UpdatedInput == nil {
				t.Error("updatedInput is nil")
			}
		})
	}
}

func TestRunJudge_UnknownBuiltinPolicy(t *testing.T) {
	clearJudgeEnv(t)
	policyName = "no_such_policy"
	t.Cleanup(func() { policyName = "" })

	var out bytes.Buffer
	if err := runJudge(strings.NewReader("{}"), &out); err != nil {
		t.Fatalf("runJudge returned error: %v", err)
	}

	env := decodeEnvelope(t, &out)
	if env.HookSpecificOutput.PermissionDecision != hook.PermissionDeny {
		t.Errorf("decision = %q, want deny", env.HookSpecificOutput.PermissionDecision)
	}
	if !strings.Contains(env.HookSpecificOutput.PermissionDecisionReason, "configuration") {
		t.Errorf("reason %q should cite configuration", env.HookSpecificOutput.PermissionDecisionReason)
	}
}

func TestPoliciesCmd(t *testing.T) {
	cmd := newPoliciesCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)

	if !strings.Contains(out.String(), "validate_bq_query") {
		t.Errorf("policies output %q lacks validate_bq_query", out.String())
	}
	if !strings.Contains(out.String(), "default") {
		t.Errorf("policies output %q lacks default", out.String())
	}
}
