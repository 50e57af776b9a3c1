package judge

import (
	"fmt"

	"github.com/hookjudge-ai/hookjudge/internal/hook"
)

// Synthesize maps a terminal outcome to the wire envelope. It is total: every
// outcome, including internal failures, yields a schema-valid envelope, and
// every failure yields deny. This is the only place the fail-closed default
// is materialized.
//
// toolParameters is the request's original tool input; it is mechanically
// copied into updatedInput regardless of what the judge model echoed. Pass
// nil when the request itself never validated.
func Synthesize(out Outcome, toolParameters map[string]any) hook.Envelope {
	updated := toolParameters
	if updated == nil {
		updated = map[string]any{}
	}

	if out.Kind == FailureNone && out.Decision != nil {
		return decisionEnvelope(out.Decision, updated)
	}

	return hook.Envelope{
		HookSpecificOutput: hook.SpecificOutput{
			HookEventName:            hook.EventName,
			PermissionDecision:       hook.PermissionDeny,
			PermissionDecisionReason: failureReason(out),
		},
		UpdatedInput: updated,
	}
}

// decisionEnvelope carries a validated decision document into the typed
// envelope. The model's own updatedInput echo, if any, is deliberately
// dropped in favor of the mechanical copy.
func decisionEnvelope(doc map[string]any, updated map[string]any) hook.Envelope {
	env := hook.Envelope{UpdatedInput: updated}

	if so, ok := doc["hookSpecificOutput"].(map[string]any); ok {
		env.HookSpecificOutput = hook.SpecificOutput{
			HookEventName:            hook.EventName,
			PermissionDecision:       stringField(so, "permissionDecision"),
			PermissionDecisionReason: stringField(so, "permissionDecisionReason"),
		}
	}
	if v, ok := doc["continue"].(bool); ok {
		env.Continue = &v
	}
	if v, ok := doc["stopReason"].(string); ok {
		env.StopReason = v
	}
	if v, ok := doc["suppressOutput"].(bool); ok {
		env.SuppressOutput = &v
	}
	if v, ok := doc["systemMessage"].(string); ok {
		env.SystemMessage = v
	}
	return env
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// failureReason distinguishes the failure causes without leaking raw internal
// diagnostics that could be misread as an allow-adjacent signal.
func failureReason(out Outcome) string {
	switch out.Kind {
	case FailureBadRequest:
		return fmt.Sprintf("Hook input failed validation: %s. The operation is denied for safety.", out.Detail)
	case FailureBadConfig:
		return fmt.Sprintf("Policy configuration could not be loaded: %s. The operation is denied for safety.", out.Detail)
	case FailureOracleDown:
		return "The judge system did not respond. The operation is denied for safety."
	case FailureExhausted:
		return fmt.Sprintf("The judge system did not produce a valid decision after %d attempts. The operation is denied for safety.", maxAttempts)
	default:
		return "The judge system failed unexpectedly. The operation is denied for safety."
	}
}
