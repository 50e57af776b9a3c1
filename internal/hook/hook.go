// Package hook defines the PreToolUse wire types shared by the whole pipeline:
// the request read from stdin, the response envelope written to stdout, and the
// permission decision vocabulary.
package hook

// EventName is the only hook event this binary handles.
const EventName = "PreToolUse"

// Permission decision values.
const (
	PermissionAllow = "allow"
	PermissionDeny  = "deny"
	PermissionAsk   = "ask"
)

// Input is the PreToolUse request envelope. It is decoded only after the raw
// document has passed the request schema gate; no field is ever defaulted.
type Input struct {
	SessionID      string         `json:"session_id"`
	HookEventName  string         `json:"hook_event_name"`
	ToolName       string         `json:"tool_name"`
	ToolParameters map[string]any `json:"tool_parameters"`
	MessageHistory []any          `json:"message_history"`

	// Optional passthrough fields from the hook protocol.
	TranscriptPath string `json:"transcript_path,omitempty"`
	CWD            string `json:"cwd,omitempty"`
	PermissionMode string `json:"permission_mode,omitempty"`
}

// SpecificOutput is the decision block inside the response envelope.
type SpecificOutput struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision"`
	PermissionDecisionReason string `json:"permissionDecisionReason"`
}

// Envelope is the wire-level response. Exactly one is written per invocation,
// and only the result synthesizer constructs it.
type Envelope struct {
	HookSpecificOutput SpecificOutput `json:"hookSpecificOutput"`

	// UpdatedInput always echoes the request's tool_parameters (never null).
	UpdatedInput map[string]any `json:"updatedInput"`

	// Optional control fields from the hook protocol, passed through when the
	// judge model set them.
	Continue       *bool  `json:"continue,omitempty"`
	StopReason     string `json:"stopReason,omitempty"`
	SuppressOutput *bool  `json:"suppressOutput,omitempty"`
	SystemMessage  string `json:"systemMessage,omitempty"`
}
