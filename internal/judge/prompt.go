package judge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hookjudge-ai/hookjudge/internal/config"
	"github.com/hookjudge-ai/hookjudge/internal/hook"
	"github.com/hookjudge-ai/hookjudge/internal/schema"
)

// historyTail caps how many trailing conversation entries are shown to the
// judge model.
const historyTail = 10

// systemPrompt composes the instruction preamble: role, both wire schemas,
// the policy text, and the response format rules.
func systemPrompt(p *config.Policy) string {
	var sb strings.Builder

	sb.WriteString("You are a PreToolUse hook judge for an interactive coding agent.\n")
	sb.WriteString("Given a proposed tool call, decide whether it should be allowed, denied,\n")
	sb.WriteString("or escalated to the user (\"ask\"), and answer with a single JSON object.\n\n")

	sb.WriteString("# Input JSON Schema\n")
	sb.WriteString(schema.RequestJSON())
	sb.WriteString("\n# Output JSON Schema\n")
	sb.WriteString(schema.ResponseJSON())

	sb.WriteString("\n# Policy\n")
	sb.WriteString(strings.TrimSpace(p.Prompt))
	sb.WriteString("\n")

	if len(p.AllowedTools) > 0 {
		fmt.Fprintf(&sb, "\nThis policy covers the following tools: %s.\n",
			strings.Join(p.AllowedTools, ", "))
	}

	sb.WriteString(`
IMPORTANT: Return ONLY raw JSON. Do NOT wrap it in markdown code blocks (` + "```json or ```" + `).

Return ONLY a valid JSON object matching the output schema, with:
- permissionDecision: "allow", "deny", or "ask"
- permissionDecisionReason: a brief explanation

Output JSON only, no other text, no code blocks, no formatting.`)

	return sb.String()
}

// userPrompt serializes the tool call under judgment into the opening turn.
func userPrompt(input *hook.Input) string {
	params, err := json.MarshalIndent(input.ToolParameters, "", "  ")
	if err != nil {
		params = []byte("{}")
	}

	var sb strings.Builder
	sb.WriteString("# Current Tool Use\n")
	fmt.Fprintf(&sb, "Session: %s\n", input.SessionID)
	fmt.Fprintf(&sb, "Tool: %s\n", input.ToolName)
	fmt.Fprintf(&sb, "Input:\n%s\n", params)

	if tail := historyWindow(input.MessageHistory); len(tail) > 0 {
		if hist, err := json.MarshalIndent(tail, "", "  "); err == nil {
			sb.WriteString("\n# Recent Conversation\n")
			sb.Write(hist)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func historyWindow(history []any) []any {
	if len(history) <= historyTail {
		return history
	}
	return history[len(history)-historyTail:]
}
