// Package judge drives the decision pipeline: it holds the bounded
// retry-with-feedback conversation with the judge model and synthesizes the
// final response envelope. Ambiguous or invalid model output is fed back as a
// concrete corrective instruction; transport failures are fatal on the first
// occurrence. Every terminal state resolves to a well-formed envelope, and
// every failure resolves to deny.
package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hookjudge-ai/hookjudge/internal/config"
	"github.com/hookjudge-ai/hookjudge/internal/extract"
	"github.com/hookjudge-ai/hookjudge/internal/hook"
	"github.com/hookjudge-ai/hookjudge/internal/oracle"
	"github.com/hookjudge-ai/hookjudge/internal/schema"
)

// maxAttempts bounds how many times the judge model is asked for a
// schema-valid decision within one invocation.
const maxAttempts = 3

// FailureKind classifies why no decision could be obtained.
type FailureKind int

const (
	FailureNone FailureKind = iota

	// FailureBadRequest: the input envelope failed the request schema gate.
	// Never sent to the judge model.
	FailureBadRequest

	// FailureBadConfig: policy resolution failed before the pipeline started.
	FailureBadConfig

	// FailureOracleDown: the judge model was unreachable or returned no
	// content. Fatal on the first occurrence, never retried.
	FailureOracleDown

	// FailureExhausted: the model kept producing malformed or schema-invalid
	// output until the attempt budget ran out.
	FailureExhausted
)

// Outcome is the terminal state of one decision. Exactly one of Decision or
// Kind!=FailureNone is meaningful.
type Outcome struct {
	// Decision is the schema-validated decision document (success only).
	Decision map[string]any

	Kind   FailureKind
	Detail string

	// Attempts is how many judge-model calls were made.
	Attempts int
}

// Judge runs the retry loop against one oracle under one policy.
type Judge struct {
	oracle oracle.Oracle
	gate   *schema.Gate
	policy *config.Policy
}

func New(o oracle.Oracle, gate *schema.Gate, policy *config.Policy) *Judge {
	return &Judge{oracle: o, gate: gate, policy: policy}
}

// Decide runs the conversation state machine for one validated input.
// Conversation state lives entirely in this call frame; nothing is reused
// across invocations.
func (j *Judge) Decide(ctx context.Context, input *hook.Input) Outcome {
	system := systemPrompt(j.policy)
	turns := []oracle.Turn{{Role: oracle.RoleUser, Content: userPrompt(input)}}

	attempts := 0
	for attempt := 0; attempt < maxAttempts; attempt++ {
		attempts++

		text, err := j.oracle.Complete(ctx, &oracle.Request{
			System:    system,
			Turns:     turns,
			Model:     j.policy.Model,
			MaxTokens: j.policy.MaxTokens,
		})
		if err != nil {
			// Infrastructural failure: feedback cannot fix a broken channel.
			return Outcome{Kind: FailureOracleDown, Detail: err.Error(), Attempts: attempts}
		}
		if strings.TrimSpace(text) == "" {
			return Outcome{Kind: FailureOracleDown, Detail: oracle.ErrNoResponse.Error(), Attempts: attempts}
		}

		candidate, perr := extract.Decision(text)
		if perr != nil {
			diag := perr.Error()
			var pe *extract.ParseError
			if errors.As(perr, &pe) {
				diag = pe.Corrective()
			}
			if attempt == maxAttempts-1 {
				return Outcome{Kind: FailureExhausted, Detail: perr.Error(), Attempts: attempts}
			}
			turns = appendFeedback(turns, text,
				"Your previous response could not be parsed. "+diag)
			continue
		}

		doc := wrapIfNeeded(candidate)
		res := j.gate.Validate(schema.Response, any(doc))
		if res.OK() {
			return Outcome{Decision: doc, Attempts: attempts}
		}
		if attempt == maxAttempts-1 {
			return Outcome{Kind: FailureExhausted, Detail: res.Summary(), Attempts: attempts}
		}
		turns = appendFeedback(turns, text, schemaFeedback(res))
	}

	// Unreachable: the loop always returns within maxAttempts.
	return Outcome{Kind: FailureExhausted, Detail: "attempt budget exhausted", Attempts: attempts}
}

// appendFeedback records the model's own (bad) answer followed by the
// corrective instruction, so the next attempt sees its concrete mistake.
func appendFeedback(turns []oracle.Turn, answer, feedback string) []oracle.Turn {
	return append(turns,
		oracle.Turn{Role: oracle.RoleAssistant, Content: answer},
		oracle.Turn{Role: oracle.RoleUser, Content: feedback},
	)
}

func schemaFeedback(res *schema.Result) string {
	var sb strings.Builder
	sb.WriteString("Your previous response did not match the required output schema. Violations:\n")
	for _, v := range res.Violations {
		fmt.Fprintf(&sb, "- %s\n", v)
	}
	sb.WriteString("Return a corrected JSON object matching the output schema.")
	return sb.String()
}

// envelopeKeys are the top-level response fields; anything else in a bare
// decision object belongs inside hookSpecificOutput.
var envelopeKeys = map[string]bool{
	"hookSpecificOutput": true,
	"updatedInput":       true,
	"continue":           true,
	"stopReason":         true,
	"suppressOutput":     true,
	"systemMessage":      true,
}

// wrapIfNeeded lifts a bare decision object into the hookSpecificOutput
// envelope shape. It never invents missing fields: a bare object without a
// permissionDecision stays invalid and goes back through the feedback loop.
func wrapIfNeeded(doc map[string]any) map[string]any {
	if _, ok := doc["hookSpecificOutput"]; ok {
		return doc
	}
	inner := map[string]any{"hookEventName": hook.EventName}
	out := map[string]any{"hookSpecificOutput": inner}
	for k, v := range doc {
		switch {
		case k == "hookEventName":
			// const, already set
		case envelopeKeys[k]:
			out[k] = v
		default:
			inner[k] = v
		}
	}
	return out
}
