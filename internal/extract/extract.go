// Package extract pulls a single JSON decision object out of the judge
// model's free-form text. Surrounding prose and a single fenced block are
// tolerated; a model repeating the same object verbatim is noise, not
// ambiguity, but zero candidates or more than one distinct candidate is an
// error. There is deliberately no "pick the most plausible one" heuristic: an
// ambiguous response must fail so the retry loop can ask the model to correct
// itself.
package extract

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseError reports why no decision object could be extracted. Guidance is a
// corrective instruction written for the judge model, suitable for feeding
// back into the conversation verbatim.
type ParseError struct {
	Reason   string
	Guidance string
}

func (e *ParseError) Error() string { return e.Reason }

// Corrective returns the full diagnostic to echo back to the judge model.
func (e *ParseError) Corrective() string {
	if e.Guidance == "" {
		return e.Reason
	}
	return e.Reason + "\n" + e.Guidance
}

const rawJSONGuidance = `Return ONLY one raw JSON object matching the output schema.

WRONG:
Sure! Here is the result: {"permissionDecision": "allow"}

CORRECT:
{"permissionDecision": "allow", "permissionDecisionReason": "..."}`

// Decision locates exactly one well-formed JSON object in text and returns it
// as a generic document ready for schema validation.
func Decision(text string) (map[string]any, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, &ParseError{
			Reason:   "the response is empty",
			Guidance: rawJSONGuidance,
		}
	}

	// A single fenced block is accepted; its content replaces the scan input.
	if strings.Contains(s, "```") {
		inner, err := unfence(s)
		if err != nil {
			return nil, err
		}
		s = inner
	}

	candidates := distinct(scanObjects(s))
	switch len(candidates) {
	case 0:
		return nil, &ParseError{
			Reason:   "no JSON object found in the response",
			Guidance: rawJSONGuidance,
		}
	case 1:
		// fall through
	default:
		return nil, &ParseError{
			Reason: fmt.Sprintf("found %d distinct JSON objects in the response; exactly one is required", len(candidates)),
			Guidance: `Return exactly one JSON object and nothing else.

WRONG:
{"permissionDecision": "allow"} {"permissionDecision": "deny"}

CORRECT:
{"permissionDecision": "allow", "permissionDecisionReason": "..."}`,
		}
	}

	doc, ok := candidates[0].(map[string]any)
	if !ok {
		return nil, &ParseError{
			Reason:   "the JSON value is not an object",
			Guidance: rawJSONGuidance,
		}
	}
	return doc, nil
}

// distinct parses each raw candidate and drops duplicates of documents
// already seen, so `{"a":1} {"a":1}` and `{"a":1} { "a" : 1 }` both collapse
// to a single candidate while `{"a":1} {"a":2}` stays ambiguous.
func distinct(raws []json.RawMessage) []any {
	var docs []any
	for _, raw := range raws {
		doc := gjson.ParseBytes(raw).Value()
		dup := false
		for _, seen := range docs {
			if reflect.DeepEqual(doc, seen) {
				dup = true
				break
			}
		}
		if !dup {
			docs = append(docs, doc)
		}
	}
	return docs
}

// unfence extracts the content of a single ```-fenced block. Multiple blocks
// or an unterminated fence are errors.
func unfence(s string) (string, error) {
	const fence = "```"
	if strings.Count(s, fence) > 2 {
		return "", &ParseError{
			Reason:   "the response contains more than one fenced code block",
			Guidance: "Return exactly one JSON object, preferably without any markdown fences.",
		}
	}
	start := strings.Index(s, fence)
	rest := s[start+len(fence):]
	end := strings.Index(rest, fence)
	if end < 0 {
		return "", &ParseError{
			Reason: "the response contains an unterminated code fence (```)",
			Guidance: `Do NOT wrap the JSON in markdown code blocks.

WRONG:
` + "```json\n" + `{"permissionDecision": "allow"}

CORRECT:
{"permissionDecision": "allow", "permissionDecisionReason": "..."}`,
		}
	}
	inner := rest[:end]
	// Drop a language tag like "json" on the opening fence line.
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(inner[:nl])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{}") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner), nil
}

// scanObjects finds every well-formed top-level JSON object in s. Objects
// nested inside an already-found object are not counted again.
func scanObjects(s string) []json.RawMessage {
	var found []json.RawMessage
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		found = append(found, raw)
		// Skip past this object so its nested braces are not re-scanned.
		i += int(dec.InputOffset()) - 1
	}
	return found
}
