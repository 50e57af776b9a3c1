// Package schema is the structural gate for the two fixed wire shapes: the
// PreToolUse request read from stdin and the decision envelope produced by the
// judge model. Validation is pure and deterministic; a failed check is routed
// back to the caller as a violation list, never as a process failure.
package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed request.schema.json
var requestSchemaJSON string

//go:embed response.schema.json
var responseSchemaJSON string

// Shape selects which of the two fixed schemas to validate against.
type Shape int

const (
	Request Shape = iota
	Response
)

func (s Shape) String() string {
	if s == Request {
		return "request"
	}
	return "response"
}

// Violation describes a single schema violation: the instance path of the
// offending value and the constraint it broke.
type Violation struct {
	Path    string
	Message string
}

func (v Violation) String() string {
	path := v.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s: %s", path, v.Message)
}

// Result is the outcome of one validation call.
type Result struct {
	Violations []Violation
}

// OK reports whether the value conformed to the schema.
func (r *Result) OK() bool { return len(r.Violations) == 0 }

// Summary joins all violations into a single diagnostic line.
func (r *Result) Summary() string {
	parts := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		parts[i] = v.String()
	}
	return strings.Join(parts, "; ")
}

// Gate holds the two compiled schemas.
type Gate struct {
	request  *jsonschema.Schema
	response *jsonschema.Schema
}

// NewGate compiles both embedded schemas. An error here means the embedded
// schema documents themselves are broken, not that any input was bad.
func NewGate() (*Gate, error) {
	req, err := compile("pretooluse-input.schema.json", requestSchemaJSON)
	if err != nil {
		return nil, err
	}
	resp, err := compile("pretooluse-output.schema.json", responseSchemaJSON)
	if err != nil {
		return nil, err
	}
	return &Gate{request: req, response: resp}, nil
}

func compile(name, doc string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := "https://hookjudge.schemas.local/" + name
	if err := c.AddResource(url, strings.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("schema load failed for %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema compile failed for %s: %w", name, err)
	}
	return compiled, nil
}

// Validate checks an already-parsed JSON document against the selected shape.
// The value must use the generic JSON representation (map[string]any etc.), as
// produced by encoding/json unmarshalling into any.
func (g *Gate) Validate(shape Shape, value any) *Result {
	s := g.request
	if shape == Response {
		s = g.response
	}

	err := s.Validate(value)
	if err == nil {
		return &Result{}
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &Result{Violations: []Violation{{Path: "", Message: err.Error()}}}
	}
	return &Result{Violations: leaves(ve)}
}

// leaves flattens a validation error tree into its leaf causes. Intermediate
// nodes only say "doesn't validate with ..."; the leaves carry the concrete
// constraint that was broken.
func leaves(ve *jsonschema.ValidationError) []Violation {
	if len(ve.Causes) == 0 {
		return []Violation{{Path: ve.InstanceLocation, Message: ve.Message}}
	}
	var out []Violation
	for _, cause := range ve.Causes {
		out = append(out, leaves(cause)...)
	}
	return out
}

// RequestJSON returns the raw request schema document, for embedding into the
// judge model's system prompt.
func RequestJSON() string { return requestSchemaJSON }

// ResponseJSON returns the raw response schema document, for embedding into
// the judge model's system prompt.
func ResponseJSON() string { return responseSchemaJSON }
