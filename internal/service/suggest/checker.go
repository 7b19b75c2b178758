package suggest

import (
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const suggestionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["filename", "destination"],
  "properties": {
    "filename":    {"type": "string", "minLength": 1},
    "destination": {"type": "string"},
    "confidence":  {"type": "number", "minimum": 0, "maximum": 1},
    "reasoning":   {"type": "string"}
  }
}`

// ResultChecker reports how a provider reply deviates from the expected
// suggestion shape. It never rejects a reply.
type ResultChecker struct {
	schema *jsonschema.Schema
}

func NewResultChecker() (*ResultChecker, error) {
	schema, err := jsonschema.CompileString("suggestion.schema.json", suggestionSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile suggestion schema: %w", err)
	}
	return &ResultChecker{schema: schema}, nil
}

// Check returns one message per violation, or nil when raw conforms.
func (c *ResultChecker) Check(raw map[string]any) []string {
	err := c.schema.Validate(raw)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []string{err.Error()}
	}

	var out []string
	for _, leaf := range leaves(verr) {
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		out = append(out, fmt.Sprintf("%s: %s", loc, leaf.Message))
	}
	return out
}

func leaves(e *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(e.Causes) == 0 {
		return []*jsonschema.ValidationError{e}
	}
	var out []*jsonschema.ValidationError
	for _, c := range e.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}
