// Package schema defines the structural descriptors for structured model
// output. The core passes these through to the completion backend
// opaquely; it never inspects field contents.
package schema

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/guiperry/llmcore/types"
)

// Definition describes one result shape: a name, a JSON Schema for the
// backend's structured-output mode, and optional prompt templates that
// travel with the shape (placeholders in {name} form).
type Definition struct {
	Name         string
	Description  string
	Schema       json.RawMessage
	SystemPrompt string
	Prompt       string
}

// Reflect builds a Definition from a Go struct type using its json tags.
func Reflect[T any](name string) (*Definition, error) {
	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	var zero T
	s := reflector.Reflect(&zero)

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, &types.SchemaParseError{Op: "schema.Reflect", Schema: name, Err: err}
	}
	return &Definition{Name: name, Schema: raw}, nil
}

// WithPrompts attaches prompt templates to the definition and returns it
// for chaining.
func (d *Definition) WithPrompts(system, prompt string) *Definition {
	d.SystemPrompt = system
	d.Prompt = prompt
	return d
}

// FormatPrompt expands {name} placeholders in the definition's prompt
// template.
func (d *Definition) FormatPrompt(vars map[string]string) string {
	return expand(d.Prompt, vars)
}

// FormatSystemPrompt expands {name} placeholders in the definition's
// system prompt template.
func (d *Definition) FormatSystemPrompt(vars map[string]string) string {
	return expand(d.SystemPrompt, vars)
}

func expand(template string, vars map[string]string) string {
	out := template
	for key, value := range vars {
		out = strings.ReplaceAll(out, "{"+key+"}", value)
	}
	return out
}
