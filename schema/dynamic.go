package schema

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/guiperry/llmcore/types"
)

// FieldType is the semantic type of one result field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldStrings FieldType = "list of strings"
)

// Dynamic is a caller-supplied result shape built at runtime: an ordered
// sequence of field-name to semantic-type pairs plus prompt templates.
// Field order is preserved into the compiled JSON Schema, which matters
// for models that fill fields in declaration order.
type Dynamic struct {
	Name         string
	Description  string
	SystemPrompt string
	Prompt       string

	fields *orderedmap.OrderedMap[string, FieldType]
}

// NewDynamic creates an empty dynamic descriptor.
func NewDynamic(name string) *Dynamic {
	return &Dynamic{
		Name:   name,
		fields: orderedmap.New[string, FieldType](),
	}
}

// Field appends one field. Appending a duplicate name replaces its type
// but keeps its original position.
func (d *Dynamic) Field(name string, ft FieldType) *Dynamic {
	d.fields.Set(name, ft)
	return d
}

// Compile renders the descriptor into a Definition.
func (d *Dynamic) Compile() (*Definition, error) {
	if d.fields.Len() == 0 {
		return nil, types.NewConfigurationError("schema.Compile", "dynamic schema %q has no fields", d.Name)
	}

	properties := orderedmap.New[string, json.RawMessage]()
	required := make([]string, 0, d.fields.Len())
	for pair := d.fields.Oldest(); pair != nil; pair = pair.Next() {
		prop, err := jsonType(pair.Value)
		if err != nil {
			return nil, err
		}
		properties.Set(pair.Key, prop)
		required = append(required, pair.Key)
	}

	doc := struct {
		Type        string                                      `json:"type"`
		Description string                                      `json:"description,omitempty"`
		Properties  *orderedmap.OrderedMap[string, json.RawMessage] `json:"properties"`
		Required    []string                                    `json:"required"`
	}{
		Type:        "object",
		Description: d.Description,
		Properties:  properties,
		Required:    required,
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, &types.SchemaParseError{Op: "schema.Compile", Schema: d.Name, Err: err}
	}

	return &Definition{
		Name:         d.Name,
		Description:  d.Description,
		Schema:       raw,
		SystemPrompt: d.SystemPrompt,
		Prompt:       d.Prompt,
	}, nil
}

func jsonType(ft FieldType) (json.RawMessage, error) {
	switch ft {
	case FieldString:
		return json.RawMessage(`{"type":"string"}`), nil
	case FieldInteger:
		return json.RawMessage(`{"type":"integer"}`), nil
	case FieldNumber:
		return json.RawMessage(`{"type":"number"}`), nil
	case FieldBoolean:
		return json.RawMessage(`{"type":"boolean"}`), nil
	case FieldStrings:
		return json.RawMessage(`{"type":"array","items":{"type":"string"}}`), nil
	default:
		return nil, types.NewConfigurationError("schema.Compile", "unknown field type %q", string(ft))
	}
}
