package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrUnknownTool is reported when a model calls a tool the agent does not have
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments is reported when tool arguments fail schema validation
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Tool is a deterministic function an agent may invoke mid-turn
type Tool interface {
	Name() string
	Description() string
	// Parameters is the JSON schema of the arguments object
	Parameters() map[string]any
	// Call runs the tool with JSON-encoded arguments and returns a JSON-encoded result
	Call(ctx context.Context, arguments string) (string, error)
}

// FunctionTool adapts a typed Go function to the Tool interface.
// Arguments are validated against the schema before being decoded into In.
type FunctionTool[In, Out any] struct {
	name        string
	description string
	parameters  map[string]any
	schema      *gojsonschema.Schema
	fn          func(context.Context, In) (Out, error)
}

// NewFunctionTool creates a tool named name backed by fn
func NewFunctionTool[In, Out any](name, description string, parameters map[string]any, fn func(context.Context, In) (Out, error)) (*FunctionTool[In, Out], error) {
	if name == "" {
		return nil, errors.New("tool name is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("tool %s has no function", name)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(parameters))
	if err != nil {
		return nil, fmt.Errorf("invalid parameter schema for tool %s: %w", name, err)
	}

	return &FunctionTool[In, Out]{
		name:        name,
		description: description,
		parameters:  parameters,
		schema:      schema,
		fn:          fn,
	}, nil
}

// Name implements Tool
func (t *FunctionTool[In, Out]) Name() string { return t.name }

// Description implements Tool
func (t *FunctionTool[In, Out]) Description() string { return t.description }

// Parameters implements Tool
func (t *FunctionTool[In, Out]) Parameters() map[string]any { return t.parameters }

// Call implements Tool
func (t *FunctionTool[In, Out]) Call(ctx context.Context, arguments string) (string, error) {
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}

	result, err := t.schema.Validate(gojsonschema.NewStringLoader(arguments))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidArguments, t.name, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return "", fmt.Errorf("%w: %s: %s", ErrInvalidArguments, t.name, strings.Join(problems, "; "))
	}

	var in In
	if err := json.Unmarshal([]byte(arguments), &in); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidArguments, t.name, err)
	}

	out, err := t.fn(ctx, in)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s result: %w", t.name, err)
	}
	return string(data), nil
}
