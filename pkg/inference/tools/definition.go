package tools

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

var ErrInvalidArguments = errors.New("invalid tool arguments")

// ToolInput is the argument object exposed to engines with native function
// calling. Every tool takes a single free-text input.
type ToolInput struct {
	Input string `json:"input" jsonschema:"required,description=The input to the tool"`
}

// Definition is a provider-neutral function definition for a tool.
type Definition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

func inputSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(&ToolInput{})
	if schema.Type == "" {
		schema.Type = "object"
	}
	// providers reject the draft URI on function parameters
	schema.Version = ""
	return schema
}

// Definitions returns function definitions for all tools in registration order.
func (r *Registry) Definitions() []Definition {
	schema := inputSchema()
	tools := r.List()
	ret := make([]Definition, 0, len(tools))
	for _, t := range tools {
		ret = append(ret, Definition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return ret
}

// ParseArguments validates function-call arguments against the ToolInput
// schema and returns the input text.
func ParseArguments(args string) (string, error) {
	schema, err := json.Marshal(inputSchema())
	if err != nil {
		return "", errors.Wrap(err, "marshal input schema")
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewStringLoader(args))
	if err != nil {
		return "", errors.Wrapf(ErrInvalidArguments, "%v", err)
	}
	if !result.Valid() {
		descs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descs = append(descs, desc.String())
		}
		return "", errors.Wrap(ErrInvalidArguments, strings.Join(descs, "; "))
	}

	var in ToolInput
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return "", errors.Wrapf(ErrInvalidArguments, "%v", err)
	}
	return in.Input, nil
}
