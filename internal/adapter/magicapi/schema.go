package magicapi

import (
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"mensajemagico/internal/domain"
)

// generateResponseSchema is the contract of a buffered generation body.
const generateResponseSchema = `{
	"type": "object",
	"properties": {
		"text": {"type": "string"},
		"result": {"type": "string"},
		"remaining_credits": {"type": ["number", "null"]}
	},
	"anyOf": [
		{"required": ["text"]},
		{"required": ["result"]}
	]
}`

// responseValidator checks decoded response bodies against the contract.
type responseValidator struct {
	schema *jsonschema.Schema
}

func newResponseValidator() (*responseValidator, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(generateResponseSchema))
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}
	return &responseValidator{schema: schema}, nil
}

// Validate reports a contract violation as a wrapped domain.ErrProviderError.
func (v *responseValidator) Validate(data any) error {
	result := v.schema.Validate(data)
	if !result.IsValid() {
		return fmt.Errorf("%w: unexpected response shape: %s", domain.ErrProviderError, result.Error())
	}
	return nil
}
