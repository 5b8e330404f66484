package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const captionSchemaJSON = `{
  "type": "object",
  "required": ["caption"],
  "properties": {
    "caption": {"type": "string", "minLength": 1},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

var (
	captionSchemaOnce sync.Once
	captionSchema     *jsonschema.Schema
	captionSchemaErr  error
)

func compiledCaptionSchema() (*jsonschema.Schema, error) {
	captionSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("caption.json", strings.NewReader(captionSchemaJSON)); err != nil {
			captionSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		captionSchema, captionSchemaErr = compiler.Compile("caption.json")
	})
	return captionSchema, captionSchemaErr
}

// validateCaptionPayload checks the model output against the caption schema
// after stripping code fences and surrounding prose.
func validateCaptionPayload(content string) error {
	schema, err := compiledCaptionSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := DecodeJSON(content, &v); err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		raw, _ := json.Marshal(v)
		return fmt.Errorf("payload does not match caption schema: %w (payload: %s)", err, snippet(string(raw)))
	}
	return nil
}
