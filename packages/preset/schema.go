package preset

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema validates the shape of a presets file before it is
// unmarshalled, so authoring mistakes surface with field-level messages.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "endpoint", "method", "format", "mode"],
    "properties": {
      "name":         { "type": "string", "minLength": 1 },
      "endpoint":     { "type": "string", "pattern": "^/" },
      "method":       { "type": "string", "minLength": 1 },
      "payloadFile":  { "type": "string" },
      "format":       { "type": "string", "enum": ["path", "action", "body", "google", "rpc"] },
      "mode":         { "type": "string", "enum": ["happy", "unhappy"] },
      "simpleFormat": { "type": "boolean" }
    },
    "additionalProperties": false
  }
}`

// ValidateDocument checks raw presets JSON against the store schema.
func ValidateDocument(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(documentSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid presets document: %s", strings.Join(msgs, "; "))
}
