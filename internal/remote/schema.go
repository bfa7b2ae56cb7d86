package remote

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const responseSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["pages"],
  "properties": {
    "document_id": {"type": "string"},
    "model_version": {"type": "string"},
    "billed_pages": {"type": "integer", "minimum": 0},
    "pages": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["page_number", "text"],
        "properties": {
          "page_number": {"type": "integer", "minimum": 1},
          "text": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "tables": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["rows"],
              "properties": {
                "rows": {"type": "array", "items": {"type": "array", "items": {"type": "string"}}}
              }
            }
          }
        }
      }
    }
  }
}`

var responseSchema = mustCompileSchema("response.json", responseSchemaJSON)

func mustCompileSchema(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("add schema: %v", err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return schema
}

// decodeResponse validates body against the response schema and decodes it.
func decodeResponse(body []byte) (*Response, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := responseSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: json does not match schema: %v", ErrMalformedResponse, err)
	}
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &resp, nil
}
