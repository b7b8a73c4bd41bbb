package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// TagSchema defines the JSON schema for model-generated interest tag
// responses. The model is asked for a single "tags" array; anything
// else is rejected before parsing.
var TagSchema = `{
	"type": "object",
	"properties": {
		"tags": {
			"type": "array",
			"items": {"type": "string", "minLength": 1, "maxLength": 40},
			"minItems": 0,
			"maxItems": 10
		}
	},
	"required": ["tags"],
	"additionalProperties": false
}`

// TagResponse represents the complete tag response from the model.
type TagResponse struct {
	Tags []string `json:"tags"`
}

// ValidateTagResponse validates a JSON response against the tag schema.
func ValidateTagResponse(jsonData []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(TagSchema)
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate JSON schema: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return fmt.Errorf("JSON validation failed: %s", strings.Join(errorMessages, "; "))
	}

	return nil
}

// ValidateAndParseTagResponse validates and parses a tag response,
// trimming whitespace and dropping empty entries.
func ValidateAndParseTagResponse(jsonData []byte) (*TagResponse, error) {
	if err := ValidateTagResponse(jsonData); err != nil {
		return nil, err
	}

	var response TagResponse
	if err := json.Unmarshal(jsonData, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	clean := make([]string, 0, len(response.Tags))
	for _, tag := range response.Tags {
		if t := strings.TrimSpace(tag); t != "" {
			clean = append(clean, t)
		}
	}
	response.Tags = clean
	return &response, nil
}
