// Package classifier implements the Classifier port: a Gemini-backed
// adapter for semantic change assessment and a rule-based fallback for
// running without an API key.
package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/ports"
)

// verdictSchema constrains what the model may return. Anything outside
// it is rejected before the verdict reaches the engine.
const verdictSchema = `{
	"type": "object",
	"required": ["severity", "summary"],
	"additionalProperties": false,
	"properties": {
		"severity": {"type": "string", "enum": ["none", "minor", "major"]},
		"summary": {"type": "string", "maxLength": 2000},
		"key_changes": {
			"type": "array",
			"maxItems": 20,
			"items": {"type": "string", "maxLength": 500}
		}
	}
}`

var compiledVerdictSchema = gojsonschema.NewStringLoader(verdictSchema)

type verdict struct {
	Severity   string   `json:"severity"`
	Summary    string   `json:"summary"`
	KeyChanges []string `json:"key_changes"`
}

// parseVerdict validates raw model output against the verdict schema
// and converts it into a Classification.
func parseVerdict(raw string) (*ports.Classification, error) {
	raw = cleanJSONBlock(raw)

	result, err := gojsonschema.Validate(compiledVerdictSchema, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("verdict is not valid JSON: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return nil, fmt.Errorf("verdict failed schema validation: %s", strings.Join(details, "; "))
	}

	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("failed to decode verdict: %w", err)
	}

	return &ports.Classification{
		Severity:   models.Severity(v.Severity),
		Summary:    v.Summary,
		KeyChanges: v.KeyChanges,
	}, nil
}

// cleanJSONBlock strips markdown code fences some models wrap around
// JSON output despite the JSON response MIME type.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	return strings.TrimSpace(text)
}
