package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/vigilhq/vigil/pkg/ports"
)

const defaultModel = "gemini-1.5-flash"

const promptTemplate = `You are a change analyst for a monitoring service.
Compare the two versions of a %s page below and judge how significant
the difference is for someone tracking it.

Severity levels:
- "none": cosmetic noise only (timestamps, counters, ads, reordering)
- "minor": real but small edits (wording tweaks, small detail updates)
- "major": substantive changes (new role, pricing, leadership, product,
  removed sections, contact changes)

Respond with JSON only, matching:
{"severity": "none|minor|major", "summary": "<one or two sentences>", "key_changes": ["<specific change>", ...]}

PREVIOUS VERSION:
%s

CURRENT VERSION:
%s`

// GeminiClassifier judges snapshot pairs with a Gemini model in JSON
// mode. Verdicts are schema-checked before being trusted.
type GeminiClassifier struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

// NewGeminiClassifier creates the client. modelName falls back to a
// sensible default when empty.
func NewGeminiClassifier(ctx context.Context, apiKey, modelName string, logger *slog.Logger) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if modelName == "" {
		modelName = defaultModel
	}

	return &GeminiClassifier{
		client:    client,
		modelName: modelName,
		logger:    logger.With("module", "classifier"),
	}, nil
}

func (c *GeminiClassifier) Classify(ctx context.Context, req *ports.ClassifyRequest) (*ports.Classification, error) {
	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	prompt := fmt.Sprintf(promptTemplate,
		req.Target.Type, string(req.PreviousContent), string(req.CurrentContent))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, ports.Transient(fmt.Errorf("gemini request failed: %w", err))
	}

	text, err := extractText(resp)
	if err != nil {
		return nil, ports.Transient(err)
	}

	classification, err := parseVerdict(text)
	if err != nil {
		// A malformed verdict is a model hiccup; the retained snapshot
		// pair lets the next run try again.
		return nil, ports.Transient(err)
	}

	c.logger.DebugContext(ctx, "Classified change",
		"target_id", req.Target.ID, "severity", classification.Severity)

	return classification, nil
}

// Close releases the underlying API client.
func (c *GeminiClassifier) Close() error {
	return c.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in gemini response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in gemini response")
	}

	var parts []string

	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in gemini response")
	}

	return strings.Join(parts, ""), nil
}
