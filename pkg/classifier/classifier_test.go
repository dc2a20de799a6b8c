package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilhq/vigil/pkg/log"
	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/ports"
)

func TestParseVerdict_Valid(t *testing.T) {
	classification, err := parseVerdict(`{
		"severity": "major",
		"summary": "Job title changed",
		"key_changes": ["title: Engineer -> Director"]
	}`)
	require.NoError(t, err)

	assert.Equal(t, models.SeverityMajor, classification.Severity)
	assert.Equal(t, "Job title changed", classification.Summary)
	assert.Equal(t, []string{"title: Engineer -> Director"}, classification.KeyChanges)
}

func TestParseVerdict_StripsMarkdownFence(t *testing.T) {
	classification, err := parseVerdict("```json\n{\"severity\": \"minor\", \"summary\": \"tweak\"}\n```")
	require.NoError(t, err)

	assert.Equal(t, models.SeverityMinor, classification.Severity)
	assert.Empty(t, classification.KeyChanges)
}

func TestParseVerdict_RejectsBadSeverity(t *testing.T) {
	_, err := parseVerdict(`{"severity": "catastrophic", "summary": "x"}`)
	assert.Error(t, err)
}

func TestParseVerdict_RejectsMissingFields(t *testing.T) {
	_, err := parseVerdict(`{"severity": "major"}`)
	assert.Error(t, err)
}

func TestParseVerdict_RejectsUnknownFields(t *testing.T) {
	_, err := parseVerdict(`{"severity": "major", "summary": "x", "confidence": 0.9}`)
	assert.Error(t, err)
}

func TestParseVerdict_RejectsNonJSON(t *testing.T) {
	_, err := parseVerdict("the change looks significant to me")
	assert.Error(t, err)
}

func classifyWithRules(t *testing.T, prev, curr string) *ports.Classification {
	t.Helper()

	classification, err := NewRuleClassifier(log.NewDiscard()).Classify(context.Background(), &ports.ClassifyRequest{
		Target:          &models.Target{ID: "target-1", Type: models.TargetTypeWebsite},
		PreviousContent: []byte(prev),
		CurrentContent:  []byte(curr),
	})
	require.NoError(t, err)

	return classification
}

func TestRuleClassifier_WhitespaceOnlyIsNone(t *testing.T) {
	classification := classifyWithRules(t, "alpha\nbeta\ngamma", "  alpha\n\nbeta\ngamma  \n")

	assert.Equal(t, models.SeverityNone, classification.Severity)
}

func TestRuleClassifier_SmallEditIsMinor(t *testing.T) {
	prev := "one\ntwo\nthree\nfour\nfive\nsix\nseven\neight\nnine\nten"
	curr := "one\ntwo\nthree\nfour\nfive\nsix\nseven\neight\nnine\nTEN"

	classification := classifyWithRules(t, prev, curr)

	assert.Equal(t, models.SeverityMinor, classification.Severity)
	assert.NotEmpty(t, classification.Summary)
}

func TestRuleClassifier_LargeRewriteIsMajor(t *testing.T) {
	classification := classifyWithRules(t, "one\ntwo\nthree\nfour", "five\nsix\nseven\neight")

	assert.Equal(t, models.SeverityMajor, classification.Severity)
	assert.NotEmpty(t, classification.KeyChanges)
}
