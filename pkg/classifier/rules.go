package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/ports"
)

// majorChangeRatio is the fraction of changed lines above which the
// rule classifier calls a change major.
const majorChangeRatio = 0.25

// RuleClassifier is a heuristic fallback used when no Gemini API key is
// configured. It rates changes by the fraction of lines that differ,
// which is crude but deterministic.
type RuleClassifier struct {
	logger *slog.Logger
}

// NewRuleClassifier creates the heuristic classifier.
func NewRuleClassifier(logger *slog.Logger) *RuleClassifier {
	return &RuleClassifier{logger: logger.With("module", "classifier")}
}

func (c *RuleClassifier) Classify(ctx context.Context, req *ports.ClassifyRequest) (*ports.Classification, error) {
	prev := splitLines(req.PreviousContent)
	curr := splitLines(req.CurrentContent)

	added, removed := lineDelta(prev, curr)
	total := len(prev)
	if len(curr) > total {
		total = len(curr)
	}

	if added+removed == 0 {
		return &ports.Classification{
			Severity: models.SeverityNone,
			Summary:  "Content differs only in line ordering or whitespace",
		}, nil
	}

	severity := models.SeverityMinor
	if total > 0 && float64(added+removed)/float64(total) >= majorChangeRatio {
		severity = models.SeverityMajor
	}

	c.logger.DebugContext(ctx, "Rule-classified change",
		"target_id", req.Target.ID, "added", added, "removed", removed, "severity", severity)

	return &ports.Classification{
		Severity: severity,
		Summary:  fmt.Sprintf("%d lines added, %d lines removed", added, removed),
		KeyChanges: []string{
			fmt.Sprintf("content size changed from %d to %d bytes",
				len(req.PreviousContent), len(req.CurrentContent)),
		},
	}, nil
}

func splitLines(content []byte) []string {
	var lines []string

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	return lines
}

// lineDelta counts lines present on only one side, using multiset
// membership so repeated lines count once per occurrence.
func lineDelta(prev, curr []string) (added, removed int) {
	counts := make(map[string]int, len(prev))
	for _, line := range prev {
		counts[line]++
	}

	for _, line := range curr {
		if counts[line] > 0 {
			counts[line]--
		} else {
			added++
		}
	}

	for _, remaining := range counts {
		removed += remaining
	}

	return added, removed
}
