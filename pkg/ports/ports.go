// Package ports defines the outbound interfaces the workflow engine
// depends on. Adapters live in pkg/fetcher, pkg/classifier and
// pkg/notifier; the engine only sees these contracts.
package ports

import (
	"context"
	"time"

	"github.com/vigilhq/vigil/pkg/models"
)

// FetchResult is the raw observation of a target at a point in time.
type FetchResult struct {
	Content    []byte    `json:"content"`
	FetchedAt  time.Time `json:"fetched_at"`
	StatusCode int       `json:"status_code"`
}

// ClassifyRequest carries both sides of a committed snapshot pair to a
// classifier. Content blobs are opaque to the engine.
type ClassifyRequest struct {
	Target          *models.Target `json:"target"`
	PreviousContent []byte         `json:"previous_content"`
	CurrentContent  []byte         `json:"current_content"`
}

// Classification is a classifier's verdict on a snapshot pair.
type Classification struct {
	Severity   models.Severity `json:"severity"`
	Summary    string          `json:"summary"`
	KeyChanges []string        `json:"key_changes"`
}

// Notice is the message handed to a notifier after a change is routed.
type Notice struct {
	Target     *models.Target       `json:"target"`
	Change     *models.ChangeRecord `json:"change"`
	Recipient  string               `json:"recipient"`
	NotifyVia  models.NotifyChannel `json:"notify_via"`
	DetectedAt time.Time            `json:"detected_at"`
}

// Fetcher retrieves the current content of a target.
type Fetcher interface {
	Fetch(ctx context.Context, target *models.Target) (*FetchResult, error)
}

// Classifier judges the significance of a change between two snapshots.
type Classifier interface {
	Classify(ctx context.Context, req *ClassifyRequest) (*Classification, error)
}

// Notifier delivers a change notice to a target's owner.
type Notifier interface {
	Send(ctx context.Context, notice *Notice) error
}
