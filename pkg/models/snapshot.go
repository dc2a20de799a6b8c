package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Snapshot is the most recent observed state of a target. The store
// keeps the current snapshot plus the immediately-prior one so that a
// failed classification can be retried against the same committed pair.
type Snapshot struct {
	TargetID    string    `json:"target_id"`
	Fingerprint string    `json:"fingerprint"`
	CapturedAt  time.Time `json:"captured_at"`

	// RawRef points at the stored raw content for this snapshot. The
	// engine resolves it through the snapshot store when classification
	// needs the full content.
	RawRef string `json:"raw_ref"`
}

// Fingerprint computes the stable content digest used for cheap
// equality comparison between consecutive fetches.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)

	return hex.EncodeToString(sum[:])
}
