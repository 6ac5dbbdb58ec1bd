// Package idhash computes deterministic identifiers so that identical
// inputs always produce identical IDs across runs and machines.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"backtest-lab/internal/domain"
)

// ComputeTemplateID computes a deterministic template_id using SHA256.
// Formula: SHA256(symbol|entry_ts_utc_ms|direction)
// Returns hex-encoded hash (64 characters).
func ComputeTemplateID(symbol string, entryTS time.Time, direction domain.Direction) string {
	data := fmt.Sprintf("%s|%d|%s",
		symbol,
		entryTS.UTC().UnixMilli(),
		string(direction),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
