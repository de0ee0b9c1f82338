// Package idhash derives deterministic identifiers with SHA256. The same
// inputs always produce the same ID, which makes duplicate detection a
// key comparison in storage.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSignalID computes a deterministic signal_id.
// Formula: SHA256(token|contract_address|timestamp_ms)
// Returns hex-encoded hash (64 characters).
func ComputeSignalID(token, contractAddress string, timestampMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", token, contractAddress, timestampMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputePositionID computes a deterministic position_id from the signal
// that opened it and the open time.
// Formula: SHA256(signal_id|opened_at_ms)
func ComputePositionID(signalID string, openedAtMs int64) string {
	data := fmt.Sprintf("%s|%d", signalID, openedAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
