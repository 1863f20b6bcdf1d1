// Package idhash computes deterministic identifiers so that re-processing
// the same inputs never creates duplicate records.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// PositionID computes a deterministic position id.
// Formula: SHA256(mint|entry_signature).
func PositionID(mint, entrySignature string) string {
	return hash(fmt.Sprintf("%s|%s", mint, entrySignature))
}

// TradeID computes a deterministic trade id.
// Formula: SHA256(mint|side|signature|executed_at_ms).
func TradeID(mint, side, signature string, executedAtMs int64) string {
	return hash(fmt.Sprintf("%s|%s|%s|%d", mint, side, signature, executedAtMs))
}

// RequestID computes the id of one submission request. All retry attempts
// of the same signed payload share it.
// Formula: SHA256(mint|side|blockhash|size_lamports).
func RequestID(mint, side, blockhash string, sizeLamports uint64) string {
	return hash(fmt.Sprintf("%s|%s|%s|%d", mint, side, blockhash, sizeLamports))
}

func hash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
