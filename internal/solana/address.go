// Package solana validates token contract addresses before signals
// enter the pipeline.
package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateTokenAddress checks that addr is a well-formed Solana mint
// address: base58, 32 bytes, and a valid ed25519 curve point. Mint
// accounts are keypair-derived, so off-curve addresses are rejected.
func ValidateTokenAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("empty address")
	}

	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("address must be 32 bytes, got %d", len(raw))
	}
	if !isOnCurve(raw) {
		return fmt.Errorf("address is not on the ed25519 curve")
	}
	return nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
