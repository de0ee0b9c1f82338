package solana

import "testing"

func TestValidateTokenAddress(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		// System program: 32 zero bytes, a valid curve point.
		{"system program", "11111111111111111111111111111111", false},
		// Wrapped SOL mint.
		{"wrapped sol", "So11111111111111111111111111111111111111112", false},
		// USDC mint.
		{"usdc", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", false},
		{"empty", "", true},
		{"not base58", "0OIl+/=", true},
		{"too short", "abc", true},
		{"too long", "1111111111111111111111111111111111111111111111111111", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTokenAddress(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTokenAddress(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}
