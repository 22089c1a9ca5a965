package solana

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// NativeMint is the wrapped-SOL mint. The reference asset is identified by it
// whether it moved as lamports or as a wrapped token.
const NativeMint = "So11111111111111111111111111111111111111112"

const LamportsPerSOL = 1_000_000_000

var ErrInvalidAddress = errors.New("invalid solana address")

// ValidateAddress checks that s is a base58-encoded 32-byte public key.
func ValidateAddress(s string) error {
	if len(s) < 32 || len(s) > 44 {
		return fmt.Errorf("%w: length %d out of range [32, 44]", ErrInvalidAddress, len(s))
	}
	b, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(b) != 32 {
		return fmt.Errorf("%w: decodes to %d bytes, want 32", ErrInvalidAddress, len(b))
	}
	return nil
}

func IsNative(mint string) bool { return mint == NativeMint }
