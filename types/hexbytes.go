package types

import (
	"encoding/hex"
	"fmt"
)

// HexBytes is a byte slice that marshals as a 0x-prefixed hex string.
type HexBytes []byte

func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

// MarshalText implements encoding.TextMarshaler.
func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The 0x prefix is
// optional.
func (b *HexBytes) UnmarshalText(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex bytes %q: %w", data, err)
	}
	*b = decoded
	return nil
}
