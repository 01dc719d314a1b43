package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a wrapper around math/big.Int that serializes as a decimal
// string in JSON and as raw big-endian bytes in CBOR.
type BigInt big.Int

// MathBigInt converts b to a math/big.Int.
func (b *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(b)
}

// SetBigInt sets b to the value of the given math/big.Int and returns it.
func (b *BigInt) SetBigInt(v *big.Int) *BigInt {
	(*big.Int)(b).Set(v)
	return b
}

func (b *BigInt) String() string {
	return (*big.Int)(b).String()
}

// MarshalText implements encoding.TextMarshaler, so JSON encoding uses the
// decimal string representation.
func (b BigInt) MarshalText() ([]byte, error) {
	return []byte((*big.Int)(&b).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BigInt) UnmarshalText(data []byte) error {
	if _, ok := (*big.Int)(b).SetString(string(data), 10); !ok {
		return fmt.Errorf("invalid big integer %q", data)
	}
	return nil
}

// MarshalCBOR encodes the value as its big-endian byte representation.
func (b BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal((*big.Int)(&b).Bytes())
}

// UnmarshalCBOR decodes a big-endian byte representation.
func (b *BigInt) UnmarshalCBOR(data []byte) error {
	var buf []byte
	if err := cbor.Unmarshal(data, &buf); err != nil {
		return err
	}
	(*big.Int)(b).SetBytes(buf)
	return nil
}
