// Package poseidon wraps the circom-compatible Poseidon implementation used
// by the whole protocol. The per-arity round constants and MDS matrices live
// in the upstream library; the in-circuit gadget uses the same
// parameterization, so hashes computed here match the circuit bit-exactly.
package poseidon

import (
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

// Hash2 hashes two field elements. Used for Merkle tree nodes.
func Hash2(a, b *big.Int) (*big.Int, error) {
	return poseidon.Hash([]*big.Int{a, b})
}

// Hash3 hashes three field elements. Used for nullifiers.
func Hash3(a, b, c *big.Int) (*big.Int, error) {
	return poseidon.Hash([]*big.Int{a, b, c})
}

// Hash5 hashes five field elements. Used for note commitments.
func Hash5(a, b, c, d, e *big.Int) (*big.Int, error) {
	return poseidon.Hash([]*big.Int{a, b, c, d, e})
}
