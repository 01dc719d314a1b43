package pedersen

import (
	"encoding/binary"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/zknote/shieldpool/crypto/ecc"
	"github.com/zknote/shieldpool/crypto/ecc/bjj"
)

// hDomain is the domain-separation string for deriving the blinding
// generator H. H must have an unknown discrete log with respect to G, so it
// is derived from a hash rather than chosen: nobody who can compute
// Keccak256 preimages is assumed to exist.
const hDomain = "shieldpool/pedersen/H/v1"

var (
	// G is the value generator: the curve's standard base point.
	G ecc.Point
	// H is the blinding generator, derived via hash-to-curve over hDomain.
	H ecc.Point
)

func init() {
	G = bjj.New()
	G.SetGenerator()
	var err error
	if H, err = deriveH(); err != nil {
		panic(fmt.Sprintf("pedersen: cannot derive H generator: %v", err))
	}
}

// deriveH maps the domain string to a prime-order subgroup point by hashing
// counter-mode candidates until one decompresses to a curve point, then
// clearing the cofactor. Candidates whose masked bytes are not a canonical
// field element are skipped, and the decompressed root is normalized to the
// smaller of ±x, so the mapping is fixed by the curve equation alone rather
// than by decoder conventions. The loop is deterministic, so every build
// derives the exact same H.
func deriveH() (ecc.Point, error) {
	identity := bjj.New()
	identity.SetZero()
	modulus := bjj.FieldModulus()
	halfModulus := new(big.Int).Rsh(modulus, 1)
	var counter [8]byte
	for i := uint64(0); i < 256; i++ {
		binary.BigEndian.PutUint64(counter[:], i)
		candidate := ethcrypto.Keccak256([]byte(hDomain), counter[:])
		y := new(big.Int).SetBytes(candidate)
		y.SetBit(y, 255, 0)
		if y.Cmp(modulus) >= 0 {
			continue
		}
		p := bjj.New()
		if err := p.Unmarshal(candidate); err != nil {
			continue
		}
		if x, _ := p.Point(); x.Cmp(halfModulus) > 0 {
			p.Neg(p)
		}
		// clear the cofactor: 8·P lands in the prime-order subgroup
		p.Add(p, p)
		p.Add(p, p)
		p.Add(p, p)
		if p.Equal(identity) || !p.InSubGroup() {
			continue
		}
		return p, nil
	}
	return nil, fmt.Errorf("no valid candidate found after 256 attempts")
}
