package note

import (
	"crypto/rand"
	"math/big"

	"github.com/zknote/shieldpool/crypto/ecc"
	"github.com/zknote/shieldpool/crypto/ecc/bjj"
)

// secretByteLen bounds secrets and nullifier preimages to 31 bytes so they
// always fit the field without reduction.
const secretByteLen = 31

// KeyPair is a note-ownership keypair: a scalar below the subgroup order and
// its fixed-base public key.
type KeyPair struct {
	PrivateKey *big.Int
	PublicKey  ecc.Point
}

// GenerateKeyPair samples a private scalar uniformly below the subgroup
// order and derives the public key.
func GenerateKeyPair() (*KeyPair, error) {
	sk, err := RandomScalar()
	if err != nil {
		return nil, err
	}
	pk := bjj.New()
	pk.ScalarBaseMult(sk)
	return &KeyPair{PrivateKey: sk, PublicKey: pk}, nil
}

// RandomScalar samples a uniform scalar in [1, order).
func RandomScalar() (*big.Int, error) {
	order := bjj.New().Order()
	s, err := rand.Int(rand.Reader, order)
	if err != nil {
		return nil, err
	}
	if s.Sign() == 0 {
		s.SetInt64(1)
	}
	return s, nil
}

// RandomFieldSecret samples a 31-byte random value, guaranteed to be a
// reduced field element.
func RandomFieldSecret() (*big.Int, error) {
	buf := make([]byte, secretByteLen)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(buf), nil
}
