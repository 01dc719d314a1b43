package note

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/zknote/shieldpool/crypto/ecc/bjj"
)

// Memo layout: ephemeralPubKey(32) || nonce(12) || ciphertext+tag(120).
// The plaintext is amount(8) || blinding(32) || secret(32) || preimage(32).
const (
	memoPlaintextLen = 8 + 32 + 32 + 32
	memoKeyLen       = 32
	// MemoLen is the fixed length of an encrypted memo.
	MemoLen = memoKeyLen + chacha20poly1305.NonceSize + memoPlaintextLen + chacha20poly1305.Overhead
)

// ErrMemoMalformed is returned when a memo has the wrong length or cannot be
// parsed.
var ErrMemoMalformed = errors.New("malformed memo")

// EncryptMemo encrypts the note's secret fields for its owner: an ephemeral
// ECDH exchange over the curve derives an AEAD key, so only the holder of
// the owner's private key can open the payload.
func EncryptMemo(n *Note) ([]byte, error) {
	eph, err := RandomScalar()
	if err != nil {
		return nil, err
	}
	ephPub := bjj.New()
	ephPub.ScalarBaseMult(eph)

	shared := bjj.New()
	shared.ScalarMult(n.OwnerKey, eph)
	key := sha256.Sum256(shared.Marshal())

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	plaintext := make([]byte, memoPlaintextLen)
	binary.BigEndian.PutUint64(plaintext[0:8], n.Amount)
	n.Blinding.FillBytes(plaintext[8:40])
	n.Secret.FillBytes(plaintext[40:72])
	n.NullifierPreimage.FillBytes(plaintext[72:104])

	memo := make([]byte, 0, MemoLen)
	memo = append(memo, ephPub.Marshal()...)
	memo = append(memo, nonce...)
	memo = aead.Seal(memo, nonce, plaintext, nil)
	if len(memo) != MemoLen {
		return nil, fmt.Errorf("memo has unexpected length %d", len(memo))
	}
	return memo, nil
}

// DecryptMemo opens a memo with the recipient's private key. It fails if the
// memo is malformed or not addressed to this key.
func DecryptMemo(memo []byte, privateKey *big.Int) (*Plaintext, error) {
	if len(memo) != MemoLen {
		return nil, ErrMemoMalformed
	}
	ephPub := bjj.New()
	if err := ephPub.Unmarshal(memo[:memoKeyLen]); err != nil {
		return nil, ErrMemoMalformed
	}
	shared := bjj.New()
	shared.ScalarMult(ephPub, privateKey)
	key := sha256.Sum256(shared.Marshal())

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	nonce := memo[memoKeyLen : memoKeyLen+chacha20poly1305.NonceSize]
	plaintext, err := aead.Open(nil, nonce, memo[memoKeyLen+chacha20poly1305.NonceSize:], nil)
	if err != nil {
		return nil, err
	}
	return &Plaintext{
		Amount:            binary.BigEndian.Uint64(plaintext[0:8]),
		Blinding:          new(big.Int).SetBytes(plaintext[8:40]),
		Secret:            new(big.Int).SetBytes(plaintext[40:72]),
		NullifierPreimage: new(big.Int).SetBytes(plaintext[72:104]),
	}, nil
}

// TryDecryptMemo is the note-discovery entry point: it attempts a trial
// decryption and reports (nil, false) when the memo is not addressed to the
// given key. This is the one place where a decryption failure is routine,
// not an error.
func TryDecryptMemo(memo []byte, privateKey *big.Int) (*Plaintext, bool) {
	p, err := DecryptMemo(memo, privateKey)
	if err != nil {
		return nil, false
	}
	return p, true
}
