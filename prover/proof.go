package prover

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
)

const publicInputLen = 32

// Proof is a generated proof together with the ordered public inputs the
// prover committed to. Transports carry it in the submission encoding.
type Proof struct {
	proof        groth16.Proof
	mock         bool
	PublicInputs []*big.Int
}

// submission flags
const (
	proofKindGroth16 = byte(0)
	proofKindMock    = byte(1)
)

// EncodeForSubmission serializes the proof for the wire:
//
//	kind(1) || numPublics(2) || publics(32 each) || proofLen(4) || proof
//
// Public inputs travel with the proof so the receiving ledger can rebuild
// the public assignment without trusting any side channel.
func (p *Proof) EncodeForSubmission() ([]byte, error) {
	var buf bytes.Buffer
	kind := proofKindGroth16
	if p.mock {
		kind = proofKindMock
	}
	buf.WriteByte(kind)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(p.PublicInputs))); err != nil {
		return nil, err
	}
	scratch := make([]byte, publicInputLen)
	for _, input := range p.PublicInputs {
		buf.Write(input.FillBytes(scratch))
	}
	var proofBytes bytes.Buffer
	if p.proof != nil {
		if _, err := p.proof.WriteTo(&proofBytes); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(&buf, binary.BigEndian, uint32(proofBytes.Len())); err != nil {
		return nil, err
	}
	buf.Write(proofBytes.Bytes())
	return buf.Bytes(), nil
}

// DecodeSubmission parses a wire-encoded proof.
func DecodeSubmission(data []byte) (*Proof, error) {
	r := bytes.NewReader(data)
	kind, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	var numPublics uint16
	if err := binary.Read(r, binary.BigEndian, &numPublics); err != nil {
		return nil, err
	}
	publics := make([]*big.Int, numPublics)
	scratch := make([]byte, publicInputLen)
	for i := range publics {
		if _, err := io.ReadFull(r, scratch); err != nil {
			return nil, err
		}
		publics[i] = new(big.Int).SetBytes(scratch)
	}
	var proofLen uint32
	if err := binary.Read(r, binary.BigEndian, &proofLen); err != nil {
		return nil, err
	}
	p := &Proof{PublicInputs: publics, mock: kind == proofKindMock}
	if proofLen > 0 {
		p.proof = groth16.NewProof(ecc.BN254)
		if _, err := p.proof.ReadFrom(r); err != nil {
			return nil, err
		}
	}
	return p, nil
}
