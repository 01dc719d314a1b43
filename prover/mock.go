package prover

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
)

// Mock is a Backend that runs the circuit solver instead of a proving
// system. Proving succeeds exactly when the witness satisfies the
// constraints, so the ledger pipeline behaves as in production, minus the
// setup and pairing cost. Not sound against adversarial provers.
type Mock struct{}

// NewMock returns the test backend.
func NewMock() *Mock { return &Mock{} }

// Prove checks that the assignment satisfies the circuit and records its
// public inputs.
func (m *Mock) Prove(placeholder, assignment frontend.Circuit) (*Proof, error) {
	if err := test.IsSolved(placeholder, assignment, ecc.BN254.ScalarField()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvingFailed, err)
	}
	publics, err := publicInputs(assignment)
	if err != nil {
		return nil, err
	}
	return &Proof{mock: true, PublicInputs: publics}, nil
}

// Verify accepts mock proofs whose recorded public inputs match the claimed
// public assignment.
func (m *Mock) Verify(proof *Proof, publicAssignment frontend.Circuit) error {
	if !proof.mock {
		return fmt.Errorf("%w: not a mock proof", ErrVerificationFailed)
	}
	claimed, err := publicInputs(publicAssignment)
	if err != nil {
		return err
	}
	if len(claimed) != len(proof.PublicInputs) {
		return fmt.Errorf("%w: public input count mismatch", ErrVerificationFailed)
	}
	for i := range claimed {
		if claimed[i].Cmp(proof.PublicInputs[i]) != 0 {
			return fmt.Errorf("%w: public input %d mismatch", ErrVerificationFailed, i)
		}
	}
	return nil
}
