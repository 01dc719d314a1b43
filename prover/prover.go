// Package prover orchestrates proof generation and verification for the
// pool's statements. A Backend hides the proving system: the Groth16 backend
// compiles and does trusted setup once per circuit shape and caches the
// artifacts, while the mock backend only checks witness satisfiability and
// is meant for tests and local pipelines.
package prover

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	fr_bn254 "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"go.vocdoni.io/dvote/log"
)

var (
	// ErrProvingFailed wraps any failure between witness construction and
	// proof generation.
	ErrProvingFailed = errors.New("proving failed")
	// ErrVerificationFailed is returned when a proof does not verify
	// against the claimed public inputs.
	ErrVerificationFailed = errors.New("proof verification failed")
)

// Backend generates and checks proofs for a circuit. The placeholder fixes
// the circuit shape (notably the tree depth); the assignment carries the
// witness values.
type Backend interface {
	Prove(placeholder, assignment frontend.Circuit) (*Proof, error)
	Verify(proof *Proof, publicAssignment frontend.Circuit) error
}

// ArtifactCache persists compiled constraint systems and setup keys between
// runs, so the backend does not redo trusted setup on every start.
type ArtifactCache interface {
	LoadArtifacts(name string) (constraint.ConstraintSystem, groth16.ProvingKey, groth16.VerifyingKey, error)
	SaveArtifacts(name string, ccs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey) error
}

// Shaped is implemented by circuits whose constraint shape depends on
// parameters beyond their Go type, such as the accumulator depth. Without
// it, two shapes of the same type would share cached artifacts.
type Shaped interface {
	ShapeID() string
}

// circuitKey identifies a circuit shape for artifact caching.
func circuitKey(placeholder frontend.Circuit) string {
	key := fmt.Sprintf("%T", placeholder)
	if s, ok := placeholder.(Shaped); ok {
		key = fmt.Sprintf("%s@%s", key, s.ShapeID())
	}
	return key
}

// Groth16 is the production backend. Compilation and setup happen lazily on
// first use of each circuit shape and are reused afterwards.
type Groth16 struct {
	mu        sync.Mutex
	artifacts map[string]*groth16Artifact
	cache     ArtifactCache
}

type groth16Artifact struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// NewGroth16 creates an empty backend; circuits are compiled on demand.
func NewGroth16() *Groth16 {
	return &Groth16{artifacts: make(map[string]*groth16Artifact)}
}

// NewGroth16WithCache creates a backend that loads compiled artifacts from
// the cache and stores freshly generated ones into it.
func NewGroth16WithCache(cache ArtifactCache) *Groth16 {
	return &Groth16{artifacts: make(map[string]*groth16Artifact), cache: cache}
}

func (g *Groth16) artifact(placeholder frontend.Circuit) (*groth16Artifact, error) {
	key := circuitKey(placeholder)
	g.mu.Lock()
	defer g.mu.Unlock()
	if a, ok := g.artifacts[key]; ok {
		return a, nil
	}
	if g.cache != nil {
		ccs, pk, vk, err := g.cache.LoadArtifacts(key)
		if err == nil {
			log.Infow("loaded circuit artifacts", "circuit", key)
			a := &groth16Artifact{ccs: ccs, pk: pk, vk: vk}
			g.artifacts[key] = a
			return a, nil
		}
	}
	log.Infow("compiling circuit", "circuit", key)
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, placeholder)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", key, err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("failed to setup %s: %w", key, err)
	}
	log.Infow("circuit ready", "circuit", key, "constraints", ccs.GetNbConstraints())
	if g.cache != nil {
		if err := g.cache.SaveArtifacts(key, ccs, pk, vk); err != nil {
			log.Warnw("failed to persist circuit artifacts", "circuit", key, "err", err.Error())
		}
	}
	a := &groth16Artifact{ccs: ccs, pk: pk, vk: vk}
	g.artifacts[key] = a
	return a, nil
}

// Prove builds a full witness from the assignment and generates a proof.
func (g *Groth16) Prove(placeholder, assignment frontend.Circuit) (*Proof, error) {
	a, err := g.artifact(placeholder)
	if err != nil {
		return nil, err
	}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create witness: %v", ErrProvingFailed, err)
	}
	proof, err := groth16.Prove(a.ccs, a.pk, witness)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvingFailed, err)
	}
	publics, err := publicInputs(assignment)
	if err != nil {
		return nil, err
	}
	return &Proof{proof: proof, PublicInputs: publics}, nil
}

// Verify checks a proof against the public assignment.
func (g *Groth16) Verify(proof *Proof, publicAssignment frontend.Circuit) error {
	a, err := g.artifact(publicAssignment)
	if err != nil {
		return err
	}
	if proof.proof == nil {
		return fmt.Errorf("%w: proof was not produced by this backend", ErrVerificationFailed)
	}
	publicWitness, err := frontend.NewWitness(publicAssignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("%w: failed to build public witness: %v", ErrVerificationFailed, err)
	}
	if err := groth16.Verify(proof.proof, a.vk, publicWitness); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	return nil
}

// publicInputs extracts the ordered public inputs from a full assignment.
func publicInputs(assignment frontend.Circuit) ([]*big.Int, error) {
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return nil, err
	}
	vector, ok := w.Vector().(fr_bn254.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected witness vector type %T", w.Vector())
	}
	publics := make([]*big.Int, len(vector))
	for i := range vector {
		publics[i] = vector[i].BigInt(new(big.Int))
	}
	return publics, nil
}
