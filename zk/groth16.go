package zk

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vocdoni/davinci-dao/log"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of parsed verifying keys kept in memory.
const DefaultCacheSize = 128

// Groth16Verifier verifies gnark groth16 proofs on a single curve. Parsed
// verifying keys are cached by the sha256 of their serialization.
type Groth16Verifier struct {
	curve ecc.ID
	cache *lru.Cache[[32]byte, groth16.VerifyingKey]
	group singleflight.Group
}

// NewGroth16Verifier returns a verifier for curve. A cacheSize of zero or
// less uses DefaultCacheSize.
func NewGroth16Verifier(curve ecc.ID, cacheSize int) (*Groth16Verifier, error) {
	if curve != ecc.BLS12_381 && curve != ecc.BN254 {
		return nil, fmt.Errorf("unsupported curve %s", curve)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[[32]byte, groth16.VerifyingKey](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create verifying key cache: %w", err)
	}
	return &Groth16Verifier{curve: curve, cache: cache}, nil
}

// Curve returns the curve of the verifier.
func (v *Groth16Verifier) Curve() ecc.ID {
	return v.curve
}

// ParseVerifyingKey decodes a serialized groth16 verifying key for curve,
// checking that its points are on the curve and in the right subgroup.
func ParseVerifyingKey(curve ecc.ID, data []byte) (vk groth16.VerifyingKey, err error) {
	defer func() {
		if r := recover(); r != nil {
			vk, err = nil, fmt.Errorf("%w: %v", ErrInvalidVerifyingKey, r)
		}
	}()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidVerifyingKey)
	}
	vk = groth16.NewVerifyingKey(curve)
	n, err := vk.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerifyingKey, err)
	}
	if n != int64(len(data)) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidVerifyingKey, int64(len(data))-n)
	}
	return vk, nil
}

// verifyingKey returns the parsed key, from the cache when possible.
// Concurrent misses for the same key are parsed only once.
func (v *Groth16Verifier) verifyingKey(data []byte) (groth16.VerifyingKey, error) {
	id := sha256.Sum256(data)
	if vk, ok := v.cache.Get(id); ok {
		return vk, nil
	}
	res, err, _ := v.group.Do(string(id[:]), func() (any, error) {
		vk, err := ParseVerifyingKey(v.curve, data)
		if err != nil {
			return nil, err
		}
		v.cache.Add(id, vk)
		return vk, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(groth16.VerifyingKey), nil
}

// ValidateVerifyingKey implements KeyValidator. Valid keys are kept in the
// cache for the verifications that follow.
func (v *Groth16Verifier) ValidateVerifyingKey(vk []byte) error {
	_, err := v.verifyingKey(vk)
	return err
}

// Verify implements Verifier.
func (v *Groth16Verifier) Verify(vkData, proofData, publicInput []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: verifier panic: %v", ErrInvalidProof, r)
		}
		if err != nil {
			log.Debugw("proof rejected", "curve", v.curve.String(), "error", err.Error())
		}
	}()
	if len(proofData) == 0 {
		return fmt.Errorf("%w: empty proof", ErrInvalidProof)
	}
	vk, err := v.verifyingKey(vkData)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}

	proof := groth16.NewProof(v.curve)
	n, err := proof.ReadFrom(bytes.NewReader(proofData))
	if err != nil {
		return fmt.Errorf("%w: could not decode proof: %v", ErrInvalidProof, err)
	}
	if n != int64(len(proofData)) {
		return fmt.Errorf("%w: %d trailing bytes after proof", ErrInvalidProof, int64(len(proofData))-n)
	}

	inputs, err := DecodePublicInputs(v.curve, publicInput)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if len(inputs) != vk.NbPublicWitness() {
		return fmt.Errorf("%w: got %d public inputs, verifying key expects %d",
			ErrInvalidProof, len(inputs), vk.NbPublicWitness())
	}
	pubWitness, err := publicWitness(v.curve, inputs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if err := groth16.Verify(proof, vk, pubWitness); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return nil
}

func publicWitness(curve ecc.ID, inputs []*big.Int) (witness.Witness, error) {
	w, err := witness.New(curve.ScalarField())
	if err != nil {
		return nil, err
	}
	values := make(chan any, len(inputs))
	for _, in := range inputs {
		values <- in
	}
	close(values)
	if err := w.Fill(len(inputs), 0, values); err != nil {
		return nil, fmt.Errorf("could not build public witness: %w", err)
	}
	return w, nil
}
