// Package zk verifies the zero-knowledge eligibility proofs attached to
// votes. The election program only depends on the Verifier interface; the
// default implementation checks groth16 proofs with gnark.
package zk

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
)

var (
	// ErrInvalidProof is returned (wrapped) for every rejected proof,
	// including malformed proofs, public inputs or verifying keys.
	ErrInvalidProof = errors.New("invalid proof")
	// ErrInvalidVerifyingKey is returned when a verifying key can not be
	// parsed for the configured curve.
	ErrInvalidVerifyingKey = errors.New("invalid verifying key")
)

// FieldElementSize is the size of each public input element: a big-endian
// scalar field element left padded to 32 bytes.
const FieldElementSize = 32

// Verifier checks a proof against a verifying key and its public input. It
// returns nil to admit the proof or an error wrapping ErrInvalidProof. It
// must be safe for concurrent use and free of side effects.
type Verifier interface {
	Verify(vk, proof, publicInput []byte) error
}

// KeyValidator is implemented by verifiers that can check a verifying key
// before any proof is verified against it.
type KeyValidator interface {
	ValidateVerifyingKey(vk []byte) error
}

// ParseCurve returns the curve identifier for the names accepted in the
// configuration.
func ParseCurve(name string) (ecc.ID, error) {
	switch name {
	case "bls12_381", "bls12-381", "BLS12_381":
		return ecc.BLS12_381, nil
	case "bn254", "BN254":
		return ecc.BN254, nil
	default:
		return ecc.UNKNOWN, fmt.Errorf("unsupported curve %q", name)
	}
}

// EncodePublicInputs serializes the public inputs as concatenated 32 byte
// big-endian elements. Every element must be non-negative and fit in 32
// bytes.
func EncodePublicInputs(inputs ...*big.Int) ([]byte, error) {
	out := make([]byte, len(inputs)*FieldElementSize)
	for i, in := range inputs {
		if in.Sign() < 0 || in.BitLen() > FieldElementSize*8 {
			return nil, fmt.Errorf("public input %d out of range", i)
		}
		in.FillBytes(out[i*FieldElementSize : (i+1)*FieldElementSize])
	}
	return out, nil
}

// DecodePublicInputs splits data into field elements of the scalar field of
// curve. Elements that are not canonical (greater or equal than the modulus)
// are rejected.
func DecodePublicInputs(curve ecc.ID, data []byte) ([]*big.Int, error) {
	if len(data)%FieldElementSize != 0 {
		return nil, fmt.Errorf("public input length %d is not a multiple of %d", len(data), FieldElementSize)
	}
	modulus := curve.ScalarField()
	inputs := make([]*big.Int, 0, len(data)/FieldElementSize)
	for i := 0; i < len(data); i += FieldElementSize {
		v := new(big.Int).SetBytes(data[i : i+FieldElementSize])
		if v.Cmp(modulus) >= 0 {
			return nil, fmt.Errorf("public input %d is not a canonical field element", i/FieldElementSize)
		}
		inputs = append(inputs, v)
	}
	return inputs, nil
}
