// Package eligibility is a reference circuit for the eligibility proofs
// checked by the election program. A voter proves knowledge of a secret
// whose MiMC hash with the eligibility token equals a public commitment,
// without revealing the secret.
package eligibility

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	bls12381mimc "github.com/consensys/gnark-crypto/ecc/bls12-381/fr/mimc"
	bn254mimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/ethereum/go-ethereum/common"
)

// Circuit proves MiMC(Secret, Token) == Commitment. Commitment and Token are
// public, in that order.
type Circuit struct {
	Commitment frontend.Variable `gnark:",public"`
	Token      frontend.Variable `gnark:",public"`
	Secret     frontend.Variable
}

// Define implements frontend.Circuit.
func (c *Circuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return fmt.Errorf("could not create mimc hasher: %w", err)
	}
	h.Write(c.Secret, c.Token)
	api.AssertIsEqual(h.Sum(), c.Commitment)
	return nil
}

// TokenElement returns the field element representing an eligibility token.
func TokenElement(token common.Address) *big.Int {
	return new(big.Int).SetBytes(token.Bytes())
}

// Commitment computes natively the public commitment for secret and token on
// curve. The secret is reduced modulo the scalar field.
func Commitment(curve ecc.ID, secret *big.Int, token common.Address) (*big.Int, error) {
	var h interface {
		Write([]byte) (int, error)
		Sum([]byte) []byte
	}
	switch curve {
	case ecc.BLS12_381:
		h = bls12381mimc.NewMiMC()
	case ecc.BN254:
		h = bn254mimc.NewMiMC()
	default:
		return nil, fmt.Errorf("unsupported curve %s", curve)
	}
	modulus := curve.ScalarField()
	for _, in := range []*big.Int{new(big.Int).Mod(secret, modulus), TokenElement(token)} {
		if _, err := h.Write(in.FillBytes(make([]byte, 32))); err != nil {
			return nil, fmt.Errorf("could not hash input: %w", err)
		}
	}
	return new(big.Int).SetBytes(h.Sum(nil)), nil
}
