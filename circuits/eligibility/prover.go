package eligibility

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/davinci-dao/log"
	"github.com/vocdoni/davinci-dao/zk"
)

// Keys holds the serialized groth16 keys of the circuit.
type Keys struct {
	Curve        ecc.ID
	ProvingKey   []byte
	VerifyingKey []byte
}

// Compile compiles the circuit for curve.
func Compile(curve ecc.ID) (constraint.ConstraintSystem, error) {
	ccs, err := frontend.Compile(curve.ScalarField(), r1cs.NewBuilder, &Circuit{})
	if err != nil {
		return nil, fmt.Errorf("could not compile eligibility circuit: %w", err)
	}
	return ccs, nil
}

// Setup runs a groth16 setup for the circuit. The toxic waste is random and
// discarded, which is fine for tests and local networks only.
func Setup(curve ecc.ID) (*Keys, error) {
	ccs, err := Compile(curve)
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}
	var pkBuf, vkBuf bytes.Buffer
	if _, err := pk.WriteTo(&pkBuf); err != nil {
		return nil, fmt.Errorf("could not encode proving key: %w", err)
	}
	if _, err := vk.WriteTo(&vkBuf); err != nil {
		return nil, fmt.Errorf("could not encode verifying key: %w", err)
	}
	log.Debugw("eligibility circuit setup done",
		"curve", curve.String(),
		"constraints", ccs.GetNbConstraints(),
		"vkSize", vkBuf.Len())
	return &Keys{Curve: curve, ProvingKey: pkBuf.Bytes(), VerifyingKey: vkBuf.Bytes()}, nil
}

// PublicInput returns the serialized public input of the circuit.
func PublicInput(commitment *big.Int, token common.Address) ([]byte, error) {
	return zk.EncodePublicInputs(commitment, TokenElement(token))
}

// Prove generates a proof of knowledge of secret for token with the given
// serialized proving key. It returns the serialized proof and public input
// ready to be attached to a vote.
func Prove(curve ecc.ID, provingKey []byte, secret *big.Int, token common.Address) ([]byte, []byte, error) {
	ccs, err := Compile(curve)
	if err != nil {
		return nil, nil, err
	}
	pk := groth16.NewProvingKey(curve)
	if _, err := pk.UnsafeReadFrom(bytes.NewReader(provingKey)); err != nil {
		return nil, nil, fmt.Errorf("could not decode proving key: %w", err)
	}
	commitment, err := Commitment(curve, secret, token)
	if err != nil {
		return nil, nil, err
	}
	assignment := &Circuit{
		Commitment: commitment,
		Token:      TokenElement(token),
		Secret:     new(big.Int).Mod(secret, curve.ScalarField()),
	}
	w, err := frontend.NewWitness(assignment, curve.ScalarField())
	if err != nil {
		return nil, nil, fmt.Errorf("could not create witness: %w", err)
	}
	proof, err := groth16.Prove(ccs, pk, w)
	if err != nil {
		return nil, nil, fmt.Errorf("could not generate proof: %w", err)
	}
	var proofBuf bytes.Buffer
	if _, err := proof.WriteTo(&proofBuf); err != nil {
		return nil, nil, fmt.Errorf("could not encode proof: %w", err)
	}
	publicInput, err := PublicInput(commitment, token)
	if err != nil {
		return nil, nil, err
	}
	return proofBuf.Bytes(), publicInput, nil
}
