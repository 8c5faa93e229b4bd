package eligibility

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/test"
	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/davinci-dao/zk"
)

var testToken = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func TestCircuit(t *testing.T) {
	c := qt.New(t)
	assert := test.NewAssert(t)

	secret := big.NewInt(123456789)
	commitment, err := Commitment(ecc.BLS12_381, secret, testToken)
	c.Assert(err, qt.IsNil)

	assert.ProverSucceeded(&Circuit{}, &Circuit{
		Commitment: commitment,
		Token:      TokenElement(testToken),
		Secret:     secret,
	}, test.WithCurves(ecc.BLS12_381), test.WithBackends(backend.GROTH16))

	assert.ProverFailed(&Circuit{}, &Circuit{
		Commitment: commitment,
		Token:      TokenElement(testToken),
		Secret:     big.NewInt(1),
	}, test.WithCurves(ecc.BLS12_381), test.WithBackends(backend.GROTH16))
}

func TestProveAndVerify(t *testing.T) {
	c := qt.New(t)

	keys, err := Setup(ecc.BLS12_381)
	c.Assert(err, qt.IsNil)

	proof, publicInput, err := Prove(ecc.BLS12_381, keys.ProvingKey, big.NewInt(42), testToken)
	c.Assert(err, qt.IsNil)
	c.Assert(publicInput, qt.HasLen, 2*zk.FieldElementSize)

	v, err := zk.NewGroth16Verifier(ecc.BLS12_381, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(v.Verify(keys.VerifyingKey, proof, publicInput), qt.IsNil)

	// a proof for another token does not verify with this public input
	other := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	commitment, err := Commitment(ecc.BLS12_381, big.NewInt(42), other)
	c.Assert(err, qt.IsNil)
	wrongInput, err := PublicInput(commitment, other)
	c.Assert(err, qt.IsNil)
	c.Assert(v.Verify(keys.VerifyingKey, proof, wrongInput), qt.ErrorIs, zk.ErrInvalidProof)
}
