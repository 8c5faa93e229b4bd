package zk_test

import (
	"math/big"
	"sync"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/davinci-dao/circuits/eligibility"
	"github.com/vocdoni/davinci-dao/zk"
)

var token = common.HexToAddress("0x0000000000000000000000000000000000000123")

func TestGroth16Verifier(t *testing.T) {
	c := qt.New(t)

	keys, err := eligibility.Setup(ecc.BLS12_381)
	c.Assert(err, qt.IsNil)
	proof, publicInput, err := eligibility.Prove(ecc.BLS12_381, keys.ProvingKey, big.NewInt(7), token)
	c.Assert(err, qt.IsNil)

	v, err := zk.NewGroth16Verifier(ecc.BLS12_381, 4)
	c.Assert(err, qt.IsNil)
	c.Assert(v.Curve(), qt.Equals, ecc.BLS12_381)

	_, err = zk.ParseVerifyingKey(ecc.BLS12_381, keys.VerifyingKey)
	c.Assert(err, qt.IsNil)

	c.Run("valid", func(c *qt.C) {
		c.Assert(v.Verify(keys.VerifyingKey, proof, publicInput), qt.IsNil)
	})

	c.Run("concurrent", func(c *qt.C) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.Check(v.Verify(keys.VerifyingKey, proof, publicInput), qt.IsNil)
			}()
		}
		wg.Wait()
	})

	flip := func(b []byte, i int) []byte {
		out := append([]byte{}, b...)
		out[i] ^= 0x01
		return out
	}

	rejected := []struct {
		name        string
		vk          []byte
		proof       []byte
		publicInput []byte
	}{
		{"empty proof", keys.VerifyingKey, nil, publicInput},
		{"truncated proof", keys.VerifyingKey, proof[:len(proof)-1], publicInput},
		{"trailing proof bytes", keys.VerifyingKey, append(append([]byte{}, proof...), 0), publicInput},
		{"corrupted proof", keys.VerifyingKey, flip(proof, len(proof)/2), publicInput},
		{"empty public input", keys.VerifyingKey, proof, nil},
		{"missing public input", keys.VerifyingKey, proof, publicInput[:zk.FieldElementSize]},
		{"extra public input", keys.VerifyingKey, proof, append(append([]byte{}, publicInput...), make([]byte, 32)...)},
		{"odd public input length", keys.VerifyingKey, proof, publicInput[:40]},
		{"modified public input", keys.VerifyingKey, proof, flip(publicInput, len(publicInput)-1)},
		{"garbage verifying key", []byte("garbage"), proof, publicInput},
	}
	for _, tc := range rejected {
		c.Run(tc.name, func(c *qt.C) {
			c.Assert(v.Verify(tc.vk, tc.proof, tc.publicInput), qt.ErrorIs, zk.ErrInvalidProof)
		})
	}

	c.Run("other key", func(c *qt.C) {
		otherKeys, err := eligibility.Setup(ecc.BLS12_381)
		c.Assert(err, qt.IsNil)
		c.Assert(v.Verify(otherKeys.VerifyingKey, proof, publicInput), qt.ErrorIs, zk.ErrInvalidProof)
	})

	c.Run("other curve", func(c *qt.C) {
		bn, err := zk.NewGroth16Verifier(ecc.BN254, 0)
		c.Assert(err, qt.IsNil)
		c.Assert(bn.Verify(keys.VerifyingKey, proof, publicInput), qt.ErrorIs, zk.ErrInvalidProof)
	})
}
