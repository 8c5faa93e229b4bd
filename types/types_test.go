package types

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/holiman/uint256"
)

func TestDeriveAddress(t *testing.T) {
	c := qt.New(t)
	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob := common.HexToAddress("0x2222222222222222222222222222222222222222")

	c.Assert(ElectionAddress(alice), qt.Equals, ElectionAddress(alice))
	c.Assert(ElectionAddress(alice), qt.Not(qt.Equals), ElectionAddress(bob))
	c.Assert(ElectionAddress(alice), qt.Not(qt.Equals), ChangeableTokenAddress(alice))
	c.Assert(ElectionAddress(alice), qt.Not(qt.Equals), UserAddress(alice))
	c.Assert(DeriveAddress(UserTag, bob), qt.Equals, UserAddress(bob))
}

func TestTally(t *testing.T) {
	c := qt.New(t)

	tally := NewTally()
	c.Assert(tally.Add(true, uint256.NewInt(1)), qt.IsNil)
	c.Assert(tally.Add(false, uint256.NewInt(1)), qt.IsNil)
	c.Assert(tally.NumberOfVotes, qt.Equals, uint64(2))
	c.Assert(tally.YesVotes, qt.Equals, uint64(1))
	c.Assert(tally.NoVotes, qt.Equals, uint64(1))
	c.Assert(tally.Passed(), qt.IsFalse)

	c.Assert(tally.Add(true, uint256.NewInt(5)), qt.IsNil)
	c.Assert(tally.YesWeight.Uint64(), qt.Equals, uint64(6))
	c.Assert(tally.Passed(), qt.IsTrue)

	top := new(uint256.Int).SetAllOne()
	before := tally
	err := tally.Add(true, top)
	c.Assert(err, qt.ErrorIs, ErrCounterOverflow)
	c.Assert(err, qt.ErrorMatches, "counter overflow: yes weight")
	c.Assert(tally, qt.DeepEquals, before)

	// an empty tally never passes
	var zero Tally
	c.Assert(zero.Passed(), qt.IsFalse)
	c.Assert(zero.Add(false, top), qt.IsNil)
	c.Assert(zero.NoWeight.Eq(top), qt.IsTrue)
}

func TestTallyLargeWeights(t *testing.T) {
	c := qt.New(t)

	// 20 tokens with 18 decimals do not fit in 64 bits
	balance := uint256.MustFromDecimal("20000000000000000000")
	tally := NewTally()
	c.Assert(tally.Add(true, balance), qt.IsNil)
	c.Assert(tally.Add(true, balance), qt.IsNil)
	c.Assert(tally.Add(false, uint256.NewInt(1)), qt.IsNil)
	c.Assert(tally.YesWeight.Dec(), qt.Equals, "40000000000000000000")
	c.Assert(tally.Passed(), qt.IsTrue)

	data, err := json.Marshal(&Election{ID: "x", Tally: tally})
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Contains, `"yesWeight":"40000000000000000000"`)
	c.Assert(string(data), qt.Contains, `"noWeight":"1"`)

	var decoded Election
	c.Assert(json.Unmarshal(data, &decoded), qt.IsNil)
	c.Assert(decoded.Tally.YesWeight.Eq(tally.YesWeight), qt.IsTrue)
}

func TestElectionStatusJSON(t *testing.T) {
	c := qt.New(t)

	e := &Election{ID: "x", Status: ElectionStatusSummarized, VerifyingKey: HexBytes{0xab, 0xcd}}
	data, err := json.Marshal(e)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Contains, `"status":"summarized"`)
	c.Assert(string(data), qt.Contains, `"verifyingKey":"0xabcd"`)

	var decoded Election
	c.Assert(json.Unmarshal(data, &decoded), qt.IsNil)
	c.Assert(decoded.Status, qt.Equals, ElectionStatusSummarized)
	c.Assert(decoded.VerifyingKey, qt.DeepEquals, HexBytes{0xab, 0xcd})

	c.Assert(json.Unmarshal([]byte(`{"status":"closed"}`), &decoded), qt.ErrorMatches, `.*unknown election status.*`)
}

func TestHexBytesJSON(t *testing.T) {
	c := qt.New(t)

	var b HexBytes
	c.Assert(json.Unmarshal([]byte(`"0x0102"`), &b), qt.IsNil)
	c.Assert(b, qt.DeepEquals, HexBytes{0x01, 0x02})
	c.Assert(json.Unmarshal([]byte(`"0304"`), &b), qt.IsNil)
	c.Assert(b.String(), qt.Equals, "0x0304")
	c.Assert(json.Unmarshal([]byte(`"zz"`), &b), qt.IsNotNil)
	c.Assert(json.Unmarshal([]byte(`12`), &b), qt.IsNotNil)
}

func TestSignedMessage(t *testing.T) {
	c := qt.New(t)

	req := VoteRequest{ElectionID: "e1", Choice: true, Proof: HexBytes{1}, PublicInput: HexBytes{2}}
	msg, err := req.SignedMessage()
	c.Assert(err, qt.IsNil)

	// the signature itself is not part of the signed payload
	req.Signature = HexBytes{0xff}
	withSig, err := req.SignedMessage()
	c.Assert(err, qt.IsNil)
	c.Assert(withSig, qt.DeepEquals, msg)

	req.Choice = false
	other, err := req.SignedMessage()
	c.Assert(err, qt.IsNil)
	c.Assert(other, qt.Not(qt.DeepEquals), msg)

	_, err = ElectionRequest{ElectionID: "e1"}.SignedMessage(OpVote)
	c.Assert(err, qt.IsNotNil)
	sumUp, err := ElectionRequest{ElectionID: "e1"}.SignedMessage(OpToSumUp)
	c.Assert(err, qt.IsNil)
	closing, err := ElectionRequest{ElectionID: "e1"}.SignedMessage(OpCloseElection)
	c.Assert(err, qt.IsNil)
	c.Assert(sumUp, qt.Not(qt.DeepEquals), closing)
}
