package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/davinci-dao/crypto/signatures/ethereum"
	"github.com/vocdoni/davinci-dao/types"
)

func TestParseSecret(t *testing.T) {
	c := qt.New(t)
	s, err := parseSecret("0x10")
	c.Assert(err, qt.IsNil)
	c.Assert(s.Int64(), qt.Equals, int64(16))
	s, err = parseSecret("42")
	c.Assert(err, qt.IsNil)
	c.Assert(s.Int64(), qt.Equals, int64(42))
	_, err = parseSecret("-1")
	c.Assert(err, qt.IsNotNil)
	_, err = parseSecret("")
	c.Assert(err, qt.IsNotNil)
}

func TestRunSign(t *testing.T) {
	c := qt.New(t)
	signer, err := ethereum.NewSignerFromSeed([]byte("cli"))
	c.Assert(err, qt.IsNil)

	file := filepath.Join(t.TempDir(), "vote.json")
	c.Assert(os.WriteFile(file, []byte(`{"electionId":"e1","choice":true,"proof":"0x01","publicInput":"0x02"}`), 0o600), qt.IsNil)

	stdout := os.Stdout
	r, w, err := os.Pipe()
	c.Assert(err, qt.IsNil)
	os.Stdout = w
	runErr := runSign([]string{"--key", signer.HexPrivateKey().String(), "--op", "vote", "--file", file})
	os.Stdout = stdout
	c.Assert(w.Close(), qt.IsNil)
	c.Assert(runErr, qt.IsNil)

	req := &types.VoteRequest{}
	c.Assert(json.NewDecoder(r).Decode(req), qt.IsNil)
	msg, err := req.SignedMessage()
	c.Assert(err, qt.IsNil)
	addr, err := ethereum.RecoverSigner(msg, req.Signature)
	c.Assert(err, qt.IsNil)
	c.Assert(addr, qt.Equals, signer.Address())

	err = runSign([]string{"--key", signer.HexPrivateKey().String(), "--op", "mint", "--file", file})
	c.Assert(err, qt.ErrorMatches, `unknown operation "mint"`)
}
