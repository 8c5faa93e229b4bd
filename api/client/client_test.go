package client

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/davinci-dao/api"
	"github.com/vocdoni/davinci-dao/crypto/signatures/ethereum"
	"github.com/vocdoni/davinci-dao/election"
	"github.com/vocdoni/davinci-dao/storage"
	"github.com/vocdoni/davinci-dao/types"
	"github.com/vocdoni/davinci-dao/zk"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	testVK     = []byte("client test verifying key")
	validProof = types.HexBytes("proof")
	validInput = types.HexBytes("input")
)

type testVerifier struct{}

func (testVerifier) Verify(_, proof, publicInput []byte) error {
	if bytes.Equal(proof, validProof) && bytes.Equal(publicInput, validInput) {
		return nil
	}
	return zk.ErrInvalidProof
}

func newTestClient(t *testing.T) *HTTPclient {
	st := storage.New(metadb.NewTest(t))
	a, err := api.New(&api.APIConfig{
		Program: election.New(st, zk.AllowEmptyProof(testVerifier{}), election.WithDefaultVerifyingKey(testVK)),
		Info:    api.InfoResponse{Version: "test", AllowEmptyProof: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)
	cli, err := New(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return cli
}

func signers(t *testing.T, seeds ...string) []*ethereum.Signer {
	out := make([]*ethereum.Signer, 0, len(seeds))
	for _, seed := range seeds {
		s, err := ethereum.NewSignerFromSeed([]byte(seed))
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, s)
	}
	return out
}

func TestClientElectionLifecycle(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	cli := newTestClient(t)
	s := signers(t, "creator", "alice", "bob", "carol")
	creator, voters := s[0], s[1:]

	info, err := cli.Info(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(info.AllowEmptyProof, qt.IsTrue)

	e, err := cli.NewPolling(ctx, creator, &types.NewPollingRequest{
		EligibilityToken: common.HexToAddress("0xaa"),
		ProposalVoting:   types.ProposalNewName,
		Value:            "Davinci DAO",
	})
	c.Assert(err, qt.IsNil)

	vk, err := cli.VerifyingKey(ctx, e.VerifyingKey)
	c.Assert(err, qt.IsNil)
	c.Assert(vk, qt.DeepEquals, testVK)

	// two votes with a proof, one relying on the empty proof bypass
	for i, choice := range []bool{true, false, true} {
		req := &types.VoteRequest{ElectionID: e.ID, Choice: choice}
		if i < 2 {
			req.Proof, req.PublicInput = validProof, validInput
		}
		receipt, err := cli.Vote(ctx, voters[i], creator.Address(), req)
		c.Assert(err, qt.IsNil)
		c.Assert(receipt.Seq, qt.Equals, uint64(i+1))
	}

	_, err = cli.Vote(ctx, voters[0], creator.Address(), &types.VoteRequest{ElectionID: e.ID})
	c.Assert(err, qt.ErrorIs, api.ErrAlreadyVoted)

	err = cli.CloseElection(ctx, creator, creator.Address(), e.ID)
	c.Assert(err, qt.ErrorIs, api.ErrElectionActive)

	_, err = cli.ToSumUp(ctx, voters[0], creator.Address(), e.ID)
	c.Assert(err, qt.ErrorIs, api.ErrUnauthorized)

	summarized, err := cli.ToSumUp(ctx, creator, creator.Address(), e.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(summarized.Tally.YesVotes, qt.Equals, uint64(2))
	c.Assert(summarized.Tally.NoVotes, qt.Equals, uint64(1))
	c.Assert(summarized.Passed, qt.IsTrue)

	res, err := cli.Results(ctx, creator.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(res.Voters, qt.DeepEquals, []common.Address{
		voters[0].Address(), voters[1].Address(), voters[2].Address(),
	})

	token, err := cli.TokenAccount(ctx, creator.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(token.Name, qt.Equals, "Davinci DAO")
	c.Assert(token.BoundElection, qt.Equals, e.ID)

	c.Assert(cli.CloseElection(ctx, creator, creator.Address(), e.ID), qt.IsNil)

	_, err = cli.Election(ctx, creator.Address())
	c.Assert(err, qt.ErrorIs, api.ErrElectionNotFound)

	token, err = cli.TokenAccount(ctx, creator.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(token.BoundElection, qt.Equals, "")

	// the first request was consumed: a new election needs the next nonce
	nonce, err := cli.ElectionNonce(ctx, creator.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(nonce, qt.Equals, uint64(1))
	_, err = cli.NewPolling(ctx, creator, &types.NewPollingRequest{ProposalVoting: "signal"})
	c.Assert(err, qt.ErrorIs, api.ErrInvalidNonce)
	next, err := cli.NewPolling(ctx, creator, &types.NewPollingRequest{ProposalVoting: "signal", Nonce: nonce})
	c.Assert(err, qt.IsNil)
	c.Assert(next.ID, qt.Not(qt.Equals), e.ID)

	reward, err := cli.RewardAccount(ctx, voters[2].Address())
	c.Assert(err, qt.IsNil)
	c.Assert(reward.RewardPoints, qt.Equals, uint64(1))
	c.Assert(reward.LastElection, qt.Equals, e.ID)
}

func TestClientErrors(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	cli := newTestClient(t)
	s := signers(t, "creator")

	_, err := cli.NewPolling(ctx, s[0], &types.NewPollingRequest{ProposalVoting: ""})
	c.Assert(err, qt.ErrorIs, api.ErrInvalidElectionParams)

	_, err = cli.NewPolling(ctx, nil, &types.NewPollingRequest{ProposalVoting: "x"})
	c.Assert(err, qt.ErrorMatches, "missing signer")

	nonce, err := cli.ElectionNonce(ctx, s[0].Address())
	c.Assert(err, qt.IsNil)
	c.Assert(nonce, qt.Equals, uint64(0))

	_, err = cli.VerifyingKey(ctx, types.HexBytes{0x01})
	c.Assert(err, qt.ErrorIs, api.ErrVerifyingKeyNotFound)

	cli.SetRetries(1)
	_, _, err = cli.Request(ctx, "GET", nil, "/ping")
	c.Assert(err, qt.IsNil)
}
