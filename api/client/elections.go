package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/davinci-dao/api"
	"github.com/vocdoni/davinci-dao/crypto/signatures/ethereum"
	"github.com/vocdoni/davinci-dao/types"
)

func electionPath(endpoint string, creator common.Address) string {
	return api.EndpointWithParam(endpoint, api.CreatorURLParam, creator.Hex())
}

// NewPolling opens an election signed by signer, who becomes its creator.
func (c *HTTPclient) NewPolling(ctx context.Context, signer *ethereum.Signer, req *types.NewPollingRequest) (*types.Election, error) {
	msg, err := req.SignedMessage()
	if err != nil {
		return nil, err
	}
	if req.Signature, err = sign(signer, msg); err != nil {
		return nil, err
	}
	e := &types.Election{}
	if err := c.call(ctx, http.MethodPost, req, e, api.ElectionsEndpoint); err != nil {
		return nil, err
	}
	return e, nil
}

// Vote casts the vote of signer on the election of creator.
func (c *HTTPclient) Vote(ctx context.Context, signer *ethereum.Signer, creator common.Address, req *types.VoteRequest) (*types.VoteReceipt, error) {
	msg, err := req.SignedMessage()
	if err != nil {
		return nil, err
	}
	if req.Signature, err = sign(signer, msg); err != nil {
		return nil, err
	}
	receipt := &types.VoteReceipt{}
	if err := c.call(ctx, http.MethodPost, req, receipt, electionPath(api.ElectionVotesEndpoint, creator)); err != nil {
		return nil, err
	}
	return receipt, nil
}

// ToSumUp freezes the tally of the election electionID of creator.
func (c *HTTPclient) ToSumUp(ctx context.Context, signer *ethereum.Signer, creator common.Address, electionID string) (*types.Election, error) {
	req, err := signElectionRequest(signer, types.OpToSumUp, electionID)
	if err != nil {
		return nil, err
	}
	e := &types.Election{}
	if err := c.call(ctx, http.MethodPost, req, e, electionPath(api.ElectionSumUpEndpoint, creator)); err != nil {
		return nil, err
	}
	return e, nil
}

// CloseElection removes the summarized election electionID of creator.
func (c *HTTPclient) CloseElection(ctx context.Context, signer *ethereum.Signer, creator common.Address, electionID string) error {
	req, err := signElectionRequest(signer, types.OpCloseElection, electionID)
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodPost, req, nil, electionPath(api.ElectionCloseEndpoint, creator))
}

// Election returns the current election of creator.
func (c *HTTPclient) Election(ctx context.Context, creator common.Address) (*types.Election, error) {
	e := &types.Election{}
	if err := c.call(ctx, http.MethodGet, nil, e, electionPath(api.ElectionEndpoint, creator)); err != nil {
		return nil, err
	}
	return e, nil
}

// Results returns the election of creator with its voters.
func (c *HTTPclient) Results(ctx context.Context, creator common.Address) (*types.ElectionResults, error) {
	res := &types.ElectionResults{}
	if err := c.call(ctx, http.MethodGet, nil, res, electionPath(api.ElectionResultsEndpoint, creator)); err != nil {
		return nil, err
	}
	return res, nil
}

func signElectionRequest(signer *ethereum.Signer, op types.Operation, electionID string) (*types.ElectionRequest, error) {
	req := &types.ElectionRequest{ElectionID: electionID}
	msg, err := req.SignedMessage(op)
	if err != nil {
		return nil, err
	}
	if req.Signature, err = sign(signer, msg); err != nil {
		return nil, err
	}
	return req, nil
}

func sign(signer *ethereum.Signer, msg []byte) (types.HexBytes, error) {
	if signer == nil {
		return nil, fmt.Errorf("missing signer")
	}
	sig, err := signer.Sign(msg)
	if err != nil {
		return nil, err
	}
	return sig.Bytes(), nil
}
