package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/davinci-dao/api"
	"github.com/vocdoni/davinci-dao/types"
)

// RewardAccount returns the reward account of voter.
func (c *HTTPclient) RewardAccount(ctx context.Context, voter common.Address) (*types.RewardAccount, error) {
	account := &types.RewardAccount{}
	urlPath := api.EndpointWithParam(api.RewardsEndpoint, api.AddressURLParam, voter.Hex())
	if err := c.call(ctx, http.MethodGet, nil, account, urlPath); err != nil {
		return nil, err
	}
	return account, nil
}

// TokenAccount returns the changeable token account of creator.
func (c *HTTPclient) TokenAccount(ctx context.Context, creator common.Address) (*types.TokenAccount, error) {
	account := &types.TokenAccount{}
	if err := c.call(ctx, http.MethodGet, nil, account, electionPath(api.TokensEndpoint, creator)); err != nil {
		return nil, err
	}
	return account, nil
}

// ElectionNonce returns the nonce the next newPolling request of creator must
// carry.
func (c *HTTPclient) ElectionNonce(ctx context.Context, creator common.Address) (uint64, error) {
	account, err := c.TokenAccount(ctx, creator)
	if errors.Is(err, api.ErrTokenAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.ElectionCount, nil
}

// VerifyingKey downloads the raw verifying key stored under ref.
func (c *HTTPclient) VerifyingKey(ctx context.Context, ref types.HexBytes) ([]byte, error) {
	urlPath := api.EndpointWithParam(api.VerifyingKeyEndpoint, api.VerifyingKeyHashParam, ref.Hex())
	data, status, err := c.Request(ctx, http.MethodGet, nil, urlPath)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, decodeError(data, status)
	}
	return data, nil
}
