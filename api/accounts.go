package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/davinci-dao/election"
	"github.com/vocdoni/davinci-dao/types"
)

// rewardAccount returns the reward account of a voter. A voter that never
// voted has a zero account.
// GET /rewards/{address}
func (a *API) rewardAccount(w http.ResponseWriter, r *http.Request) {
	voter, ok := addressParam(w, r, AddressURLParam)
	if !ok {
		return
	}
	account, err := a.program.RewardAccount(voter)
	if errors.Is(err, election.ErrNotFound) {
		account, err = &types.RewardAccount{Owner: voter}, nil
	}
	if err != nil {
		programError(err, ErrResourceNotFound).Write(w)
		return
	}
	httpWriteJSON(w, account)
}

// tokenAccount returns the changeable token account of a creator.
// GET /tokens/{creator}
func (a *API) tokenAccount(w http.ResponseWriter, r *http.Request) {
	creator, ok := addressParam(w, r, CreatorURLParam)
	if !ok {
		return
	}
	account, err := a.program.TokenAccount(creator)
	if err != nil {
		programError(err, ErrTokenAccountNotFound).Write(w)
		return
	}
	httpWriteJSON(w, account)
}

// verifyingKey returns the raw verifying key stored under a hash.
// GET /verifyingkeys/{hash}
func (a *API) verifyingKey(w http.ResponseWriter, r *http.Request) {
	ref, err := types.HexStringToHexBytes(chi.URLParam(r, VerifyingKeyHashParam))
	if err != nil || len(ref) == 0 {
		ErrMalformedParam.Withf("verifying key hash %q", chi.URLParam(r, VerifyingKeyHashParam)).Write(w)
		return
	}
	vk, err := a.program.VerifyingKey(ref)
	if err != nil {
		programError(err, ErrVerifyingKeyNotFound).Write(w)
		return
	}
	httpWriteBinary(w, vk)
}
