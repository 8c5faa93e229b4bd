package api

import (
	"math"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/davinci-dao/election"
	"github.com/vocdoni/davinci-dao/types"
)

// maxDurationSeconds is the largest duration that fits a time.Duration.
const maxDurationSeconds = uint64(math.MaxInt64 / int64(time.Second))

// newPolling opens an election whose creator is the signer of the request.
// POST /elections
func (a *API) newPolling(w http.ResponseWriter, r *http.Request) {
	req := &types.NewPollingRequest{}
	if !decodeBody(w, r, req) {
		return
	}
	msg, err := req.SignedMessage()
	if err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	caller, ok := recoverCaller(w, msg, req.Signature)
	if !ok {
		return
	}
	if req.DurationSeconds > maxDurationSeconds {
		ErrInvalidElectionParams.Withf("duration of %d seconds is too long", req.DurationSeconds).Write(w)
		return
	}
	e, err := a.program.NewPolling(r.Context(), caller, election.NewPollingParams{
		EligibilityToken: req.EligibilityToken,
		ProposalVoting:   req.ProposalVoting,
		Value:            req.Value,
		AdditionalValue:  req.AdditionalValue,
		VerifyingKey:     req.VerifyingKey,
		MinVotes:         req.MinVotes,
		Duration:         time.Duration(req.DurationSeconds) * time.Second,
		Nonce:            req.Nonce,
	})
	if err != nil {
		programError(err, ErrElectionNotFound).Write(w)
		return
	}
	httpWriteJSON(w, e)
}

// getElection returns the current election of a creator.
// GET /elections/{creator}
func (a *API) getElection(w http.ResponseWriter, r *http.Request) {
	creator, ok := addressParam(w, r, CreatorURLParam)
	if !ok {
		return
	}
	e, err := a.program.Election(creator)
	if err != nil {
		programError(err, ErrElectionNotFound).Write(w)
		return
	}
	httpWriteJSON(w, e)
}

// toSumUp freezes the tally of an election. Only its creator can do it.
// POST /elections/{creator}/sumup
func (a *API) toSumUp(w http.ResponseWriter, r *http.Request) {
	creator, ok := addressParam(w, r, CreatorURLParam)
	if !ok {
		return
	}
	req, caller, ok := electionRequestCaller(w, r, types.OpToSumUp)
	if !ok {
		return
	}
	e, err := a.program.ToSumUp(r.Context(), caller, creator, req.ElectionID)
	if err != nil {
		programError(err, ErrElectionNotFound).Write(w)
		return
	}
	httpWriteJSON(w, e)
}

// results returns the election together with its voters in admission order.
// GET /elections/{creator}/results
func (a *API) results(w http.ResponseWriter, r *http.Request) {
	creator, ok := addressParam(w, r, CreatorURLParam)
	if !ok {
		return
	}
	res, err := a.program.Results(creator)
	if err != nil {
		programError(err, ErrElectionNotFound).Write(w)
		return
	}
	httpWriteJSON(w, res)
}

// closeElection removes a summarized election and its voters set.
// POST /elections/{creator}/close
func (a *API) closeElection(w http.ResponseWriter, r *http.Request) {
	creator, ok := addressParam(w, r, CreatorURLParam)
	if !ok {
		return
	}
	req, caller, ok := electionRequestCaller(w, r, types.OpCloseElection)
	if !ok {
		return
	}
	if err := a.program.CloseElection(r.Context(), caller, creator, req.ElectionID); err != nil {
		programError(err, ErrElectionNotFound).Write(w)
		return
	}
	httpWriteOK(w)
}

// electionRequestCaller decodes a signed ElectionRequest for op and returns
// it with its signer. The election program checks the election id against
// the current election of the creator, so a signed request can not be
// replayed on a later election.
func electionRequestCaller(w http.ResponseWriter, r *http.Request, op types.Operation) (*types.ElectionRequest, common.Address, bool) {
	req := &types.ElectionRequest{}
	if !decodeBody(w, r, req) {
		return nil, common.Address{}, false
	}
	if req.ElectionID == "" {
		ErrMalformedBody.With("missing election id").Write(w)
		return nil, common.Address{}, false
	}
	msg, err := req.SignedMessage(op)
	if err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return nil, common.Address{}, false
	}
	caller, ok := recoverCaller(w, msg, req.Signature)
	if !ok {
		return nil, common.Address{}, false
	}
	return req, caller, true
}
