package api

import (
	"net/http"

	"github.com/vocdoni/davinci-dao/election"
	"github.com/vocdoni/davinci-dao/types"
)

// vote casts the vote of the signer of the request.
// POST /elections/{creator}/votes
func (a *API) vote(w http.ResponseWriter, r *http.Request) {
	creator, ok := addressParam(w, r, CreatorURLParam)
	if !ok {
		return
	}
	req := &types.VoteRequest{}
	if !decodeBody(w, r, req) {
		return
	}
	if req.ElectionID == "" {
		ErrMalformedBody.With("missing election id").Write(w)
		return
	}
	msg, err := req.SignedMessage()
	if err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	voter, ok := recoverCaller(w, msg, req.Signature)
	if !ok {
		return
	}
	receipt, err := a.program.Vote(r.Context(), voter, creator, election.VoteParams{
		ElectionID:  req.ElectionID,
		Choice:      req.Choice,
		Proof:       req.Proof,
		PublicInput: req.PublicInput,
	})
	if err != nil {
		programError(err, ErrElectionNotFound).Write(w)
		return
	}
	httpWriteJSON(w, receipt)
}
