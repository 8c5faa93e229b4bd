//nolint:lll
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vocdoni/davinci-dao/election"
	"github.com/vocdoni/davinci-dao/log"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 403, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
// If you notice there's a gap, DON'T fill in the gap, that code was used in the past for some error
// and shouldn't be reused.
//
// Clients can tell apart the errors worth retrying with different input (400)
// from the final ones (403 and 409).
var (
	ErrResourceNotFound      = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody         = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrInvalidSignature      = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid signature")}
	ErrElectionNotFound      = Error{Code: 40007, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("election not found")}
	ErrInvalidProof          = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid eligibility proof")}
	ErrUnauthorized          = Error{Code: 40014, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("unauthorized")}
	ErrMalformedParam        = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed parameter")}
	ErrMalformedAddress      = Error{Code: 40017, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed address")}
	ErrAlreadyVoted          = Error{Code: 40018, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("already voted")}
	ErrElectionNotActive     = Error{Code: 40020, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("election is not accepting votes")}
	ErrElectionAlreadyExists = Error{Code: 40023, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("election already exists")}
	ErrElectionSummarized    = Error{Code: 40024, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("election already summarized")}
	ErrElectionActive        = Error{Code: 40025, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("election is still active")}
	ErrVotingTime            = Error{Code: 40026, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("voting time has not finished")}
	ErrInsufficientBalance   = Error{Code: 40027, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("insufficient eligibility token balance")}
	ErrInvalidVerifyingKey   = Error{Code: 40028, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid verifying key")}
	ErrElectionMismatch      = Error{Code: 40029, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("election id mismatch")}
	ErrInvalidElectionParams = Error{Code: 40030, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid election parameters")}
	ErrVerifyingKeyNotFound  = Error{Code: 40031, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("verifying key not found")}
	ErrTokenAccountNotFound  = Error{Code: 40032, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("token account not found")}
	ErrInvalidNonce          = Error{Code: 40033, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("invalid election nonce")}
	ErrCounterOverflow       = Error{Code: 40034, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("election counter overflow")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrBalanceUnavailable         = Error{Code: 50003, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("token balance unavailable")}
)

// programError maps an error returned by the election program to its API
// error. notFound is used for election.ErrNotFound, since its meaning
// depends on the endpoint.
func programError(err error, notFound Error) Error {
	switch {
	case errors.Is(err, election.ErrNotFound):
		return notFound.WithErr(err)
	case errors.Is(err, election.ErrAlreadyExists):
		return ErrElectionAlreadyExists.WithErr(err)
	case errors.Is(err, election.ErrElectionNotActive):
		return ErrElectionNotActive.WithErr(err)
	case errors.Is(err, election.ErrElectionActive):
		return ErrElectionActive.WithErr(err)
	case errors.Is(err, election.ErrAlreadyVoted):
		return ErrAlreadyVoted.WithErr(err)
	case errors.Is(err, election.ErrAlreadySummarized):
		return ErrElectionSummarized.WithErr(err)
	case errors.Is(err, election.ErrUnauthorized):
		return ErrUnauthorized.WithErr(err)
	case errors.Is(err, election.ErrVotingTime):
		return ErrVotingTime.WithErr(err)
	case errors.Is(err, election.ErrElectionMismatch):
		return ErrElectionMismatch.WithErr(err)
	case errors.Is(err, election.ErrInsufficientBalance):
		return ErrInsufficientBalance.WithErr(err)
	case errors.Is(err, election.ErrBalanceUnavailable):
		log.Warnw("token balance unavailable", "error", err.Error())
		return ErrBalanceUnavailable.WithErr(err)
	case errors.Is(err, election.ErrInvalidNonce):
		return ErrInvalidNonce.WithErr(err)
	case errors.Is(err, election.ErrCounterOverflow):
		return ErrCounterOverflow.WithErr(err)
	case errors.Is(err, election.ErrInvalidParameter):
		return ErrInvalidElectionParams.WithErr(err)
	case errors.Is(err, election.ErrInvalidVerifyingKey):
		return ErrInvalidVerifyingKey.WithErr(err)
	case errors.Is(err, election.ErrInvalidProof):
		return ErrInvalidProof.WithErr(err)
	default:
		log.Errorw(err, "election program failure")
		return ErrGenericInternalServerError.WithErr(err)
	}
}
