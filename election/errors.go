package election

import (
	"errors"
	"fmt"

	"github.com/vocdoni/davinci-dao/types"
	"github.com/vocdoni/davinci-dao/zk"
)

var (
	ErrAlreadyExists     = errors.New("election already exists")
	ErrNotFound          = errors.New("not found")
	ErrElectionNotActive = errors.New("election is not active")
	ErrElectionActive    = errors.New("election is still active")
	ErrAlreadyVoted      = errors.New("already voted")
	ErrAlreadySummarized = errors.New("election already summarized")
	ErrUnauthorized      = errors.New("caller is not the election creator")
	ErrVotingTime        = errors.New("voting time has not finished")
	ErrElectionMismatch  = errors.New("election id does not match the current election")
	ErrInvalidNonce      = errors.New("nonce does not match the election count of the creator")

	ErrInsufficientBalance = errors.New("insufficient eligibility token balance")
	ErrBalanceUnavailable  = errors.New("eligibility token balance unavailable")
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrInvalidVerifyingKey = errors.New("invalid verifying key")

	// ErrCounterOverflow is returned when a tally or reward counter is full.
	ErrCounterOverflow = types.ErrCounterOverflow

	// ErrInvalidProof wraps zk.ErrInvalidProof, so callers can match either.
	ErrInvalidProof = fmt.Errorf("%w", zk.ErrInvalidProof)
)

// Retryable reports whether a failed call may succeed if it is sent again,
// with different input or later in time. Errors caused by the election state
// or the caller identity are final.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidProof),
		errors.Is(err, ErrInvalidParameter),
		errors.Is(err, ErrInvalidVerifyingKey),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrBalanceUnavailable),
		errors.Is(err, ErrInvalidNonce),
		errors.Is(err, ErrElectionMismatch),
		errors.Is(err, ErrVotingTime):
		return true
	default:
		return false
	}
}
