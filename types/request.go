package types

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Operation names the entry point a signed request is meant for.
type Operation string

const (
	OpNewPolling    Operation = "newPolling"
	OpVote          Operation = "vote"
	OpToSumUp       Operation = "toSumUp"
	OpCloseElection Operation = "closeElection"

	// RequestMessageToSign is the text signed by the caller of an entry point.
	// It binds the operation and the keccak256 hash of the request payload.
	RequestMessageToSign = "davinci-dao %s request %x"
)

// NewPollingRequest opens an election. The signer becomes its creator. Nonce
// must equal the election count of the creator's token account (zero for the
// first election), so a signed request opens at most one election.
type NewPollingRequest struct {
	EligibilityToken common.Address `json:"eligibilityToken"`
	ProposalVoting   string         `json:"proposalVoting"`
	Value            string         `json:"value"`
	AdditionalValue  string         `json:"additionalValue"`
	VerifyingKey     HexBytes       `json:"verifyingKey,omitempty"`
	MinVotes         uint64         `json:"minVotes,omitempty"`
	DurationSeconds  uint64         `json:"durationSeconds,omitempty"`
	Nonce            uint64         `json:"nonce"`
	Signature        HexBytes       `json:"signature,omitempty"`
}

// VoteRequest casts a vote on the election of the creator given in the URL.
// ElectionID pins the election instance the voter saw, so a signed vote can
// not be replayed on a later election of the same creator.
type VoteRequest struct {
	ElectionID  string   `json:"electionId"`
	Choice      bool     `json:"choice"`
	Proof       HexBytes `json:"proof"`
	PublicInput HexBytes `json:"publicInput"`
	Signature   HexBytes `json:"signature,omitempty"`
}

// ElectionRequest is the body of the creator-only transitions (summarize and
// close).
type ElectionRequest struct {
	ElectionID string   `json:"electionId"`
	Signature  HexBytes `json:"signature,omitempty"`
}

// SignedMessage returns the message to sign for the request.
func (r NewPollingRequest) SignedMessage() ([]byte, error) {
	r.Signature = nil
	return requestMessage(OpNewPolling, r)
}

// SignedMessage returns the message to sign for the request.
func (r VoteRequest) SignedMessage() ([]byte, error) {
	r.Signature = nil
	return requestMessage(OpVote, r)
}

// SignedMessage returns the message to sign for the given creator-only
// operation.
func (r ElectionRequest) SignedMessage(op Operation) ([]byte, error) {
	if op != OpToSumUp && op != OpCloseElection {
		return nil, fmt.Errorf("operation %q does not use an election request", op)
	}
	r.Signature = nil
	return requestMessage(op, r)
}

func requestMessage(op Operation, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("could not encode %s payload: %w", op, err)
	}
	return fmt.Appendf(nil, RequestMessageToSign, op, ethcrypto.Keccak256(data)), nil
}
