package types

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type ElectionStatus uint8

const (
	ElectionStatusActive     = ElectionStatus(iota) // Accepting votes
	ElectionStatusSummarized                        // Tally frozen, waiting to be closed

	ElectionStatusActiveName     = "active"
	ElectionStatusSummarizedName = "summarized"
)

func (s ElectionStatus) String() string {
	switch s {
	case ElectionStatusActive:
		return ElectionStatusActiveName
	case ElectionStatusSummarized:
		return ElectionStatusSummarizedName
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name in JSON responses.
func (s ElectionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *ElectionStatus) UnmarshalText(data []byte) error {
	switch string(data) {
	case ElectionStatusActiveName:
		*s = ElectionStatusActive
	case ElectionStatusSummarizedName:
		*s = ElectionStatusSummarized
	default:
		return fmt.Errorf("unknown election status %q", data)
	}
	return nil
}

// Proposal labels that, once passed, are executed on the changeable token
// account. Any other label is a signalling proposal.
const (
	ProposalNewSymbol = "newSymbol"
	ProposalNewName   = "newName"
)

// ErrCounterOverflow is returned when a vote would overflow one of the
// counters of a tally or a reward account.
var ErrCounterOverflow = errors.New("counter overflow")

// Tally holds the aggregated counters of an election. NumberOfVotes counts
// every admitted vote, whatever its choice. Weights are the sum of the token
// balances of the voters by choice, or the number of votes when balances are
// not taken into account. They are 256-bit, as ERC-20 balances are.
type Tally struct {
	NumberOfVotes uint64       `json:"numberOfVotes"`
	YesVotes      uint64       `json:"yesVotes"`
	NoVotes       uint64       `json:"noVotes"`
	YesWeight     *uint256.Int `json:"yesWeight"`
	NoWeight      *uint256.Int `json:"noWeight"`
}

// NewTally returns an empty tally with both weights set to zero.
func NewTally() Tally {
	return Tally{YesWeight: new(uint256.Int), NoWeight: new(uint256.Int)}
}

// Add counts a vote with the given choice and weight. It fails with
// ErrCounterOverflow, without modifying the tally, if a counter would
// overflow.
func (t *Tally) Add(choice bool, weight *uint256.Int) error {
	total, carry := bits.Add64(t.NumberOfVotes, 1, 0)
	if carry != 0 {
		return fmt.Errorf("%w: number of votes", ErrCounterOverflow)
	}
	if choice {
		w, overflow := new(uint256.Int).AddOverflow(weightOrZero(t.YesWeight), weight)
		if overflow {
			return fmt.Errorf("%w: yes weight", ErrCounterOverflow)
		}
		t.YesVotes++
		t.YesWeight = w
	} else {
		w, overflow := new(uint256.Int).AddOverflow(weightOrZero(t.NoWeight), weight)
		if overflow {
			return fmt.Errorf("%w: no weight", ErrCounterOverflow)
		}
		t.NoVotes++
		t.NoWeight = w
	}
	t.NumberOfVotes = total
	return nil
}

// Passed reports whether the yes weight is strictly greater than the no
// weight. Ties do not pass.
func (t Tally) Passed() bool {
	return weightOrZero(t.YesWeight).Gt(weightOrZero(t.NoWeight))
}

func weightOrZero(w *uint256.Int) *uint256.Int {
	if w == nil {
		return new(uint256.Int)
	}
	return w
}

// Election is the record of a voting round stored at the election address of
// its creator.
type Election struct {
	ID                     string         `json:"id"`
	Address                common.Hash    `json:"address"`
	Creator                common.Address `json:"creator"`
	EligibilityToken       common.Address `json:"eligibilityToken"`
	ChangeableTokenAccount common.Hash    `json:"changeableTokenAccount"`
	VerifyingKey           HexBytes       `json:"verifyingKey"`
	ProposalVoting         string         `json:"proposalVoting"`
	Value                  string         `json:"value"`
	AdditionalValue        string         `json:"additionalValue"`
	Status                 ElectionStatus `json:"status"`
	VoteActive             bool           `json:"voteActive"`
	Tally                  Tally          `json:"tally"`
	MinVotes               uint64         `json:"minVotes,omitempty"`
	CreatedAt              int64          `json:"createdAt"`
	EndTime                int64          `json:"endTime,omitempty"`
	SummarizedAt           int64          `json:"summarizedAt,omitempty"`
	Passed                 bool           `json:"passed"`
}

// String returns a short description for logging.
func (e *Election) String() string {
	return fmt.Sprintf("election %s by %s (%s, votes=%d)",
		e.ID, e.Creator.Hex(), e.Status, e.Tally.NumberOfVotes)
}

// VoterEntry is the value stored in the voters set of an election. Seq is
// the 1-based admission order of the vote.
type VoterEntry struct {
	Seq uint64 `json:"seq"`
}

// ElectionResults is a snapshot of an election together with the identities
// that voted on it, in admission order.
type ElectionResults struct {
	Election *Election       `json:"election"`
	Voters   []common.Address `json:"voters"`
}

// RewardAccount accumulates the reward points of a voter across elections.
type RewardAccount struct {
	Owner        common.Address `json:"owner"`
	RewardPoints uint64         `json:"rewardPoints"`
	LastElection string         `json:"lastElection,omitempty"`
}

// TokenAccount is the changeable token account bound to the elections of a
// creator. Passed proposals may change its name or symbol. BoundElection is
// empty once the account is released.
type TokenAccount struct {
	Address       common.Hash    `json:"address"`
	Authority     common.Address `json:"authority"`
	Name          string         `json:"name"`
	Symbol        string         `json:"symbol"`
	BoundElection string         `json:"boundElection,omitempty"`
	// ElectionCount is the number of elections opened by the authority. A
	// newPolling request must carry it as nonce.
	ElectionCount uint64 `json:"electionCount"`
}

// VoteReceipt is returned for an admitted vote.
type VoteReceipt struct {
	ElectionID    string         `json:"electionId"`
	Voter         common.Address `json:"voter"`
	Seq           uint64         `json:"seq"`
	NumberOfVotes uint64         `json:"numberOfVotes"`
	RewardPoints  uint64         `json:"rewardPoints"`
}
