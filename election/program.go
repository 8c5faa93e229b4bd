// Package election implements the election program: the lifecycle of an
// election (newPolling, vote, toSumUp, closeElection), the proof gated
// admission of votes, the reward points of the voters and the changeable
// token account bound to the elections of a creator.
//
// Every entry point runs as a single storage transaction over the addresses
// it touches. A failed precondition discards the whole transaction, so a
// call is either fully applied or not applied at all.
package election

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/vocdoni/davinci-dao/log"
	"github.com/vocdoni/davinci-dao/storage"
	"github.com/vocdoni/davinci-dao/types"
	"github.com/vocdoni/davinci-dao/zk"
)

const (
	MaxProposalLength = 32
	MaxValueLength    = 256
)

// TokenBalances reports the balance of an eligibility token held by an
// identity. When configured, creators and voters must hold a positive
// balance and votes are weighted by it.
type TokenBalances interface {
	BalanceOf(ctx context.Context, token, holder common.Address) (*uint256.Int, error)
}

// Program is the election program. It is safe for concurrent use.
type Program struct {
	storage   *storage.Storage
	verifier  zk.Verifier
	balances  TokenBalances
	defaultVK []byte
	now       func() time.Time
}

// Option configures a Program.
type Option func(*Program)

// WithTokenBalances enables balance checks and vote weighting.
func WithTokenBalances(b TokenBalances) Option {
	return func(p *Program) { p.balances = b }
}

// WithDefaultVerifyingKey sets the key used by elections created without
// one.
func WithDefaultVerifyingKey(vk []byte) Option {
	return func(p *Program) { p.defaultVK = vk }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Program) { p.now = now }
}

// New returns a Program over st that checks eligibility proofs with
// verifier.
func New(st *storage.Storage, verifier zk.Verifier, opts ...Option) *Program {
	p := &Program{
		storage:  st,
		verifier: verifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewPollingParams are the arguments of NewPolling.
type NewPollingParams struct {
	EligibilityToken common.Address
	ProposalVoting   string
	Value            string
	AdditionalValue  string
	// VerifyingKey is the serialized key proofs are checked against. Empty
	// means the default key of the program.
	VerifyingKey []byte
	// MinVotes and Duration are optional. When any of them is set, the
	// election can only be summarized once the duration has elapsed or the
	// number of votes reaches MinVotes.
	MinVotes uint64
	Duration time.Duration
	// Nonce must equal the election count of the token account of the
	// creator.
	Nonce uint64
}

func (np *NewPollingParams) validate() error {
	switch {
	case np.ProposalVoting == "":
		return fmt.Errorf("%w: empty proposal", ErrInvalidParameter)
	case len(np.ProposalVoting) > MaxProposalLength:
		return fmt.Errorf("%w: proposal longer than %d bytes", ErrInvalidParameter, MaxProposalLength)
	case len(np.Value) > MaxValueLength:
		return fmt.Errorf("%w: value longer than %d bytes", ErrInvalidParameter, MaxValueLength)
	case len(np.AdditionalValue) > MaxValueLength:
		return fmt.Errorf("%w: additional value longer than %d bytes", ErrInvalidParameter, MaxValueLength)
	case np.Duration < 0:
		return fmt.Errorf("%w: negative duration", ErrInvalidParameter)
	}
	return nil
}

// NewPolling opens an election with caller as creator. A creator has at most
// one election at a time, and each election consumes one nonce.
func (p *Program) NewPolling(ctx context.Context, caller common.Address, params NewPollingParams) (*types.Election, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	vk := params.VerifyingKey
	if len(vk) == 0 {
		vk = p.defaultVK
	}
	if len(vk) == 0 {
		return nil, fmt.Errorf("%w: none given and no default configured", ErrInvalidVerifyingKey)
	}
	if kv, ok := p.verifier.(zk.KeyValidator); ok {
		if err := kv.ValidateVerifyingKey(vk); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidVerifyingKey, err)
		}
	}
	if _, err := p.balanceOf(ctx, params.EligibilityToken, caller); err != nil {
		return nil, err
	}

	addr := types.ElectionAddress(caller)
	tokenAddr := types.ChangeableTokenAddress(caller)
	now := p.now().Unix()
	election := &types.Election{
		ID:                     uuid.NewString(),
		Address:                addr,
		Creator:                caller,
		EligibilityToken:       params.EligibilityToken,
		ChangeableTokenAccount: tokenAddr,
		ProposalVoting:         params.ProposalVoting,
		Value:                  params.Value,
		AdditionalValue:        params.AdditionalValue,
		Status:                 types.ElectionStatusActive,
		VoteActive:             true,
		Tally:                  types.NewTally(),
		MinVotes:               params.MinVotes,
		CreatedAt:              now,
	}
	if params.Duration > 0 {
		election.EndTime = now + int64((params.Duration+time.Second-1)/time.Second)
	}

	err := p.storage.Update(lockKeys(addr, tokenAddr), func(tx *storage.Tx) error {
		exists, err := tx.Has(storage.ElectionPrefix, addr.Bytes())
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: creator %s", ErrAlreadyExists, caller.Hex())
		}
		if election.VerifyingKey, err = p.storage.SetVerifyingKey(tx, vk); err != nil {
			return err
		}
		if err := bindTokenAccount(tx, tokenAddr, caller, election.ID, params.Nonce); err != nil {
			return err
		}
		return tx.Set(storage.ElectionPrefix, addr.Bytes(), election)
	})
	if err != nil {
		return nil, err
	}
	log.Infow("election created",
		"id", election.ID,
		"creator", caller.Hex(),
		"address", addr.Hex(),
		"proposal", election.ProposalVoting,
		"endTime", election.EndTime,
		"minVotes", election.MinVotes)
	return election, nil
}

// VoteParams are the arguments of Vote.
type VoteParams struct {
	// ElectionID, if set, must match the id of the election currently open
	// by the creator.
	ElectionID  string
	Choice      bool
	Proof       []byte
	PublicInput []byte
}

// Vote casts the vote of caller on the election of creator. The vote, the
// voters set entry and the reward credit are stored together or not at all.
//
// The token balance is read before taking the election lock, so voters do
// not queue behind the balance provider. The election is checked again under
// the lock, and a vote for an election replaced in between is rejected with
// ErrElectionMismatch.
func (p *Program) Vote(ctx context.Context, caller, creator common.Address, params VoteParams) (*types.VoteReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	receipt, err := p.castVote(ctx, caller, creator, params)
	if err != nil {
		log.Debugw("vote rejected", "creator", creator.Hex(), "voter", caller.Hex(), "error", err.Error())
		return nil, err
	}
	log.Debugw("vote admitted",
		"election", receipt.ElectionID,
		"voter", caller.Hex(),
		"seq", receipt.Seq)
	return receipt, nil
}

func (p *Program) castVote(ctx context.Context, caller, creator common.Address, params VoteParams) (*types.VoteReceipt, error) {
	addr := types.ElectionAddress(creator)
	locks := lockKeys(addr, types.UserAddress(caller))

	var seen *types.Election
	if err := p.storage.View(locks, func(tx *storage.Tx) error {
		var err error
		seen, err = checkVote(tx, addr, caller, params.ElectionID)
		return err
	}); err != nil {
		return nil, err
	}
	weight, err := p.balanceOf(ctx, seen.EligibilityToken, caller)
	if err != nil {
		return nil, err
	}

	receipt := &types.VoteReceipt{Voter: caller}
	err = p.storage.Update(locks, func(tx *storage.Tx) error {
		election, err := checkVote(tx, addr, caller, seen.ID)
		if err != nil {
			return err
		}
		vk, err := p.storage.VerifyingKey(election.VerifyingKey)
		if err != nil {
			return fmt.Errorf("could not load verifying key %s: %w", election.VerifyingKey, err)
		}
		if err := p.verifier.Verify(vk, params.Proof, params.PublicInput); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProof, err)
		}

		if err := election.Tally.Add(params.Choice, weight); err != nil {
			return err
		}
		seq := election.Tally.NumberOfVotes
		voterKey := storage.Key(addr.Bytes(), caller.Bytes())
		if err := tx.Set(storage.VoterPrefix, voterKey, &types.VoterEntry{Seq: seq}); err != nil {
			return err
		}
		account, err := creditVote(tx, caller, election.ID)
		if err != nil {
			return err
		}
		if err := tx.Set(storage.ElectionPrefix, addr.Bytes(), election); err != nil {
			return err
		}
		receipt.ElectionID = election.ID
		receipt.Seq = seq
		receipt.NumberOfVotes = election.Tally.NumberOfVotes
		receipt.RewardPoints = account.RewardPoints
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// checkVote returns the election at addr if caller can vote on it. An empty
// electionID matches any election.
func checkVote(tx *storage.Tx, addr common.Hash, caller common.Address, electionID string) (*types.Election, error) {
	election, err := getElection(tx, addr)
	if err != nil {
		return nil, err
	}
	if election.Status != types.ElectionStatusActive {
		return nil, fmt.Errorf("%w: %s", ErrElectionNotActive, election.ID)
	}
	if err := matchElection(election, electionID); err != nil {
		return nil, err
	}
	voted, err := tx.Has(storage.VoterPrefix, storage.Key(addr.Bytes(), caller.Bytes()))
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, fmt.Errorf("%w: %s on %s", ErrAlreadyVoted, caller.Hex(), election.ID)
	}
	return election, nil
}

func matchElection(e *types.Election, electionID string) error {
	if electionID != "" && electionID != e.ID {
		return fmt.Errorf("%w: got %s, current is %s", ErrElectionMismatch, electionID, e.ID)
	}
	return nil
}

// ToSumUp freezes the tally of the election of creator and executes the
// proposal if it passed. Only the creator can call it. A non empty
// electionID must match the current election of creator.
func (p *Program) ToSumUp(ctx context.Context, caller, creator common.Address, electionID string) (*types.Election, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr := types.ElectionAddress(creator)
	tokenAddr := types.ChangeableTokenAddress(creator)
	var election *types.Election

	err := p.storage.Update(lockKeys(addr, tokenAddr), func(tx *storage.Tx) error {
		var err error
		if election, err = getElection(tx, addr); err != nil {
			return err
		}
		if caller != election.Creator {
			return fmt.Errorf("%w: %s", ErrUnauthorized, caller.Hex())
		}
		if err := matchElection(election, electionID); err != nil {
			return err
		}
		if election.Status == types.ElectionStatusSummarized {
			return fmt.Errorf("%w: %s", ErrAlreadySummarized, election.ID)
		}
		now := p.now().Unix()
		if !votingFinished(election, now) {
			return fmt.Errorf("%w: ends at %d with %d of %d votes",
				ErrVotingTime, election.EndTime, election.Tally.NumberOfVotes, election.MinVotes)
		}
		election.Status = types.ElectionStatusSummarized
		election.VoteActive = false
		election.SummarizedAt = now
		election.Passed = election.Tally.Passed()
		if err := applyProposal(tx, tokenAddr, election); err != nil {
			return err
		}
		return tx.Set(storage.ElectionPrefix, addr.Bytes(), election)
	})
	if err != nil {
		return nil, err
	}
	log.Infow("election summarized",
		"id", election.ID,
		"votes", election.Tally.NumberOfVotes,
		"yesWeight", election.Tally.YesWeight,
		"noWeight", election.Tally.NoWeight,
		"passed", election.Passed)
	return election, nil
}

// votingFinished reports whether the election can be summarized at now.
// Without end time nor quorum it always can.
func votingFinished(e *types.Election, now int64) bool {
	if e.EndTime == 0 && e.MinVotes == 0 {
		return true
	}
	if e.EndTime != 0 && now >= e.EndTime {
		return true
	}
	return e.MinVotes != 0 && e.Tally.NumberOfVotes >= e.MinVotes
}

// CloseElection removes the summarized election of creator and its voters
// set, and releases the changeable token account. The creator can open a new
// election afterwards. A non empty electionID must match the current election
// of creator.
func (p *Program) CloseElection(ctx context.Context, caller, creator common.Address, electionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := types.ElectionAddress(creator)
	tokenAddr := types.ChangeableTokenAddress(creator)
	var election *types.Election
	var removed int

	err := p.storage.Update(lockKeys(addr, tokenAddr), func(tx *storage.Tx) error {
		var err error
		if election, err = getElection(tx, addr); err != nil {
			return err
		}
		if caller != election.Creator {
			return fmt.Errorf("%w: %s", ErrUnauthorized, caller.Hex())
		}
		if err := matchElection(election, electionID); err != nil {
			return err
		}
		if election.Status == types.ElectionStatusActive {
			return fmt.Errorf("%w: %s", ErrElectionActive, election.ID)
		}
		if removed, err = tx.DeleteAll(storage.VoterPrefix, addr.Bytes()); err != nil {
			return err
		}
		if err := tx.Delete(storage.ElectionPrefix, addr.Bytes()); err != nil {
			return err
		}
		return releaseTokenAccount(tx, tokenAddr, election.ID)
	})
	if err != nil {
		return err
	}
	log.Infow("election closed", "id", election.ID, "creator", creator.Hex(), "voters", removed)
	return nil
}

// balanceOf returns the vote weight of holder, one when balances are not
// configured.
func (p *Program) balanceOf(ctx context.Context, token, holder common.Address) (*uint256.Int, error) {
	if p.balances == nil {
		return uint256.NewInt(1), nil
	}
	balance, err := p.balances.BalanceOf(ctx, token, holder)
	if err != nil {
		return nil, fmt.Errorf("%w: %s of %s: %w", ErrBalanceUnavailable, token.Hex(), holder.Hex(), err)
	}
	if balance == nil || balance.IsZero() {
		return nil, fmt.Errorf("%w: %s holds no %s", ErrInsufficientBalance, holder.Hex(), token.Hex())
	}
	return balance, nil
}

func getElection(tx *storage.Tx, addr common.Hash) (*types.Election, error) {
	election := &types.Election{}
	if err := tx.Get(storage.ElectionPrefix, addr.Bytes(), election); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: no election at %s", ErrNotFound, addr.Hex())
		}
		return nil, err
	}
	return election, nil
}

func lockKeys(addrs ...common.Hash) [][]byte {
	keys := make([][]byte, len(addrs))
	for i, a := range addrs {
		keys[i] = a.Bytes()
	}
	return keys
}
