package election

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/davinci-dao/storage"
	"github.com/vocdoni/davinci-dao/types"
)

// creditVote adds one reward point to the account of voter, creating it if
// needed. It must run in the transaction that admits the vote.
func creditVote(tx *storage.Tx, voter common.Address, electionID string) (*types.RewardAccount, error) {
	key := types.UserAddress(voter).Bytes()
	account := &types.RewardAccount{}
	if err := tx.Get(storage.RewardPrefix, key, account); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		account = &types.RewardAccount{Owner: voter}
	}
	if account.RewardPoints == ^uint64(0) {
		return nil, fmt.Errorf("%w: reward points of %s", ErrCounterOverflow, voter.Hex())
	}
	account.RewardPoints++
	account.LastElection = electionID
	if err := tx.Set(storage.RewardPrefix, key, account); err != nil {
		return nil, err
	}
	return account, nil
}

// RewardAccount returns the reward account of voter, or ErrNotFound if the
// voter never voted.
func (p *Program) RewardAccount(voter common.Address) (*types.RewardAccount, error) {
	addr := types.UserAddress(voter)
	account := &types.RewardAccount{}
	err := p.storage.View(lockKeys(addr), func(tx *storage.Tx) error {
		return tx.Get(storage.RewardPrefix, addr.Bytes(), account)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: no reward account for %s", ErrNotFound, voter.Hex())
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

// RewardPoints returns the reward points of voter, zero if the voter never
// voted.
func (p *Program) RewardPoints(voter common.Address) (uint64, error) {
	account, err := p.RewardAccount(voter)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.RewardPoints, nil
}
