package election

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/davinci-dao/log"
	"github.com/vocdoni/davinci-dao/storage"
	"github.com/vocdoni/davinci-dao/types"
)

// The changeable token account of a creator is bound to the election the
// creator opens, may be modified by it when its proposal passes, and is
// released when the election is closed. All three steps run inside creator
// gated transitions.

func getTokenAccount(tx *storage.Tx, addr common.Hash) (*types.TokenAccount, error) {
	account := &types.TokenAccount{}
	if err := tx.Get(storage.TokenPrefix, addr.Bytes(), account); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: no token account at %s", ErrNotFound, addr.Hex())
		}
		return nil, err
	}
	return account, nil
}

// bindTokenAccount binds the token account to electionID, creating it on the
// first election of creator. nonce must match the election count of the
// account, which is then incremented, so a signed request is not accepted
// twice.
func bindTokenAccount(tx *storage.Tx, addr common.Hash, creator common.Address, electionID string, nonce uint64) error {
	account, err := getTokenAccount(tx, addr)
	switch {
	case errors.Is(err, ErrNotFound):
		account = &types.TokenAccount{Address: addr, Authority: creator}
	case err != nil:
		return err
	case account.Authority != creator:
		return fmt.Errorf("%w: token account %s belongs to %s", ErrUnauthorized, addr.Hex(), account.Authority.Hex())
	}
	if nonce != account.ElectionCount {
		return fmt.Errorf("%w: got %d, expected %d", ErrInvalidNonce, nonce, account.ElectionCount)
	}
	account.ElectionCount++
	account.BoundElection = electionID
	return tx.Set(storage.TokenPrefix, addr.Bytes(), account)
}

// applyProposal executes a passed newSymbol or newName proposal on the token
// account bound to e. Other proposals only signal.
func applyProposal(tx *storage.Tx, addr common.Hash, e *types.Election) error {
	if !e.Passed {
		return nil
	}
	if e.ProposalVoting != types.ProposalNewSymbol && e.ProposalVoting != types.ProposalNewName {
		return nil
	}
	account, err := getTokenAccount(tx, addr)
	if err != nil {
		return err
	}
	if account.Authority != e.Creator || account.BoundElection != e.ID {
		return fmt.Errorf("%w: token account %s is not bound to %s", ErrUnauthorized, addr.Hex(), e.ID)
	}
	switch e.ProposalVoting {
	case types.ProposalNewSymbol:
		account.Symbol = e.Value
	case types.ProposalNewName:
		account.Name = e.Value
	}
	log.Infow("proposal executed",
		"election", e.ID,
		"proposal", e.ProposalVoting,
		"value", e.Value,
		"tokenAccount", addr.Hex())
	return tx.Set(storage.TokenPrefix, addr.Bytes(), account)
}

// releaseTokenAccount unbinds the token account from electionID. An account
// already bound to another election is left untouched.
func releaseTokenAccount(tx *storage.Tx, addr common.Hash, electionID string) error {
	account, err := getTokenAccount(tx, addr)
	if err != nil {
		return err
	}
	if account.BoundElection != electionID {
		return nil
	}
	account.BoundElection = ""
	return tx.Set(storage.TokenPrefix, addr.Bytes(), account)
}

// TokenAccount returns the changeable token account of creator.
func (p *Program) TokenAccount(creator common.Address) (*types.TokenAccount, error) {
	addr := types.ChangeableTokenAddress(creator)
	var account *types.TokenAccount
	err := p.storage.View(lockKeys(addr), func(tx *storage.Tx) error {
		var err error
		account, err = getTokenAccount(tx, addr)
		return err
	})
	return account, err
}
