package election

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/davinci-dao/storage"
	"github.com/vocdoni/davinci-dao/types"
)

// Election returns the election currently stored for creator.
func (p *Program) Election(creator common.Address) (*types.Election, error) {
	addr := types.ElectionAddress(creator)
	var election *types.Election
	err := p.storage.View(lockKeys(addr), func(tx *storage.Tx) error {
		var err error
		election, err = getElection(tx, addr)
		return err
	})
	return election, err
}

// Results returns a snapshot of the election of creator with its voters in
// admission order. It works in any state until the election is closed.
func (p *Program) Results(creator common.Address) (*types.ElectionResults, error) {
	addr := types.ElectionAddress(creator)
	results := &types.ElectionResults{}
	err := p.storage.View(lockKeys(addr), func(tx *storage.Tx) error {
		election, err := getElection(tx, addr)
		if err != nil {
			return err
		}
		type voter struct {
			addr common.Address
			seq  uint64
		}
		voters := make([]voter, 0, election.Tally.NumberOfVotes)
		var decodeErr error
		if err := tx.Iterate(storage.VoterPrefix, addr.Bytes(), func(k, v []byte) bool {
			var entry types.VoterEntry
			if decodeErr = storage.DecodeArtifact(v, &entry); decodeErr != nil {
				return false
			}
			voters = append(voters, voter{addr: common.BytesToAddress(k), seq: entry.Seq})
			return true
		}); err != nil {
			return fmt.Errorf("could not list voters: %w", err)
		}
		if decodeErr != nil {
			return fmt.Errorf("could not decode voter entry: %w", decodeErr)
		}
		slices.SortFunc(voters, func(a, b voter) int {
			switch {
			case a.seq < b.seq:
				return -1
			case a.seq > b.seq:
				return 1
			}
			return 0
		})
		results.Election = election
		results.Voters = make([]common.Address, len(voters))
		for i, v := range voters {
			results.Voters[i] = v.addr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// VerifyingKey returns the verifying key stored under ref.
func (p *Program) VerifyingKey(ref []byte) ([]byte, error) {
	vk, err := p.storage.VerifyingKey(ref)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: no verifying key %x", ErrNotFound, ref)
	}
	return vk, err
}
