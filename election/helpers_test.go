package election

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/vocdoni/davinci-dao/storage"
	"github.com/vocdoni/davinci-dao/zk"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	testVK          = []byte("test verifying key")
	validProof      = []byte("valid proof")
	validInput      = []byte("valid public input")
	testToken       = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	creatorAddress  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	strangerAddress = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

// testVerifier admits only validProof with validInput.
type testVerifier struct{}

func (testVerifier) Verify(vk, proof, publicInput []byte) error {
	if !bytes.Equal(vk, testVK) {
		return zk.ErrInvalidProof
	}
	if bytes.Equal(proof, validProof) && bytes.Equal(publicInput, validInput) {
		return nil
	}
	return zk.ErrInvalidProof
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mapBalances struct {
	mu       sync.Mutex
	balances map[common.Address]*uint256.Int
	err      error
}

func (m *mapBalances) BalanceOf(_ context.Context, _, holder common.Address) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if b, ok := m.balances[holder]; ok {
		return b, nil
	}
	return new(uint256.Int), nil
}

func voterAddress(i int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0x5000 + i)))
}

func newTestProgram(t *testing.T, opts ...Option) (*Program, *storage.Storage) {
	st := storage.New(metadb.NewTest(t))
	opts = append([]Option{WithDefaultVerifyingKey(testVK)}, opts...)
	return New(st, testVerifier{}, opts...), st
}

// nextNonce returns the nonce the next election of creator must carry.
func nextNonce(t *testing.T, p *Program, creator common.Address) uint64 {
	account, err := p.TokenAccount(creator)
	if errors.Is(err, ErrNotFound) {
		return 0
	}
	if err != nil {
		t.Fatalf("could not get token account: %v", err)
	}
	return account.ElectionCount
}

func newTestElection(t *testing.T, p *Program, creator common.Address, proposal, value string) string {
	e, err := p.NewPolling(context.Background(), creator, NewPollingParams{
		EligibilityToken: testToken,
		ProposalVoting:   proposal,
		Value:            value,
		Nonce:            nextNonce(t, p, creator),
	})
	if err != nil {
		t.Fatalf("could not create election: %v", err)
	}
	return e.ID
}

func validVote(choice bool) VoteParams {
	return VoteParams{Choice: choice, Proof: validProof, PublicInput: validInput}
}

func storageHash(vk []byte) []byte {
	return storage.VerifyingKeyHash(vk)
}
