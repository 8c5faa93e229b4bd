/*
Package storage is the ledger of the election program: a key-value database
in which every entry point runs as one atomic, serialized write transaction.

# Storage Organization

Records are CBOR encoded and stored under prefixed namespaces:

  - e/  : electionAddress → Election
  - ev/ : electionAddress + voter → VoterEntry (voters set of the election)
  - r/  : userAddress → RewardAccount
  - t/  : changeableTokenAddress → TokenAccount
  - vk/ : sha256(verifyingKey) → verifying key bytes (write once)

# Transactions

Update and View receive the addresses a call touches. The addresses are
locked in sorted order with one mutex per address, so calls on unrelated
elections run in parallel while calls on the same election are serialized.
Inside the lock a single database write transaction is used; it is committed
only if the callback returns nil.
*/
package storage

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vocdoni/davinci-dao/log"
	"go.vocdoni.io/dvote/db"
)

var (
	ErrKeyAlreadyExists = errors.New("key already exists")
	ErrNotFound         = errors.New("not found")

	// Prefixes
	ElectionPrefix     = []byte("e/")
	VoterPrefix        = []byte("ev/")
	RewardPrefix       = []byte("r/")
	TokenPrefix        = []byte("t/")
	VerifyingKeyPrefix = []byte("vk/")
)

const verifyingKeyCacheSize = 64

// Storage wraps the database with per-address locking and a cache of the
// verifying keys, which are immutable once written.
type Storage struct {
	db      db.Database
	locks   *keyLocks
	vkCache *lru.Cache[string, []byte]
}

// New creates a new Storage instance over db.
func New(db db.Database) *Storage {
	cache, err := lru.New[string, []byte](verifyingKeyCacheSize)
	if err != nil {
		log.Fatalf("failed to create LRU cache: %v", err)
	}
	return &Storage{
		db:      db,
		locks:   newKeyLocks(),
		vkCache: cache,
	}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("failed to close storage", "error", err)
	}
}

// Update locks keys, runs fn inside a write transaction and commits it if fn
// returns nil. Any error discards every write made by fn.
func (s *Storage) Update(keys [][]byte, fn func(tx *Tx) error) error {
	unlock := s.locks.lock(keys)
	defer unlock()

	wTx := s.db.WriteTx()
	defer wTx.Discard()
	if err := fn(&Tx{wTx: wTx}); err != nil {
		return err
	}
	if err := wTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// View locks keys and runs fn over a transaction that is always discarded.
// The locks give fn a consistent snapshot of the records of those keys.
func (s *Storage) View(keys [][]byte, fn func(tx *Tx) error) error {
	unlock := s.locks.lock(keys)
	defer unlock()

	wTx := s.db.WriteTx()
	defer wTx.Discard()
	return fn(&Tx{wTx: wTx, readOnly: true})
}

// Key concatenates parts into a new storage key.
func Key(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	key := make([]byte, 0, n)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}
