package storage

import (
	"errors"
	"fmt"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var errReadOnly = errors.New("write on a read-only transaction")

// Tx is the transaction handed to Update and View callbacks. Reads observe
// the writes already made in the same transaction.
type Tx struct {
	wTx      db.WriteTx
	readOnly bool
}

func (tx *Tx) prefixed(prefix []byte) db.WriteTx {
	return prefixeddb.NewPrefixedWriteTx(tx.wTx, prefix)
}

// Get decodes the record stored at prefix+key into out. It returns
// ErrNotFound if there is none.
func (tx *Tx) Get(prefix, key []byte, out any) error {
	data, err := tx.prefixed(prefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get %s%x: %w", prefix, key, err)
	}
	if err := DecodeArtifact(data, out); err != nil {
		return fmt.Errorf("could not decode artifact: %w", err)
	}
	return nil
}

// Has reports whether a record exists at prefix+key.
func (tx *Tx) Has(prefix, key []byte) (bool, error) {
	if _, err := tx.prefixed(prefix).Get(key); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get %s%x: %w", prefix, key, err)
	}
	return true, nil
}

// Set encodes and stores artifact at prefix+key, replacing any previous
// record.
func (tx *Tx) Set(prefix, key []byte, artifact any) error {
	if tx.readOnly {
		return errReadOnly
	}
	data, err := EncodeArtifact(artifact)
	if err != nil {
		return err
	}
	return tx.prefixed(prefix).Set(key, data)
}

// Create stores artifact at prefix+key. It returns ErrKeyAlreadyExists if
// the key is in use.
func (tx *Tx) Create(prefix, key []byte, artifact any) error {
	exists, err := tx.Has(prefix, key)
	if err != nil {
		return err
	}
	if exists {
		return ErrKeyAlreadyExists
	}
	return tx.Set(prefix, key, artifact)
}

// Delete removes the record at prefix+key.
func (tx *Tx) Delete(prefix, key []byte) error {
	if tx.readOnly {
		return errReadOnly
	}
	return tx.prefixed(prefix).Delete(key)
}

// Iterate calls fn for every record whose key starts with prefix+sub, with
// the key stripped of prefix+sub. Both slices are only valid during the
// call. Iteration stops when fn returns false.
func (tx *Tx) Iterate(prefix, sub []byte, fn func(key, value []byte) bool) error {
	return tx.prefixed(prefix).Iterate(sub, fn)
}

// DeleteAll removes every record whose key starts with prefix+sub and returns
// how many were removed.
func (tx *Tx) DeleteAll(prefix, sub []byte) (int, error) {
	if tx.readOnly {
		return 0, errReadOnly
	}
	var keys [][]byte
	if err := tx.Iterate(prefix, sub, func(k, _ []byte) bool {
		keys = append(keys, Key(sub, k))
		return true
	}); err != nil {
		return 0, fmt.Errorf("iterate %s%x: %w", prefix, sub, err)
	}
	for _, k := range keys {
		if err := tx.Delete(prefix, k); err != nil {
			return 0, fmt.Errorf("delete %s%x: %w", prefix, k, err)
		}
	}
	return len(keys), nil
}
