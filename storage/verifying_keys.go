package storage

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/vocdoni/davinci-dao/types"
)

// VerifyingKeyHash returns the reference of a verifying key in the store.
func VerifyingKeyHash(vk []byte) types.HexBytes {
	h := sha256.Sum256(vk)
	return h[:]
}

// SetVerifyingKey stores vk inside tx under its sha256 hash and returns the
// hash. Storing the same key twice is a no-op; keys are never overwritten.
func (s *Storage) SetVerifyingKey(tx *Tx, vk []byte) (types.HexBytes, error) {
	if len(vk) == 0 {
		return nil, fmt.Errorf("empty verifying key")
	}
	ref := VerifyingKeyHash(vk)
	var stored []byte
	switch err := tx.Get(VerifyingKeyPrefix, ref, &stored); err {
	case nil:
		if !bytes.Equal(stored, vk) {
			return nil, fmt.Errorf("verifying key %s does not match its hash", ref)
		}
		return ref, nil
	case ErrNotFound:
	default:
		return nil, err
	}
	if err := tx.Set(VerifyingKeyPrefix, ref, vk); err != nil {
		return nil, fmt.Errorf("store verifying key: %w", err)
	}
	return ref, nil
}

// VerifyingKey returns the verifying key stored under ref.
func (s *Storage) VerifyingKey(ref []byte) ([]byte, error) {
	if vk, ok := s.vkCache.Get(string(ref)); ok {
		return vk, nil
	}
	var vk []byte
	if err := s.View(nil, func(tx *Tx) error {
		return tx.Get(VerifyingKeyPrefix, ref, &vk)
	}); err != nil {
		return nil, err
	}
	s.vkCache.Add(string(ref), vk)
	return vk, nil
}
