package storage

import (
	"errors"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"
)

var testPrefix = []byte("x/")

type counter struct {
	Value uint64
}

func newTestStorage(t *testing.T) *Storage {
	return New(metadb.NewTest(t))
}

func TestUpdateCommitAndRollback(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)
	key := []byte("a")

	err := st.Update([][]byte{key}, func(tx *Tx) error {
		return tx.Set(testPrefix, key, &counter{Value: 1})
	})
	c.Assert(err, qt.IsNil)

	boom := errors.New("boom")
	err = st.Update([][]byte{key}, func(tx *Tx) error {
		if err := tx.Set(testPrefix, key, &counter{Value: 2}); err != nil {
			return err
		}
		// read your own write inside the transaction
		var got counter
		if err := tx.Get(testPrefix, key, &got); err != nil {
			return err
		}
		c.Assert(got.Value, qt.Equals, uint64(2))
		return boom
	})
	c.Assert(err, qt.ErrorIs, boom)

	var got counter
	c.Assert(st.View([][]byte{key}, func(tx *Tx) error {
		return tx.Get(testPrefix, key, &got)
	}), qt.IsNil)
	c.Assert(got.Value, qt.Equals, uint64(1))
}

func TestTxHelpers(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)

	err := st.Update(nil, func(tx *Tx) error {
		var out counter
		c.Assert(tx.Get(testPrefix, []byte("missing"), &out), qt.Equals, ErrNotFound)

		c.Assert(tx.Create(testPrefix, []byte("k"), &counter{Value: 7}), qt.IsNil)
		c.Assert(tx.Create(testPrefix, []byte("k"), &counter{Value: 8}), qt.Equals, ErrKeyAlreadyExists)
		has, err := tx.Has(testPrefix, []byte("k"))
		c.Assert(err, qt.IsNil)
		c.Assert(has, qt.IsTrue)

		for _, k := range []string{"grp1-a", "grp1-b", "grp2-a"} {
			c.Assert(tx.Set(testPrefix, []byte(k), &counter{}), qt.IsNil)
		}
		return nil
	})
	c.Assert(err, qt.IsNil)

	err = st.Update(nil, func(tx *Tx) error {
		n, err := tx.DeleteAll(testPrefix, []byte("grp1-"))
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, 2)
		return nil
	})
	c.Assert(err, qt.IsNil)

	var keys []string
	c.Assert(st.View(nil, func(tx *Tx) error {
		return tx.Iterate(testPrefix, nil, func(k, _ []byte) bool {
			keys = append(keys, string(k))
			return true
		})
	}), qt.IsNil)
	c.Assert(keys, qt.DeepEquals, []string{"grp2-a", "k"})
}

func TestViewIsReadOnly(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)

	err := st.View(nil, func(tx *Tx) error {
		return tx.Set(testPrefix, []byte("a"), &counter{})
	})
	c.Assert(err, qt.ErrorIs, errReadOnly)
}

func TestUpdateSerializesSameKey(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)
	key := []byte("shared")

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// duplicated keys must not deadlock
			err := st.Update([][]byte{key, []byte("other"), key}, func(tx *Tx) error {
				var cnt counter
				if err := tx.Get(testPrefix, key, &cnt); err != nil && err != ErrNotFound {
					return err
				}
				cnt.Value++
				return tx.Set(testPrefix, key, &cnt)
			})
			c.Check(err, qt.IsNil)
		}()
	}
	wg.Wait()

	var cnt counter
	c.Assert(st.View([][]byte{key}, func(tx *Tx) error {
		return tx.Get(testPrefix, key, &cnt)
	}), qt.IsNil)
	c.Assert(cnt.Value, qt.Equals, uint64(workers))
	c.Assert(st.locks.size(), qt.Equals, 0)
}

func TestVerifyingKeys(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)
	vk := []byte("verifying key bytes")

	var ref []byte
	err := st.Update(nil, func(tx *Tx) error {
		var err error
		ref, err = st.SetVerifyingKey(tx, vk)
		return err
	})
	c.Assert(err, qt.IsNil)
	c.Assert(ref, qt.DeepEquals, []byte(VerifyingKeyHash(vk)))

	// write once: storing it again returns the same reference
	err = st.Update(nil, func(tx *Tx) error {
		again, err := st.SetVerifyingKey(tx, vk)
		c.Assert([]byte(again), qt.DeepEquals, ref)
		return err
	})
	c.Assert(err, qt.IsNil)

	got, err := st.VerifyingKey(ref)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, vk)
	// served from the cache the second time
	got, err = st.VerifyingKey(ref)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, vk)

	_, err = st.VerifyingKey(VerifyingKeyHash([]byte("unknown")))
	c.Assert(err, qt.Equals, ErrNotFound)

	err = st.Update(nil, func(tx *Tx) error {
		_, err := st.SetVerifyingKey(tx, nil)
		return err
	})
	c.Assert(err, qt.IsNotNil)
}
