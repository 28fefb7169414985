// Package pebblestore implements merkletree.Storage over a single
// cockroachdb/pebble database, emulating the tree's four column families by
// prefixing every key with its common.TableSpace byte.
package pebblestore

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/pwrlabs/merkletree/common"
	"github.com/pwrlabs/merkletree/merkletree"
)

// Store is a pebble-backed merkletree.Storage.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if absent) a pebble database at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble database at %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Get implements merkletree.Storage.
func (s *Store) Get(space common.TableSpace, key []byte) ([]byte, bool, error) {
	val, closer, err := s.db.Get(space.ToDBKey(key))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, true, nil
}

type batch struct {
	pb *pebble.Batch
}

func (b *batch) Put(space common.TableSpace, key, value []byte) {
	_ = b.pb.Set(space.ToDBKey(key), value, nil)
}

func (b *batch) Delete(space common.TableSpace, key []byte) {
	_ = b.pb.Delete(space.ToDBKey(key), nil)
}

func (b *batch) DeleteRange(space common.TableSpace) {
	lower := []byte{space.Prefix()}
	upper := []byte{space.Prefix() + 1}
	_ = b.pb.DeleteRange(lower, upper, nil)
}

// NewBatch implements merkletree.Storage.
func (s *Store) NewBatch() merkletree.Batch {
	return &batch{pb: s.db.NewBatch()}
}

// WriteBatch implements merkletree.Storage.
func (s *Store) WriteBatch(b merkletree.Batch) error {
	pb := b.(*batch).pb
	return s.db.Apply(pb, pebble.Sync)
}

// Iterate implements merkletree.Storage.
func (s *Store) Iterate(space common.TableSpace, f func(key, value []byte) bool) error {
	lower := []byte{space.Prefix()}
	upper := []byte{space.Prefix() + 1}
	iter := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := make([]byte, len(iter.Key())-1)
		copy(key, iter.Key()[1:])
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		if !f(key, value) {
			break
		}
	}
	return iter.Error()
}

// DeleteRange implements merkletree.Storage, dropping every row whose key
// carries space's prefix byte.
func (s *Store) DeleteRange(space common.TableSpace) error {
	lower := []byte{space.Prefix()}
	upper := []byte{space.Prefix() + 1}
	return s.db.DeleteRange(lower, upper, pebble.Sync)
}

// Checkpoint implements merkletree.Storage.
func (s *Store) Checkpoint(targetDir string) error {
	return s.db.Checkpoint(targetDir)
}

// Close implements merkletree.Storage.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetMemoryFootprint implements common.MemoryFootprintProvider, reporting
// pebble's own block-cache and memtable estimate.
func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	metrics := s.db.Metrics()
	size := uintptr(metrics.BlockCache.Size) + uintptr(metrics.MemTable.Size)
	return common.NewMemoryFootprint(size)
}
