package merkletree

import "github.com/pwrlabs/merkletree/common"

// Batch accumulates puts and deletes across any subset of the four table
// spaces for atomic application via Storage.WriteBatch.
type Batch interface {
	Put(space common.TableSpace, key, value []byte)
	Delete(space common.TableSpace, key []byte)

	// DeleteRange stages the removal of every row in space as part of this
	// batch, so a space can be wiped and repopulated in one atomic commit.
	DeleteRange(space common.TableSpace)
}

//go:generate mockgen -source storage.go -destination storage_mocks.go -package merkletree

// Storage is the minimal capability set the persistence manager requires of
// an embedded ordered key-value engine: point reads, atomic
// batched writes, forward iteration, range delete and whole-store
// checkpointing. storage/pebblestore provides the concrete implementation
// used by Tree; tests may substitute an in-memory fake satisfying the same
// interface.
type Storage interface {
	// Get returns the value stored under key in space, or ok=false if
	// absent.
	Get(space common.TableSpace, key []byte) (value []byte, ok bool, err error)

	// NewBatch creates an empty Batch to accumulate writes for WriteBatch.
	NewBatch() Batch

	// WriteBatch commits b atomically.
	WriteBatch(b Batch) error

	// Iterate calls f with every (key, value) pair currently committed in
	// space, in ascending key order, until f returns false.
	Iterate(space common.TableSpace, f func(key, value []byte) bool) error

	// DeleteRange removes every row in space, whatever bytes its key
	// starts with.
	DeleteRange(space common.TableSpace) error

	// Checkpoint materializes a full, consistent on-disk copy of the store
	// at targetDir.
	Checkpoint(targetDir string) error

	// Close releases the storage handle. Safe to call once.
	Close() error

	common.MemoryFootprintProvider
}
