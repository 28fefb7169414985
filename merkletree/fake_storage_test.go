package merkletree

import (
	"sort"
	"sync"

	"github.com/pwrlabs/merkletree/common"
)

// fakeStorage is an in-memory Storage used by engine/tree/persistence tests
// in place of storage/pebblestore, avoiding a real on-disk database per test.
type fakeStorage struct {
	mu     sync.Mutex
	rows   map[common.TableSpace]map[string][]byte
	closed bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{rows: make(map[common.TableSpace]map[string][]byte)}
}

func (s *fakeStorage) Get(space common.TableSpace, key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.rows[space][string(key)]
	return v, ok, nil
}

type fakeBatchOp struct {
	space      common.TableSpace
	key        []byte
	value      []byte
	delete     bool
	deleteSpan bool
}

type fakeBatch struct {
	ops []fakeBatchOp
}

func (b *fakeBatch) Put(space common.TableSpace, key, value []byte) {
	b.ops = append(b.ops, fakeBatchOp{space: space, key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}

func (b *fakeBatch) Delete(space common.TableSpace, key []byte) {
	b.ops = append(b.ops, fakeBatchOp{space: space, key: append([]byte(nil), key...), delete: true})
}

func (b *fakeBatch) DeleteRange(space common.TableSpace) {
	b.ops = append(b.ops, fakeBatchOp{space: space, deleteSpan: true})
}

func (s *fakeStorage) NewBatch() Batch {
	return &fakeBatch{}
}

func (s *fakeStorage) WriteBatch(b Batch) error {
	fb := b.(*fakeBatch)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range fb.ops {
		if op.deleteSpan {
			s.rows[op.space] = make(map[string][]byte)
			continue
		}
		if s.rows[op.space] == nil {
			s.rows[op.space] = make(map[string][]byte)
		}
		if op.delete {
			delete(s.rows[op.space], string(op.key))
			continue
		}
		s.rows[op.space][string(op.key)] = op.value
	}
	return nil
}

func (s *fakeStorage) Iterate(space common.TableSpace, f func(key, value []byte) bool) error {
	s.mu.Lock()
	keys := make([]string, 0, len(s.rows[space]))
	for k := range s.rows[space] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := s.rows[space]
	s.mu.Unlock()

	for _, k := range keys {
		if !f([]byte(k), rows[k]) {
			break
		}
	}
	return nil
}

func (s *fakeStorage) DeleteRange(space common.TableSpace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[space] = make(map[string][]byte)
	return nil
}

// fakeCheckpoints models the directory-addressed snapshots a real storage
// engine's checkpoint facility would write to disk, so that a reopen
// callback following Checkpoint(targetDir) can read back what was actually
// there at checkpoint time instead of an unrelated empty store.
var fakeCheckpoints = struct {
	mu    sync.Mutex
	byDir map[string]map[common.TableSpace]map[string][]byte
}{byDir: make(map[string]map[common.TableSpace]map[string][]byte)}

func (s *fakeStorage) Checkpoint(targetDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[common.TableSpace]map[string][]byte, len(s.rows))
	for space, rows := range s.rows {
		copied := make(map[string][]byte, len(rows))
		for k, v := range rows {
			copied[k] = append([]byte(nil), v...)
		}
		snapshot[space] = copied
	}
	fakeCheckpoints.mu.Lock()
	fakeCheckpoints.byDir[targetDir] = snapshot
	fakeCheckpoints.mu.Unlock()
	return nil
}

// newFakeStorageFromCheckpoint builds a fakeStorage seeded with whatever
// Checkpoint(targetDir) last wrote, for a test's reopen callback to use
// after Tree.Clone/Tree.Update materializes one.
func newFakeStorageFromCheckpoint(targetDir string) *fakeStorage {
	fakeCheckpoints.mu.Lock()
	snapshot := fakeCheckpoints.byDir[targetDir]
	fakeCheckpoints.mu.Unlock()

	s := newFakeStorage()
	for space, rows := range snapshot {
		copied := make(map[string][]byte, len(rows))
		for k, v := range rows {
			copied[k] = append([]byte(nil), v...)
		}
		s.rows[space] = copied
	}
	return s
}

func (s *fakeStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStorage) GetMemoryFootprint() *common.MemoryFootprint {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n uintptr
	for _, rows := range s.rows {
		for k, v := range rows {
			n += uintptr(len(k) + len(v))
		}
	}
	return common.NewMemoryFootprint(n)
}
