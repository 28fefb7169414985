package merkletree

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/pwrlabs/merkletree/common"
)

const (
	metaRootHash          = "rootHash"
	metaNumLeaves         = "numLeaves"
	metaDepth             = "depth"
	metaHangingNodePrefix = "hangingNode"
)

func hangingNodeKey(level int) string {
	return fmt.Sprintf("%s%d", metaHangingNodePrefix, level)
}

// hashSerializer encodes/decodes the fixed-width Hash rows written into
// MetaDataSpace (root hash, hanging-node hashes).
var hashSerializer common.HashSerializer

func encodeUint32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

// flushToDisk commits every pending mutation in a single atomic batch. It
// is a no-op when hasUnsavedChanges is false.
func (t *Tree) flushToDisk(releaseStorage bool) error {
	if !t.hasUnsavedChanges {
		if releaseStorage {
			return t.releaseDatabase()
		}
		return nil
	}
	if err := t.ensureOpen(); err != nil {
		return err
	}
	start := time.Now()

	batch := t.storage.NewBatch()

	batch.DeleteRange(common.MetaDataSpace)

	if t.rootHash != nil {
		batch.Put(common.MetaDataSpace, []byte(metaRootHash), hashSerializer.ToBytes(*t.rootHash))
	}
	batch.Put(common.MetaDataSpace, []byte(metaNumLeaves), encodeUint32(t.numLeaves))
	batch.Put(common.MetaDataSpace, []byte(metaDepth), encodeUint32(uint32(t.depth)))
	for level, hash := range t.hanging.byLevel {
		batch.Put(common.MetaDataSpace, []byte(hangingNodeKey(level)), hashSerializer.ToBytes(hash))
	}

	t.nodes.forEach(func(n *Node) {
		batch.Put(common.NodesSpace, n.Hash[:], n.Encode())
		if n.pendingOldHash != nil {
			batch.Delete(common.NodesSpace, n.pendingOldHash[:])
		}
	})

	t.keyData.forEach(func(key, value []byte) {
		batch.Put(common.KeyDataSpace, key, value)
	})

	if err := t.storage.WriteBatch(batch); err != nil {
		return fmt.Errorf("%w: committing flush batch: %v", ErrIO, err)
	}

	t.nodes.clear()
	t.keyData.clear()
	t.hasUnsavedChanges = false

	t.cfg.Logger.Infow("tree flushed", "tree", t.name, "numLeaves", t.numLeaves, "depth", t.depth)
	if t.cfg.OnFlush != nil {
		t.cfg.OnFlush(time.Since(start))
	}

	if releaseStorage {
		return t.releaseDatabase()
	}
	return nil
}

// Flush commits pending changes without releasing storage handles.
func (t *Tree) Flush() error {
	owner := new(int)
	if err := t.acquireWrite(owner); err != nil {
		return err
	}
	defer t.lock.ReleaseWrite(owner)
	return t.flushToDisk(false)
}

// revertUnsavedChanges discards every uncommitted mutation and reloads
// metadata from storage.
func (t *Tree) revertUnsavedChanges() error {
	if !t.hasUnsavedChanges {
		return nil
	}
	t.nodes.clear()
	t.hanging.clear()
	t.keyData.clear()
	if err := t.loadMetaData(); err != nil {
		return err
	}
	t.hasUnsavedChanges = false
	return nil
}

// RevertUnsavedChanges is the public facade for revertUnsavedChanges.
func (t *Tree) RevertUnsavedChanges() error {
	owner := new(int)
	if err := t.acquireWrite(owner); err != nil {
		return err
	}
	defer t.lock.ReleaseWrite(owner)
	return t.revertUnsavedChanges()
}

// loadMetaData reads root hash, leaf count, depth and every occupied
// hanging-node level from storage.
func (t *Tree) loadMetaData() error {
	t.rootHash = nil
	t.numLeaves = 0
	t.depth = 0
	t.hanging.clear()

	if raw, ok, err := t.storage.Get(common.MetaDataSpace, []byte(metaRootHash)); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	} else if ok {
		h := hashSerializer.FromBytes(raw)
		t.rootHash = &h
	}

	if raw, ok, err := t.storage.Get(common.MetaDataSpace, []byte(metaNumLeaves)); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	} else if ok {
		t.numLeaves = binary.BigEndian.Uint32(raw)
	}

	if raw, ok, err := t.storage.Get(common.MetaDataSpace, []byte(metaDepth)); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	} else if ok {
		t.depth = int(binary.BigEndian.Uint32(raw))
	}

	for level := 0; level <= t.depth; level++ {
		raw, ok, err := t.storage.Get(common.MetaDataSpace, []byte(hangingNodeKey(level)))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		if !ok {
			continue
		}
		h := hashSerializer.FromBytes(raw)
		if _, ok, err := t.storage.Get(common.NodesSpace, hashSerializer.ToBytes(h)); err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		} else if !ok {
			return fmt.Errorf("%w: hanging node at level %d references missing hash %x", ErrCorruptedTree, level, h)
		}
		t.hanging.set(level, h)
	}
	return nil
}

// Clear wipes all state, both persisted and in-memory.
func (t *Tree) Clear() error {
	owner := new(int)
	if err := t.acquireWrite(owner); err != nil {
		return err
	}
	defer t.lock.ReleaseWrite(owner)
	if err := t.ensureOpen(); err != nil {
		return err
	}

	for _, space := range []common.TableSpace{common.DefaultSpace, common.MetaDataSpace, common.NodesSpace, common.KeyDataSpace} {
		if err := t.storage.DeleteRange(space); err != nil {
			return fmt.Errorf("%w: clearing %v: %v", ErrIO, space, err)
		}
	}

	t.nodes.clear()
	t.keyData.clear()
	t.hanging.clear()
	t.rootHash = nil
	t.numLeaves = 0
	t.depth = 0
	t.hasUnsavedChanges = false
	return nil
}

// Clone flushes this tree and materializes a full on-disk copy under
// newName, returning a freshly opened Tree over it.
func (t *Tree) Clone(newName, targetDir string, reopen func() (Storage, error)) (*Tree, error) {
	owner := new(int)
	if err := t.acquireWrite(owner); err != nil {
		return nil, err
	}
	defer t.lock.ReleaseWrite(owner)
	if err := t.ensureOpen(); err != nil {
		return nil, err
	}
	if err := t.flushToDisk(false); err != nil {
		return nil, err
	}

	registryMu.Lock()
	if existing, ok := openTrees[newName]; ok {
		registryMu.Unlock()
		if err := existing.Close(); err != nil {
			return nil, err
		}
	} else {
		registryMu.Unlock()
	}

	if err := os.RemoveAll(targetDir); err != nil {
		return nil, fmt.Errorf("%w: clearing target directory: %v", ErrIO, err)
	}
	if err := t.storage.Checkpoint(targetDir); err != nil {
		return nil, fmt.Errorf("%w: checkpointing to %q: %v", ErrIO, targetDir, err)
	}

	storage, err := reopen()
	if err != nil {
		return nil, fmt.Errorf("%w: opening clone storage: %v", ErrIO, err)
	}
	clone, err := Open(newName, storage, t.cfg, reopen)
	if err != nil {
		return nil, err
	}
	t.cfg.Logger.Infow("tree cloned", "from", t.name, "to", newName)
	return clone, nil
}

// Update resynchronizes this tree's state to mirror source. When both
// trees' on-disk root hashes already match, this is a cheap
// in-memory cache copy; otherwise this tree's directory is rebuilt from a
// fresh checkpoint of source.
func (t *Tree) Update(source *Tree, targetDir string, reopen func() (Storage, error)) error {
	ownerThis := new(int)
	if err := t.acquireWrite(ownerThis); err != nil {
		return err
	}
	defer t.lock.ReleaseWrite(ownerThis)

	ownerSrc := new(int)
	if err := source.acquireWrite(ownerSrc); err != nil {
		return err
	}
	defer source.lock.ReleaseWrite(ownerSrc)

	thisOnDisk, err := t.onDiskRootHashLocked()
	if err != nil {
		return err
	}
	srcOnDisk, err := source.onDiskRootHashLocked()
	if err != nil {
		return err
	}

	if hashesEqual(thisOnDisk, srcOnDisk) {
		t.copyCacheFrom(source)
		return nil
	}

	if err := t.releaseDatabase(); err != nil {
		return err
	}
	if err := source.flushToDisk(false); err != nil {
		return err
	}
	if err := os.RemoveAll(targetDir); err != nil {
		return fmt.Errorf("%w: clearing %q: %v", ErrIO, targetDir, err)
	}
	if err := source.storage.Checkpoint(targetDir); err != nil {
		return fmt.Errorf("%w: checkpointing source into %q: %v", ErrIO, targetDir, err)
	}
	storage, err := reopen()
	if err != nil {
		return fmt.Errorf("%w: reopening storage after update: %v", ErrIO, err)
	}
	t.storage = storage
	t.dormant = false
	t.nodes.clear()
	t.keyData.clear()
	t.hanging.clear()
	if err := t.loadMetaData(); err != nil {
		return err
	}
	t.cfg.Logger.Infow("tree updated from source", "tree", t.name, "source", source.name)
	return nil
}

func (t *Tree) onDiskRootHashLocked() (*common.Hash, error) {
	if err := t.ensureOpen(); err != nil {
		return nil, err
	}
	raw, ok, err := t.storage.Get(common.MetaDataSpace, []byte(metaRootHash))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if !ok {
		return nil, nil
	}
	h := hashSerializer.FromBytes(raw)
	return &h, nil
}

func hashesEqual(a, b *common.Hash) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// copyCacheFrom deep-copies source's in-memory state into t, used by the
// cheap path of Update when both trees already agree on-disk.
func (t *Tree) copyCacheFrom(source *Tree) {
	t.nodes = newNodeCache()
	source.nodes.forEach(func(n *Node) {
		cp := *n
		t.nodes.put(&cp)
	})

	t.keyData = newKeyDataCache()
	source.keyData.forEach(func(k, v []byte) {
		t.keyData.put(k, v)
	})

	t.hanging = newHangingRegistry()
	for level, h := range source.hanging.byLevel {
		t.hanging.set(level, h)
	}

	t.numLeaves = source.numLeaves
	t.depth = source.depth
	if source.rootHash != nil {
		h := *source.rootHash
		t.rootHash = &h
	} else {
		t.rootHash = nil
	}
	t.hasUnsavedChanges = source.hasUnsavedChanges
}

// releaseDatabase closes storage handles while retaining in-memory caches,
// entering the Dormant state.
func (t *Tree) releaseDatabase() error {
	if t.dormant || t.closed {
		return nil
	}
	if err := t.storage.Close(); err != nil {
		t.cfg.Logger.Warnw("failed to close storage handle", "tree", t.name, "err", err.Error())
	}
	t.dormant = true
	return nil
}

// Close idempotently flushes and releases this tree, removing it from the
// process-wide registry. Subsequent operations fail with ErrTreeClosed.
func (t *Tree) Close() error {
	owner := new(int)
	if err := t.acquireWrite(owner); err != nil {
		return err
	}
	defer t.lock.ReleaseWrite(owner)

	if t.closed {
		return nil
	}
	if err := t.flushToDisk(true); err != nil {
		return err
	}
	t.closed = true
	unregisterTree(t.name)
	t.cfg.Logger.Infow("tree closed", "tree", t.name)
	return nil
}
