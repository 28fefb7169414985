package merkletree

import (
	"fmt"

	"github.com/pwrlabs/merkletree/common"
)

// This file implements the Merkle structural engine: incremental
// insertion and in-place update of leaves, with hash changes propagated
// bottom-up to the root via updateNodeHash. The mutating methods assume the
// caller already holds the tree's write lock; the read-only lookups need at
// least the read lock.

// addLeaf inserts a new leaf identified by leafHash.
func (t *Tree) addLeaf(leafHash common.Hash) error {
	if t.numLeaves == 0 {
		leafNode := newLeaf(leafHash)
		t.nodes.put(leafNode)
		t.hanging.set(0, leafHash)
		root := leafHash
		t.rootHash = &root
		t.numLeaves = 1
		t.hasUnsavedChanges = true
		return nil
	}

	if hangingHash, ok := t.hanging.get(0); ok {
		hangingLeaf, err := t.getNodeByHash(hangingHash)
		if err != nil {
			return err
		}
		switch {
		case hangingLeaf.Parent == nil:
			// Hanging leaf is itself the root: pair it with the new leaf.
			parent := newParent(t.hashFunc.Pair, &hangingHash, &leafHash)
			t.nodes.put(parent)
			hangingLeaf.Parent = &parent.Hash
			leafNode := newLeaf(leafHash)
			leafNode.Parent = &parent.Hash
			t.nodes.put(leafNode)
			t.hanging.remove(0)
			if err := t.addNode(1, parent); err != nil {
				return err
			}
		default:
			// Hanging leaf already has a parent: let that parent adopt
			// the new leaf as its missing child.
			parent, err := t.getNodeByHash(*hangingLeaf.Parent)
			if err != nil {
				return err
			}
			leafNode := newLeaf(leafHash)
			leafNode.Parent = &parent.Hash
			t.nodes.put(leafNode)
			if err := parent.addChild(leafHash); err != nil {
				return err
			}
			t.hanging.remove(0)
			if err := t.updateNodeHash(parent, parent.computeHash(t.hashFunc.Pair)); err != nil {
				return err
			}
		}
	} else {
		leafNode := newLeaf(leafHash)
		t.nodes.put(leafNode)
		t.hanging.set(0, leafHash)
		parent := newParent(t.hashFunc.Pair, &leafHash, nil)
		t.nodes.put(parent)
		leafNode.Parent = &parent.Hash
		if err := t.addNode(1, parent); err != nil {
			return err
		}
	}

	t.numLeaves++
	t.hasUnsavedChanges = true
	return nil
}

// addNode registers node (already computed, not yet linked to a parent) at
// level, recursing upward until it either fills a gap or becomes a new
// hanging node.
func (t *Tree) addNode(level int, node *Node) error {
	t.nodes.put(node)
	// The parent's child slot holds a copy of node's hash, not a pointer to
	// node.Hash, so that a later rehash of node leaves the old value in the
	// slot for replaceChild to find.
	nodeHash := node.Hash

	hangingHash, ok := t.hanging.get(level)
	if !ok {
		t.hanging.set(level, node.Hash)
		if level >= t.depth {
			t.depth = level
			root := node.Hash
			t.rootHash = &root
			return nil
		}
		parent := newParent(t.hashFunc.Pair, &nodeHash, nil)
		t.nodes.put(parent)
		node.Parent = &parent.Hash
		return t.addNode(level+1, parent)
	}

	hangingNode, err := t.getNodeByHash(hangingHash)
	if err != nil {
		return err
	}

	if hangingNode.Parent == nil {
		parent := newParent(t.hashFunc.Pair, &hangingHash, &nodeHash)
		t.nodes.put(parent)
		hangingNode.Parent = &parent.Hash
		node.Parent = &parent.Hash
		t.hanging.remove(level)
		return t.addNode(level+1, parent)
	}

	parent, err := t.getNodeByHash(*hangingNode.Parent)
	if err != nil {
		return err
	}
	node.Parent = &parent.Hash
	if err := parent.addChild(node.Hash); err != nil {
		return err
	}
	t.hanging.remove(level)
	return t.updateNodeHash(parent, parent.computeHash(t.hashFunc.Pair))
}

// updateNodeHash is the hash-propagation heart of the engine. n's
// in-memory identity changes from its current Hash to newHash; every
// structure indexing n by hash (cache, hanging registry, neighbor edges) is
// rewired, and the change propagates to n's parent, if any.
func (t *Tree) updateNodeHash(n *Node, newHash common.Hash) error {
	oldHash := n.Hash
	if oldHash == newHash {
		return nil
	}

	n.Hash = newHash
	t.nodes.rekey(n, oldHash)
	t.hanging.rewrite(oldHash, newHash)

	if n.Parent == nil {
		// n is the root.
		t.rootHash = &newHash
		if n.Left != nil {
			if err := t.setChildParent(*n.Left, newHash); err != nil {
				return err
			}
		}
		if n.Right != nil {
			if err := t.setChildParent(*n.Right, newHash); err != nil {
				return err
			}
		}
		return nil
	}

	if n.IsLeaf() {
		parent, err := t.getNodeByHash(*n.Parent)
		if err != nil {
			return err
		}
		if err := parent.replaceChild(oldHash, newHash); err != nil {
			return err
		}
		return t.updateNodeHash(parent, parent.computeHash(t.hashFunc.Pair))
	}

	// Internal node with a parent: re-point children, then propagate.
	if n.Left != nil {
		if err := t.setChildParent(*n.Left, newHash); err != nil {
			return err
		}
	}
	if n.Right != nil {
		if err := t.setChildParent(*n.Right, newHash); err != nil {
			return err
		}
	}
	parent, err := t.getNodeByHash(*n.Parent)
	if err != nil {
		return err
	}
	if err := parent.replaceChild(oldHash, newHash); err != nil {
		return err
	}
	return t.updateNodeHash(parent, parent.computeHash(t.hashFunc.Pair))
}

func (t *Tree) setChildParent(childHash, parentHash common.Hash) error {
	child, err := t.getNodeByHash(childHash)
	if err != nil {
		return err
	}
	child.Parent = &parentHash
	return nil
}

// updateLeaf locates the leaf currently identified by oldLeafHash and
// changes its identity to newLeafHash, propagating the change to the root.
func (t *Tree) updateLeaf(oldLeafHash, newLeafHash common.Hash) error {
	if oldLeafHash == newLeafHash {
		return fmt.Errorf("%w: leaf hash unchanged", ErrNoOp)
	}
	leaf, ok := t.nodes.get(oldLeafHash)
	if !ok {
		decoded, err := t.loadNode(oldLeafHash)
		if err != nil {
			return fmt.Errorf("%w: %x", ErrLeafNotFound, oldLeafHash)
		}
		leaf = decoded
		t.nodes.put(leaf)
	}
	return t.updateNodeHash(leaf, newLeafHash)
}

// getNodeByHash returns the node identified by hash, consulting the cache
// first and decoding from storage on a miss.
func (t *Tree) getNodeByHash(hash common.Hash) (*Node, error) {
	if n, ok := t.nodes.get(hash); ok {
		return n, nil
	}
	n, err := t.loadNode(hash)
	if err != nil {
		return nil, err
	}
	t.nodes.put(n)
	return n, nil
}

func (t *Tree) loadNode(hash common.Hash) (*Node, error) {
	raw, ok, err := t.storage.Get(common.NodesSpace, hash[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no node stored under hash %x", ErrCorruptedTree, hash)
	}
	return DecodeNode(raw)
}

// addOrUpdateData is the public entry point for inserting or modifying a
// record. Caller must hold the write lock.
func (t *Tree) addOrUpdateData(key, value []byte) error {
	if key == nil || value == nil {
		return fmt.Errorf("%w: key and value must not be nil", ErrInvalidArgument)
	}

	existing, hadValue, err := t.lookupValue(key)
	if err != nil {
		return err
	}

	newLeafHash := t.hashFunc.Leaf(key, value)
	if hadValue {
		oldLeafHash := t.hashFunc.Leaf(key, existing)
		if oldLeafHash == newLeafHash {
			return nil
		}
		t.keyData.put(key, value)
		t.hasUnsavedChanges = true
		return t.updateLeaf(oldLeafHash, newLeafHash)
	}

	t.keyData.put(key, value)
	t.hasUnsavedChanges = true
	return t.addLeaf(newLeafHash)
}

func (t *Tree) lookupValue(key []byte) (value []byte, ok bool, err error) {
	if v, cached := t.keyData.get(key); cached {
		return v, true, nil
	}
	raw, found, err := t.storage.Get(common.KeyDataSpace, key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return raw, found, nil
}

// getData returns the value stored under key, if any. Caller must hold at
// least the read lock.
func (t *Tree) getData(key []byte) ([]byte, bool, error) {
	return t.lookupValue(key)
}

// containsKey reports whether key has an associated value.
func (t *Tree) containsKey(key []byte) (bool, error) {
	_, ok, err := t.lookupValue(key)
	return ok, err
}

// getAllKeys returns every key known to the tree, merging the key-data
// cache with what is already committed to storage.
func (t *Tree) getAllKeys() ([][]byte, error) {
	seen := make(map[string]bool)
	var keys [][]byte

	t.keyData.forEach(func(k, _ []byte) {
		seen[string(k)] = true
		keys = append(keys, k)
	})

	err := t.storage.Iterate(common.KeyDataSpace, func(k, _ []byte) bool {
		if !seen[string(k)] {
			cp := append([]byte(nil), k...)
			keys = append(keys, cp)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return keys, nil
}

// getAllData returns every stored value, in the same order as getAllKeys.
func (t *Tree) getAllData() ([][]byte, error) {
	keys, err := t.getAllKeys()
	if err != nil {
		return nil, err
	}
	values := make([][]byte, 0, len(keys))
	for _, k := range keys {
		v, ok, err := t.lookupValue(k)
		if err != nil {
			return nil, err
		}
		if ok {
			values = append(values, v)
		}
	}
	return values, nil
}

// keysAndTheirValues returns parallel key/value slices for every record.
func (t *Tree) keysAndTheirValues() ([][]byte, [][]byte, error) {
	keys, err := t.getAllKeys()
	if err != nil {
		return nil, nil, err
	}
	values := make([][]byte, 0, len(keys))
	for _, k := range keys {
		v, _, err := t.lookupValue(k)
		if err != nil {
			return nil, nil, err
		}
		values = append(values, v)
	}
	return keys, values, nil
}
