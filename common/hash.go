package common

import (
	"sync"

	"golang.org/x/crypto/sha3"
)

// HashLeaf computes the hash of a leaf node from its key and value, H(key,
// value) in the tree's terms.
func HashLeaf(key, value []byte) Hash {
	hasher := hasherPool.Get().(*sha3State)
	defer hasherPool.Put(hasher)
	hasher.h.Reset()
	hasher.h.Write(key)
	hasher.h.Write(value)
	var res Hash
	hasher.h.Read(res[:])
	return res
}

// HashPair computes the hash of an internal node from its two child hashes,
// H(left, right). When a node has a single child, callers pass the same
// hash for both arguments to preserve the hanging-node duplication rule.
func HashPair(left, right Hash) Hash {
	hasher := hasherPool.Get().(*sha3State)
	defer hasherPool.Put(hasher)
	hasher.h.Reset()
	hasher.h.Write(left[:])
	hasher.h.Write(right[:])
	var res Hash
	hasher.h.Read(res[:])
	return res
}

type sha3State struct {
	h sha3.ShakeHash
}

var hasherPool = sync.Pool{New: func() any { return &sha3State{h: sha3.NewShake256()} }}
