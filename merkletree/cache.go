package merkletree

import (
	"github.com/pwrlabs/merkletree/common"
	"github.com/pwrlabs/merkletree/common/immutable"
)

// nodeCache is the in-memory write-back overlay over the nodes column
// family: reads consult it before storage, writes mutate in place, and a
// flush writes every entry and clears the cache.
type nodeCache struct {
	byHash map[common.Hash]*Node
}

func newNodeCache() *nodeCache {
	return &nodeCache{byHash: make(map[common.Hash]*Node)}
}

func (c *nodeCache) get(hash common.Hash) (*Node, bool) {
	n, ok := c.byHash[hash]
	return n, ok
}

// put inserts or replaces the node indexed under its current Hash.
func (c *nodeCache) put(n *Node) {
	c.byHash[n.Hash] = n
}

// rekey moves a node from oldHash to its current (new) Hash, capturing
// pendingOldHash on first mutation so the stale storage row can be deleted
// at the next flush.
func (c *nodeCache) rekey(n *Node, oldHash common.Hash) {
	if n.pendingOldHash == nil {
		old := oldHash
		n.pendingOldHash = &old
	}
	delete(c.byHash, oldHash)
	c.byHash[n.Hash] = n
}

func (c *nodeCache) size() int {
	return len(c.byHash)
}

func (c *nodeCache) clear() {
	c.byHash = make(map[common.Hash]*Node)
}

func (c *nodeCache) forEach(f func(*Node)) {
	for _, n := range c.byHash {
		f(n)
	}
}

func (c *nodeCache) getMemoryFootprint() *common.MemoryFootprint {
	const approxNodeSize = 32*4 + 24 // hash + three optional hash pointers + map bucket overhead
	return common.NewMemoryFootprint(uintptr(len(c.byHash) * approxNodeSize))
}

// keyDataCache is the write-back overlay over the keydata column family. It
// is keyed by immutable.Bytes (an immutable, comparable wrapper over a byte
// slice) since Go map keys must be comparable and raw []byte is not.
type keyDataCache struct {
	values map[immutable.Bytes][]byte
}

// valueCodec defensively copies a caller-supplied value before it is
// retained in the cache, so a later mutation of the caller's slice can't
// corrupt a pending write.
var valueCodec common.ByteSliceSerializer

func newKeyDataCache() *keyDataCache {
	return &keyDataCache{values: make(map[immutable.Bytes][]byte)}
}

func (c *keyDataCache) get(key []byte) ([]byte, bool) {
	v, ok := c.values[immutable.NewBytes(key)]
	return v, ok
}

func (c *keyDataCache) put(key, value []byte) {
	c.values[immutable.NewBytes(key)] = valueCodec.FromBytes(value)
}

func (c *keyDataCache) size() int {
	return len(c.values)
}

func (c *keyDataCache) clear() {
	c.values = make(map[immutable.Bytes][]byte)
}

func (c *keyDataCache) forEach(f func(key, value []byte)) {
	for k, v := range c.values {
		f(k.ToBytes(), v)
	}
}

func (c *keyDataCache) getMemoryFootprint() *common.MemoryFootprint {
	var size uintptr
	for k, v := range c.values {
		size += uintptr(len(k.ToBytes()) + len(v))
	}
	return common.NewMemoryFootprint(size)
}
