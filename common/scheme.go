package common

// TableSpace emulates a column family over a single-keyspace key-value store
// by prefixing every key with a one-byte space identifier. This lets a flat
// store such as pebble stand in for a database that natively supports
// multiple column families.
type TableSpace byte

const (
	// DefaultSpace is the space used for data that does not belong to any of
	// the tree's dedicated column families.
	DefaultSpace TableSpace = 0

	// MetaDataSpace stores the tree-wide scalars: the root hash, the leaf
	// count, the tree depth and the per-level hanging node hashes.
	MetaDataSpace TableSpace = 'M'

	// NodesSpace stores the binary encoding of every internal and leaf
	// node, keyed by the node's own hash.
	NodesSpace TableSpace = 'N'

	// KeyDataSpace stores the raw value associated with each user-supplied
	// key, keyed by that same key.
	KeyDataSpace TableSpace = 'K'
)

// ToDBKey prefixes key with the table space identifier, producing the key
// actually stored in the underlying key-value engine.
func (t TableSpace) ToDBKey(key []byte) []byte {
	dbKey := make([]byte, 1+len(key))
	dbKey[0] = byte(t)
	copy(dbKey[1:], key)
	return dbKey
}

// StrToDBKey is a convenience wrapper of ToDBKey for string keys such as the
// fixed metadata row names.
func (t TableSpace) StrToDBKey(key string) []byte {
	return t.ToDBKey([]byte(key))
}

// Prefix reports the raw prefix byte identifying this table space, useful
// for constructing range-scan bounds with DeleteRange/iterators.
func (t TableSpace) Prefix() byte {
	return byte(t)
}
