package pebblestore

import (
	"testing"

	"github.com/pwrlabs/merkletree/common"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGetRoundTripsThroughTableSpaces(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	b := store.NewBatch()
	b.Put(common.NodesSpace, []byte("hash1"), []byte("node-bytes"))
	b.Put(common.KeyDataSpace, []byte("hash1"), []byte("other-value"))
	require.NoError(t, store.WriteBatch(b))

	v, ok, err := store.Get(common.NodesSpace, []byte("hash1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("node-bytes"), v)

	v, ok, err = store.Get(common.KeyDataSpace, []byte("hash1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("other-value"), v)

	_, ok, err = store.Get(common.MetaDataSpace, []byte("hash1"))
	require.NoError(t, err)
	require.False(t, ok, "same key in a different table space must not be visible")
}

func TestStore_IterateRespectsTableSpaceBoundary(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	b := store.NewBatch()
	b.Put(common.NodesSpace, []byte("a"), []byte("1"))
	b.Put(common.NodesSpace, []byte("b"), []byte("2"))
	b.Put(common.KeyDataSpace, []byte("c"), []byte("3"))
	require.NoError(t, store.WriteBatch(b))

	var keys []string
	err = store.Iterate(common.NodesSpace, func(key, _ []byte) bool {
		keys = append(keys, string(key))
		return true
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestStore_DeleteRangeClearsOnlyThatSpace(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	b := store.NewBatch()
	b.Put(common.NodesSpace, []byte("a"), []byte("1"))
	b.Put(common.KeyDataSpace, []byte("b"), []byte("2"))
	require.NoError(t, store.WriteBatch(b))

	require.NoError(t, store.DeleteRange(common.NodesSpace))

	_, ok, err := store.Get(common.NodesSpace, []byte("a"))
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = store.Get(common.KeyDataSpace, []byte("b"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStore_CheckpointProducesIndependentCopy(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	b := store.NewBatch()
	b.Put(common.NodesSpace, []byte("a"), []byte("1"))
	require.NoError(t, store.WriteBatch(b))

	targetDir := t.TempDir() + "/checkpoint"
	require.NoError(t, store.Checkpoint(targetDir))

	copyStore, err := Open(targetDir)
	require.NoError(t, err)
	defer copyStore.Close()

	v, ok, err := copyStore.Get(common.NodesSpace, []byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("1"), v)
}
