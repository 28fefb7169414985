package merkletree

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEngine_ManyDistinctKeysPreserveAllData(t *testing.T) {
	tr, _ := openTestTree(t, "many-keys")
	const n = 64
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%03d", i))
		value := []byte(fmt.Sprintf("value-%03d", i))
		require.NoError(t, tr.AddOrUpdateData(key, value))
	}

	count, err := tr.GetNumLeaves()
	require.NoError(t, err)
	require.EqualValues(t, n, count)

	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%03d", i))
		want := []byte(fmt.Sprintf("value-%03d", i))
		got, ok, err := tr.GetData(key)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

func TestEngine_UpdatingExistingKeyChangesRootHash(t *testing.T) {
	tr, _ := openTestTree(t, "update-key")
	require.NoError(t, tr.AddOrUpdateData([]byte("k"), []byte("v1")))
	root1, err := tr.GetRootHash()
	require.NoError(t, err)

	require.NoError(t, tr.AddOrUpdateData([]byte("k"), []byte("v2")))
	root2, err := tr.GetRootHash()
	require.NoError(t, err)
	require.NotEqual(t, *root1, *root2)

	n, err := tr.GetNumLeaves()
	require.NoError(t, err)
	require.EqualValues(t, 1, n, "updating a key must not create a second leaf")
}

func TestEngine_ConcurrentWritersDistinctKeysAllSucceed(t *testing.T) {
	tr, _ := openTestTree(t, "concurrent-writers")
	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := []byte(fmt.Sprintf("w-%d", i))
			require.NoError(t, tr.AddOrUpdateData(key, []byte("v")))
		}(i)
	}
	wg.Wait()

	n, err := tr.GetNumLeaves()
	require.NoError(t, err)
	require.EqualValues(t, writers, n)
}

func TestEngine_ReadersObserveConsistentSnapshotsDuringWrites(t *testing.T) {
	tr, _ := openTestTree(t, "readers-writers")
	require.NoError(t, tr.AddOrUpdateData([]byte("seed"), []byte("v")))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		for {
			select {
			case <-stop:
				return
			default:
				key := []byte(fmt.Sprintf("gen-%d", i))
				_ = tr.AddOrUpdateData(key, []byte("v"))
				i++
			}
		}
	}()

	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		root, err := tr.GetRootHash()
		require.NoError(t, err)
		require.NotNil(t, root)
		n, err := tr.GetNumLeaves()
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, uint32(1))
	}
	close(stop)
	wg.Wait()
}

func TestEngine_LookupMissingKeyReturnsNotOK(t *testing.T) {
	tr, _ := openTestTree(t, "missing-key")
	_, ok, err := tr.GetData([]byte("nope"))
	require.NoError(t, err)
	require.False(t, ok)

	contains, err := tr.ContainsKey([]byte("nope"))
	require.NoError(t, err)
	require.False(t, contains)
}
