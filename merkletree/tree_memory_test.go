package merkletree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMemory_RamInfoGrowsWithPendingWritesAndDropsAfterFlush mirrors the
// RAM-growth sampling the Java original's MerkleTreeMemoryTest.java
// performs: GetRamInfo's total must increase as unflushed nodes and key/value
// data accumulate in the write-back caches, and must fall back down once
// Flush clears them.
func TestMemory_RamInfoGrowsWithPendingWritesAndDropsAfterFlush(t *testing.T) {
	tr, _ := openTestTree(t, "memory-growth")

	empty, err := tr.GetRamInfo()
	require.NoError(t, err)
	baseline := empty.Total()

	const n = 200
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("mem-key-%04d", i))
		value := []byte(fmt.Sprintf("mem-value-%04d", i))
		require.NoError(t, tr.AddOrUpdateData(key, value))
	}

	grown, err := tr.GetRamInfo()
	require.NoError(t, err)
	require.Greater(t, grown.Total(), baseline,
		"RAM usage must grow as leaves and key/value data accumulate unflushed")

	require.NoError(t, tr.Flush())

	afterFlush, err := tr.GetRamInfo()
	require.NoError(t, err)
	require.Less(t, afterFlush.Total(), grown.Total(),
		"RAM usage must drop once Flush clears the write-back caches")
}

// TestMemory_RamInfoReportsZeroDataOnFreshTree checks the empty baseline
// itself carries no leftover node or key/value accounting.
func TestMemory_RamInfoReportsZeroDataOnFreshTree(t *testing.T) {
	tr, _ := openTestTree(t, "memory-empty")

	mf, err := tr.GetRamInfo()
	require.NoError(t, err)
	require.EqualValues(t, 0, mf.Total())
}
