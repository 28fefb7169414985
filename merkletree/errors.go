package merkletree

import "github.com/pwrlabs/merkletree/common"

// Sentinel error kinds, matched with errors.Is against wrapped instances
// produced throughout the package.
const (
	ErrInvalidArgument  common.ConstError = "merkletree: invalid argument"
	ErrTreeClosed       common.ConstError = "merkletree: tree is closed"
	ErrDuplicateInstance common.ConstError = "merkletree: tree already open under this name"
	ErrLeafNotFound     common.ConstError = "merkletree: leaf not found"
	ErrNodeFull         common.ConstError = "merkletree: node already has both children"
	ErrCorruptedNode    common.ConstError = "merkletree: corrupted node encoding"
	ErrCorruptedTree    common.ConstError = "merkletree: corrupted tree state"
	ErrLockMisuse       common.ConstError = "merkletree: lock released by non-holder"
	ErrIO               common.ConstError = "merkletree: storage I/O failure"
	ErrNoOp             common.ConstError = "merkletree: operation is a no-op"
)
