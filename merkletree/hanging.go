package merkletree

import "github.com/pwrlabs/merkletree/common"

// hangingRegistry tracks the unpaired node per tree level. At most one
// entry exists per level; the deepest entry is the tree's root.
type hangingRegistry struct {
	byLevel map[int]common.Hash
}

func newHangingRegistry() *hangingRegistry {
	return &hangingRegistry{byLevel: make(map[int]common.Hash)}
}

func (r *hangingRegistry) get(level int) (common.Hash, bool) {
	h, ok := r.byLevel[level]
	return h, ok
}

func (r *hangingRegistry) set(level int, hash common.Hash) {
	r.byLevel[level] = hash
}

func (r *hangingRegistry) remove(level int) {
	delete(r.byLevel, level)
}

// rewrite replaces oldHash with newHash wherever it currently appears,
// used by updateNodeHash to keep the registry consistent across identity
// changes.
func (r *hangingRegistry) rewrite(oldHash, newHash common.Hash) {
	for level, h := range r.byLevel {
		if h == oldHash {
			r.byLevel[level] = newHash
		}
	}
}

func (r *hangingRegistry) clear() {
	r.byLevel = make(map[int]common.Hash)
}

func (r *hangingRegistry) levels() []int {
	levels := make([]int, 0, len(r.byLevel))
	for level := range r.byLevel {
		levels = append(levels, level)
	}
	return levels
}
