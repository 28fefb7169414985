package merkletree

import (
	"fmt"
	"time"

	"github.com/pwrlabs/merkletree/common"
	"github.com/pwrlabs/merkletree/lock"
)

// HashFunc binds H(a,b) to concrete leaf and pair hash implementations.
// common.HashLeaf/common.HashPair (SHA3-based) are the default binding;
// Config.HashFunc lets a caller override it, e.g. tests that want small
// deterministic hashes instead of real SHA3 digests.
type HashFunc struct {
	Leaf func(key, value []byte) common.Hash
	Pair PairHashFunc
}

func defaultHashFunc() HashFunc {
	return HashFunc{Leaf: common.HashLeaf, Pair: common.HashPair}
}

// Config controls a Tree's lock telemetry, default timeouts, and hash
// binding.
type Config struct {
	// UnhealthyWaitThreshold is the lock-acquisition wait duration above
	// which a diagnostic is logged.
	UnhealthyWaitThreshold time.Duration
	// DefaultLockTimeout bounds every internal lock acquisition made by
	// the facade on the caller's behalf.
	DefaultLockTimeout time.Duration
	// OnUnhealthyWait, when set, is invoked in addition to the package
	// logger whenever a wait is unhealthy. Intended for metrics wiring
	// (see internal/metrics).
	OnUnhealthyWait lock.UnhealthyWaitFunc
	// OnFlush, when set, is invoked with the wall-clock duration of every
	// completed flushToDisk call. Intended for metrics wiring (see
	// internal/metrics.ObserveFlush).
	OnFlush func(time.Duration)
	// Logger receives structured lifecycle and telemetry events. A no-op
	// logger is used if nil.
	Logger Logger
	// HashFunc overrides the tree's leaf/pair hash binding. Leaves either
	// field nil to keep the corresponding default (common.HashLeaf or
	// common.HashPair).
	HashFunc *HashFunc
}

// Logger is the minimal structured-logging surface the tree needs,
// satisfied by internal/telemetry's zap-backed implementation.
type Logger interface {
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Infow(string, ...any) {}
func (noopLogger) Warnw(string, ...any) {}

func defaultConfig(cfg Config) Config {
	if cfg.DefaultLockTimeout <= 0 {
		cfg.DefaultLockTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	def := defaultHashFunc()
	if cfg.HashFunc == nil {
		cfg.HashFunc = &def
	} else {
		if cfg.HashFunc.Leaf == nil {
			cfg.HashFunc.Leaf = def.Leaf
		}
		if cfg.HashFunc.Pair == nil {
			cfg.HashFunc.Pair = def.Pair
		}
	}
	return cfg
}

// Tree is the public facade: it enforces lifecycle and argument checks and
// delegates to the engine and persistence manager under the priority RW
// lock.
type Tree struct {
	name    string
	storage Storage
	cfg     Config
	lock    *lock.Lock

	nodes    *nodeCache
	keyData  *keyDataCache
	hanging  *hangingRegistry
	hashFunc HashFunc

	numLeaves uint32
	depth     int
	rootHash  *common.Hash

	hasUnsavedChanges bool
	closed            bool
	dormant           bool

	reopen func() (Storage, error)
}

// Open opens (or reopens) a named tree backed by storage. Only one Tree
// instance per name may be open process-wide; a second Open before the
// first Close fails with ErrDuplicateInstance.
func Open(name string, storage Storage, cfg Config, reopen func() (Storage, error)) (*Tree, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: tree name must not be empty", ErrInvalidArgument)
	}
	cfg = defaultConfig(cfg)

	t := &Tree{
		name:     name,
		storage:  storage,
		cfg:      cfg,
		nodes:    newNodeCache(),
		keyData:  newKeyDataCache(),
		hanging:  newHangingRegistry(),
		hashFunc: *cfg.HashFunc,
		reopen:   reopen,
	}
	t.lock = lock.New(lock.Config{
		UnhealthyWaitThreshold: cfg.UnhealthyWaitThreshold,
		OnUnhealthyWait: func(mode string, priority lock.Priority, waited time.Duration) {
			cfg.Logger.Warnw("unhealthy lock wait", "tree", name, "mode", mode, "priority", priority, "waited_ms", waited.Milliseconds())
			if cfg.OnUnhealthyWait != nil {
				cfg.OnUnhealthyWait(mode, priority, waited)
			}
		},
	})

	if err := registerTree(t); err != nil {
		return nil, err
	}

	owner := new(int)
	if !t.lock.AcquireWrite(owner, lock.Medium, cfg.DefaultLockTimeout) {
		unregisterTree(name)
		return nil, fmt.Errorf("%w: timed out acquiring write lock during open", ErrIO)
	}
	defer t.lock.ReleaseWrite(owner)

	if err := t.loadMetaData(); err != nil {
		unregisterTree(name)
		return nil, err
	}

	cfg.Logger.Infow("tree opened", "tree", name)
	return t, nil
}

func (t *Tree) ensureOpen() error {
	if t.closed {
		return fmt.Errorf("%w: %q", ErrTreeClosed, t.name)
	}
	if t.dormant {
		storage, err := t.reopen()
		if err != nil {
			return fmt.Errorf("%w: reopening storage for %q: %v", ErrIO, t.name, err)
		}
		t.storage = storage
		t.dormant = false
	}
	return nil
}

// --- read-only facade -------------------------------------------------

// GetRootHash returns the current in-memory root hash, or nil for an empty
// tree.
func (t *Tree) GetRootHash() (*common.Hash, error) {
	owner := new(int)
	if err := t.acquireRead(owner); err != nil {
		return nil, err
	}
	defer t.lock.ReleaseRead(owner)
	if err := t.ensureOpen(); err != nil {
		return nil, err
	}
	return t.rootHash, nil
}

// GetRootHashSavedOnDisk returns the root hash as currently committed to
// storage, ignoring any unflushed in-memory mutations.
func (t *Tree) GetRootHashSavedOnDisk() (*common.Hash, error) {
	owner := new(int)
	if err := t.acquireRead(owner); err != nil {
		return nil, err
	}
	defer t.lock.ReleaseRead(owner)
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

func (t *Tree) GetNumLeaves() (uint32, error) {
	owner := new(int)
	if err := t.acquireRead(owner); err != nil {
		return 0, err
	}
	defer t.lock.ReleaseRead(owner)
	if err := t.ensureOpen(); err != nil {
		return 0, err
	}
	return t.numLeaves, nil
}

func (t *Tree) GetDepth() (int, error) {
	owner := new(int)
	if err := t.acquireRead(owner); err != nil {
		return 0, err
	}
	defer t.lock.ReleaseRead(owner)
	if err := t.ensureOpen(); err != nil {
		return 0, err
	}
	return t.depth, nil
}

func (t *Tree) GetData(key []byte) ([]byte, bool, error) {
	owner := new(int)
	if err := t.acquireRead(owner); err != nil {
		return nil, false, err
	}
	defer t.lock.ReleaseRead(owner)
	if err := t.ensureOpen(); err != nil {
		return nil, false, err
	}
	return t.getData(key)
}

func (t *Tree) ContainsKey(key []byte) (bool, error) {
	owner := new(int)
	if err := t.acquireRead(owner); err != nil {
		return false, err
	}
	defer t.lock.ReleaseRead(owner)
	if err := t.ensureOpen(); err != nil {
		return false, err
	}
	return t.containsKey(key)
}

func (t *Tree) GetAllKeys() ([][]byte, error) {
	owner := new(int)
	if err := t.acquireRead(owner); err != nil {
		return nil, err
	}
	defer t.lock.ReleaseRead(owner)
	if err := t.ensureOpen(); err != nil {
		return nil, err
	}
	return t.getAllKeys()
}

func (t *Tree) GetAllData() ([][]byte, error) {
	owner := new(int)
	if err := t.acquireRead(owner); err != nil {
		return nil, err
	}
	defer t.lock.ReleaseRead(owner)
	if err := t.ensureOpen(); err != nil {
		return nil, err
	}
	return t.getAllData()
}

func (t *Tree) KeysAndValues() ([][]byte, [][]byte, error) {
	owner := new(int)
	if err := t.acquireRead(owner); err != nil {
		return nil, nil, err
	}
	defer t.lock.ReleaseRead(owner)
	if err := t.ensureOpen(); err != nil {
		return nil, nil, err
	}
	return t.keysAndTheirValues()
}

// --- mutating facade ----------------------------------------------------

func (t *Tree) AddOrUpdateData(key, value []byte) error {
	owner := new(int)
	if err := t.acquireWrite(owner); err != nil {
		return err
	}
	defer t.lock.ReleaseWrite(owner)
	if err := t.ensureOpen(); err != nil {
		return err
	}
	return t.addOrUpdateData(key, value)
}

// AllNodes flushes pending changes and returns every node currently
// persisted.
func (t *Tree) AllNodes() ([]*Node, error) {
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
	var nodes []*Node
	var decodeErr error
	err := t.storage.Iterate(common.NodesSpace, func(_, value []byte) bool {
		n, derr := DecodeNode(value)
		if derr != nil {
			decodeErr = derr
			return false
		}
		nodes = append(nodes, n)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nodes, nil
}

// GetRamInfo reports an in-memory diagnostic summary, grounded on
// common.MemoryFootprint.
func (t *Tree) GetRamInfo() (*common.MemoryFootprint, error) {
	owner := new(int)
	if err := t.acquireRead(owner); err != nil {
		return nil, err
	}
	defer t.lock.ReleaseRead(owner)
	if err := t.ensureOpen(); err != nil {
		return nil, err
	}

	mf := common.NewMemoryFootprint(0)
	mf.AddChild("nodeCache", t.nodes.getMemoryFootprint())
	mf.AddChild("keyDataCache", t.keyData.getMemoryFootprint())
	hangingSize := common.NewMemoryFootprint(uintptr(len(t.hanging.byLevel) * 40))
	mf.AddChild("hangingNodes", hangingSize)
	return mf, nil
}

func (t *Tree) acquireRead(owner any) error {
	if !t.lock.AcquireRead(owner, lock.Medium, t.cfg.DefaultLockTimeout) {
		return fmt.Errorf("%w: timed out acquiring read lock on %q", ErrIO, t.name)
	}
	return nil
}

func (t *Tree) acquireWrite(owner any) error {
	if !t.lock.AcquireWrite(owner, lock.Medium, t.cfg.DefaultLockTimeout) {
		return fmt.Errorf("%w: timed out acquiring write lock on %q", ErrIO, t.name)
	}
	return nil
}

// Lock exposes the underlying priority RW lock for advanced callers that
// need explicit priority control beyond the facade's default. The facade
// methods acquire the lock under their own fresh owner tokens, so while a
// caller holds it in an incompatible mode they block until it is released
// or their lock timeout expires.
func (t *Tree) Lock() *lock.Lock {
	return t.lock
}

// Name returns the tree's registry name.
func (t *Tree) Name() string {
	return t.name
}
