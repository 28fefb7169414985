package lock

import (
	"container/heap"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Owner identifies the logical caller holding or requesting the lock. Go
// does not expose a safe, portable goroutine identity, so this package
// requires callers to supply an explicit, comparable owner token and
// thread it through any nested (same logical call chain) acquisitions
// that must be treated as reentrant. A *merkletree.Tree obtains one token
// per public, top-level call and passes it down through every internal
// method that may re-enter the lock.
type Owner any

// UnhealthyWaitFunc is invoked when an acquisition blocks longer than the
// configured threshold. It must not itself call back into the lock.
type UnhealthyWaitFunc func(mode string, priority Priority, waited time.Duration)

// Config configures a Lock's telemetry behavior.
type Config struct {
	// UnhealthyWaitThreshold is the blocking duration above which
	// OnUnhealthyWait fires. Zero disables the check.
	UnhealthyWaitThreshold time.Duration
	OnUnhealthyWait        UnhealthyWaitFunc
}

type mode int

const (
	modeRead mode = iota
	modeWrite
)

func (m mode) String() string {
	if m == modeRead {
		return "read"
	}
	return "write"
}

type request struct {
	owner    Owner
	mode     mode
	priority Priority
	seq      uint64
	enqueued time.Time
	ready    chan struct{}
	granted  bool
	inQueue  bool
}

// Lock is a reentrant, priority-ordered, writer-preferring read-write lock.
// Waiting requests are served highest-priority first; requests of equal
// priority are served most-recently-arrived first (LIFO).
type Lock struct {
	cfg Config

	mu sync.Mutex
	pq priorityQueue

	writer      Owner
	writerCount int
	readers     map[Owner]int
	activeReads int

	seq atomic.Uint64
}

// New creates a ready-to-use Lock.
func New(cfg Config) *Lock {
	return &Lock{
		cfg:     cfg,
		readers: make(map[Owner]int),
	}
}

// AcquireRead blocks until shared access is granted to owner or timeout
// elapses, returning false in the latter case.
func (l *Lock) AcquireRead(owner Owner, priority Priority, timeout time.Duration) bool {
	l.mu.Lock()
	if l.readers[owner] > 0 {
		l.readers[owner]++
		l.activeReads++
		l.mu.Unlock()
		return true
	}
	req := l.enqueueLocked(owner, modeRead, priority)
	l.mu.Unlock()
	return l.await(req, timeout)
}

// AcquireWrite blocks until exclusive access is granted to owner or timeout
// elapses, returning false in the latter case.
func (l *Lock) AcquireWrite(owner Owner, priority Priority, timeout time.Duration) bool {
	l.mu.Lock()
	if l.writer == owner {
		l.writerCount++
		l.mu.Unlock()
		return true
	}
	req := l.enqueueLocked(owner, modeWrite, priority)
	l.mu.Unlock()
	return l.await(req, timeout)
}

// TryAcquireWrite attempts a non-blocking exclusive acquisition. It succeeds
// only if there is no incompatible holder and no strictly-higher-priority
// request currently waiting, honoring queue order rather than grabbing the
// lock merely because it happens to be free.
func (l *Lock) TryAcquireWrite(owner Owner, priority Priority) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == owner {
		l.writerCount++
		return true
	}
	if l.writer != nil || l.activeReads != 0 {
		return false
	}
	if l.pq.hasHigherPriorityThan(priority) {
		return false
	}
	l.writer = owner
	l.writerCount = 1
	return true
}

// ReleaseRead releases one shared hold owned by owner. It returns
// ErrLockMisuse if owner does not currently hold a shared lock.
func (l *Lock) ReleaseRead(owner Owner) error {
	l.mu.Lock()
	if l.readers[owner] <= 0 {
		l.mu.Unlock()
		return fmt.Errorf("%w: %v does not hold a read lock", ErrLockMisuse, owner)
	}
	l.readers[owner]--
	l.activeReads--
	if l.readers[owner] == 0 {
		delete(l.readers, owner)
	}
	l.dispatchLocked()
	l.mu.Unlock()
	return nil
}

// ReleaseWrite releases one exclusive hold owned by owner. It returns
// ErrLockMisuse if owner is not the current writer.
func (l *Lock) ReleaseWrite(owner Owner) error {
	l.mu.Lock()
	if l.writer != owner {
		l.mu.Unlock()
		return fmt.Errorf("%w: %v does not hold the write lock", ErrLockMisuse, owner)
	}
	l.writerCount--
	if l.writerCount == 0 {
		l.writer = nil
	}
	l.dispatchLocked()
	l.mu.Unlock()
	return nil
}

func (l *Lock) enqueueLocked(owner Owner, m mode, priority Priority) *request {
	req := &request{
		owner:    owner,
		mode:     m,
		priority: priority,
		seq:      l.seq.Add(1),
		enqueued: time.Now(),
		ready:    make(chan struct{}),
		inQueue:  true,
	}
	heap.Push(&l.pq, req)
	l.dispatchLocked()
	return req
}

// dispatchLocked grants every request it can from the head of the queue,
// respecting writer preference: a read is granted only when there is no
// active writer and no write request waiting anywhere in the queue, even
// one of lower priority than the read; a leading write request is granted
// alone only when no reads are active. Must be called with l.mu held.
func (l *Lock) dispatchLocked() {
	for l.pq.Len() > 0 {
		head := l.pq.items[0]
		switch head.mode {
		case modeRead:
			if l.writer != nil || l.pq.hasWriteWaiting() {
				return
			}
			req := heap.Pop(&l.pq).(*request)
			req.inQueue = false
			l.readers[req.owner]++
			l.activeReads++
			l.grant(req)
		case modeWrite:
			if l.writer != nil || l.activeReads != 0 {
				return
			}
			req := heap.Pop(&l.pq).(*request)
			req.inQueue = false
			l.writer = req.owner
			l.writerCount = 1
			l.grant(req)
			return
		}
	}
}

func (l *Lock) grant(req *request) {
	req.granted = true
	close(req.ready)
}

func (l *Lock) await(req *request, timeout time.Duration) bool {
	var timer *time.Timer
	var expired <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-req.ready:
		l.recordWait(req)
		return true
	case <-expired:
		l.mu.Lock()
		if req.granted {
			l.mu.Unlock()
			l.recordWait(req)
			return true
		}
		if req.inQueue {
			l.pq.remove(req)
		}
		l.mu.Unlock()
		return false
	}
}

func (l *Lock) recordWait(req *request) {
	if l.cfg.UnhealthyWaitThreshold <= 0 || l.cfg.OnUnhealthyWait == nil {
		return
	}
	waited := time.Since(req.enqueued)
	if waited > l.cfg.UnhealthyWaitThreshold {
		l.cfg.OnUnhealthyWait(req.mode.String(), req.priority, waited)
	}
}
