package lock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLock_WriteThenReadExcludes(t *testing.T) {
	l := New(Config{})
	require.True(t, l.AcquireWrite("w1", Medium, time.Second))

	readAcquired := make(chan bool, 1)
	go func() {
		readAcquired <- l.AcquireRead("r1", Medium, 50*time.Millisecond)
	}()

	select {
	case ok := <-readAcquired:
		require.False(t, ok, "read must not be granted while write is held")
	case <-time.After(time.Second):
		t.Fatal("reader goroutine did not return")
	}

	require.NoError(t, l.ReleaseWrite("w1"))
}

func TestLock_ReentrantWrite(t *testing.T) {
	l := New(Config{})
	require.True(t, l.AcquireWrite("w1", Medium, time.Second))
	require.True(t, l.AcquireWrite("w1", Medium, time.Second))
	require.NoError(t, l.ReleaseWrite("w1"))
	require.NoError(t, l.ReleaseWrite("w1"))
	require.Error(t, l.ReleaseWrite("w1"))
}

func TestLock_ReentrantRead(t *testing.T) {
	l := New(Config{})
	require.True(t, l.AcquireRead("r1", Medium, time.Second))
	require.True(t, l.AcquireRead("r1", Medium, time.Second))
	require.NoError(t, l.ReleaseRead("r1"))
	require.NoError(t, l.ReleaseRead("r1"))
	require.Error(t, l.ReleaseRead("r1"))
}

func TestLock_MultipleReadersConcurrently(t *testing.T) {
	l := New(Config{})
	require.True(t, l.AcquireRead("r1", Medium, time.Second))
	require.True(t, l.AcquireRead("r2", Medium, time.Second))
	require.NoError(t, l.ReleaseRead("r1"))
	require.NoError(t, l.ReleaseRead("r2"))
}

func TestLock_ReleaseFromNonHolderFails(t *testing.T) {
	l := New(Config{})
	require.Error(t, l.ReleaseWrite("ghost"))
	require.Error(t, l.ReleaseRead("ghost"))
}

func TestLock_PriorityOrdering_HighBeforeMediumBeforeLow(t *testing.T) {
	l := New(Config{})
	require.True(t, l.AcquireWrite("holder", Low, time.Second))

	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup

	start := func(owner string, p Priority) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.AcquireWrite(owner, p, 2*time.Second) {
				mu.Lock()
				order = append(order, owner)
				mu.Unlock()
				l.ReleaseWrite(owner)
			}
		}()
		time.Sleep(20 * time.Millisecond) // ensure arrival order
	}

	start("low", Low)
	start("high", High)
	start("medium", Medium)

	require.NoError(t, l.ReleaseWrite("holder"))
	wg.Wait()

	require.Equal(t, []string{"high", "medium", "low"}, order)
}

func TestLock_LIFOWithinEqualPriority(t *testing.T) {
	l := New(Config{})
	require.True(t, l.AcquireWrite("holder", Medium, time.Second))

	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup

	start := func(owner string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.AcquireWrite(owner, Medium, 2*time.Second) {
				mu.Lock()
				order = append(order, owner)
				mu.Unlock()
				l.ReleaseWrite(owner)
			}
		}()
		time.Sleep(20 * time.Millisecond)
	}

	start("t1")
	start("t2")
	start("t3")

	require.NoError(t, l.ReleaseWrite("holder"))
	wg.Wait()

	require.Equal(t, []string{"t3", "t2", "t1"}, order)
}

func TestLock_AcquireTimesOut(t *testing.T) {
	l := New(Config{})
	require.True(t, l.AcquireWrite("w1", Medium, time.Second))
	require.False(t, l.AcquireWrite("w2", Medium, 30*time.Millisecond))
	require.NoError(t, l.ReleaseWrite("w1"))
}

func TestLock_TryAcquireWrite_RespectsHigherPriorityWaiter(t *testing.T) {
	l := New(Config{})
	require.True(t, l.AcquireWrite("holder", Medium, time.Second))

	waiting := make(chan struct{})
	go func() {
		close(waiting)
		l.AcquireWrite("highwaiter", High, 2*time.Second)
	}()
	<-waiting
	time.Sleep(20 * time.Millisecond) // let it enqueue

	require.NoError(t, l.ReleaseWrite("holder"))

	// Releasing hands the lock straight to the waiting high-priority
	// request; TryAcquireWrite at a lower priority must not steal it.
	require.False(t, l.TryAcquireWrite("tryer", Low))

	time.Sleep(100 * time.Millisecond)
	l.ReleaseWrite("highwaiter")
}

func TestLock_QueuedWriterBlocksHigherPriorityIncomingReader(t *testing.T) {
	l := New(Config{})
	require.True(t, l.AcquireRead("r1", Low, time.Second))

	writeWaiting := make(chan struct{})
	writeDone := make(chan bool, 1)
	go func() {
		close(writeWaiting)
		writeDone <- l.AcquireWrite("w1", Medium, 2*time.Second)
	}()
	<-writeWaiting
	time.Sleep(20 * time.Millisecond) // let w1 enqueue behind the active reader

	readAcquired := make(chan bool, 1)
	go func() {
		readAcquired <- l.AcquireRead("r2", High, 100*time.Millisecond)
	}()

	select {
	case ok := <-readAcquired:
		require.False(t, ok, "a higher-priority reader must not bypass an already-queued writer")
	case <-time.After(time.Second):
		t.Fatal("reader goroutine did not return")
	}

	require.NoError(t, l.ReleaseRead("r1"))
	require.True(t, <-writeDone)
	require.NoError(t, l.ReleaseWrite("w1"))
}

func TestLock_UnhealthyWaitCallback(t *testing.T) {
	var called bool
	var gotMode string
	var gotPriority Priority
	l := New(Config{
		UnhealthyWaitThreshold: 10 * time.Millisecond,
		OnUnhealthyWait: func(mode string, priority Priority, waited time.Duration) {
			called = true
			gotMode = mode
			gotPriority = priority
		},
	})
	require.True(t, l.AcquireWrite("w1", Medium, time.Second))
	go func() {
		time.Sleep(30 * time.Millisecond)
		l.ReleaseWrite("w1")
	}()
	require.True(t, l.AcquireWrite("w2", High, time.Second))
	require.True(t, called)
	require.Equal(t, "write", gotMode)
	require.Equal(t, High, gotPriority)
}
