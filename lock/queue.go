package lock

import "container/heap"

// priorityQueue orders waiting requests by (priority desc, seq desc): the
// highest priority request is served first; within equal priority, the
// most recently enqueued request is served first (LIFO).
type priorityQueue struct {
	items []*request
}

func (q *priorityQueue) Len() int { return len(q.items) }

func (q *priorityQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.seq > b.seq
}

func (q *priorityQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *priorityQueue) Push(x any) {
	q.items = append(q.items, x.(*request))
}

func (q *priorityQueue) Pop() any {
	n := len(q.items)
	item := q.items[n-1]
	q.items[n-1] = nil
	q.items = q.items[:n-1]
	return item
}

// remove deletes req from the queue if still present, used when a blocked
// acquisition times out.
func (q *priorityQueue) remove(req *request) {
	for i, item := range q.items {
		if item == req {
			heap.Remove(q, i)
			return
		}
	}
}

// hasHigherPriorityThan reports whether any queued request outranks
// priority, used by TryAcquireWrite to honor queue order.
func (q *priorityQueue) hasHigherPriorityThan(priority Priority) bool {
	for _, item := range q.items {
		if item.priority > priority {
			return true
		}
	}
	return false
}

// hasWriteWaiting reports whether any write request is currently queued,
// regardless of its priority relative to other waiters. Used by
// dispatchLocked to enforce writer preference: a waiting writer blocks
// every read grant, even one that would otherwise sort ahead of it.
func (q *priorityQueue) hasWriteWaiting() bool {
	for _, item := range q.items {
		if item.mode == modeWrite {
			return true
		}
	}
	return false
}
