package bot

import (
	"sync"

	"ironforged/reconcile"
)

// updateQueue keeps one FIFO per member. A member's changes are dispatched
// one after another in push order; different members drain in parallel.
type updateQueue struct {
	dispatch func(*reconcile.Change)

	mu      sync.Mutex
	pending map[int64][]*reconcile.Change
	wg      sync.WaitGroup
}

func newUpdateQueue(dispatch func(*reconcile.Change)) *updateQueue {
	return &updateQueue{
		dispatch: dispatch,
		pending:  make(map[int64][]*reconcile.Change),
	}
}

// push must be called from a single goroutine for order to mean arrival order
func (q *updateQueue) push(change *reconcile.Change) {
	id := change.DiscordID()

	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending[id] = append(q.pending[id], change)
	if len(q.pending[id]) == 1 {
		q.wg.Add(1)
		go q.drain(id)
	}
}

// drain owns the member's queue until it is empty. The head stays queued
// while it runs so a concurrent push never starts a second drainer.
func (q *updateQueue) drain(id int64) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		change := q.pending[id][0]
		q.mu.Unlock()

		q.dispatch(change)

		q.mu.Lock()
		q.pending[id] = q.pending[id][1:]
		if len(q.pending[id]) == 0 {
			delete(q.pending, id)
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()
	}
}

// wait blocks until every queued change has been dispatched
func (q *updateQueue) wait() {
	q.wg.Wait()
}
