package internal

import (
	"context"
	"sync"
)

const renderQueueSize = 64

// renderQueue serialises background renders of changed notes. A path that is
// already waiting is not queued twice; it leaves the pending set just before
// it is rendered, so a change during a render queues one more run.
type renderQueue struct {
	mu      sync.Mutex
	pending map[string]struct{}
	ch      chan string
}

func newRenderQueue() *renderQueue {
	return &renderQueue{
		pending: make(map[string]struct{}),
		ch:      make(chan string, renderQueueSize),
	}
}

// push queues path and reports whether it was added. A full queue drops it.
func (q *renderQueue) push(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[path]; ok {
		return false
	}
	select {
	case q.ch <- path:
		q.pending[path] = struct{}{}
		return true
	default:
		return false
	}
}

// run calls fn for each queued path until ctx is cancelled.
func (q *renderQueue) run(ctx context.Context, fn func(context.Context, string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-q.ch:
			q.mu.Lock()
			delete(q.pending, path)
			q.mu.Unlock()
			fn(ctx, path)
		}
	}
}
