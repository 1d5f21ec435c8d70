package agent

import (
	"sync"

	"github.com/attoclaw/gateway/internal/envelope"
)

// deferredQueue is a short FIFO of inbound envelopes observed during the
// stop-signal poll that did not belong to the active session (spec.md's
// DeferredQueue). Mutex-guarded with short critical sections, per §5.
type deferredQueue struct {
	mu    sync.Mutex
	items []envelope.Inbound
}

func (q *deferredQueue) push(m envelope.Inbound) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, m)
}

// drain empties the queue and returns everything it held, in order.
func (q *deferredQueue) drain() []envelope.Inbound {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}
