package runner

import (
	"sync"

	"mldesk/pkg/types"
)

// Inbox is an unbounded thread-safe FIFO carrying completed-task outcomes
// from worker goroutines to the single consumer on the UI-owning goroutine.
// Pushes from one worker are observed in push order; there is no ordering
// across workers.
type Inbox struct {
	mu    sync.Mutex
	queue []types.Outcome
}

func NewInbox() *Inbox { return &Inbox{} }

// Push appends one outcome. Never blocks.
func (in *Inbox) Push(o types.Outcome) {
	in.mu.Lock()
	in.queue = append(in.queue, o)
	in.mu.Unlock()
}

// Drain removes and returns everything queued, in FIFO order.
func (in *Inbox) Drain() []types.Outcome {
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.queue) == 0 {
		return nil
	}
	out := in.queue
	in.queue = nil
	return out
}

// Len reports the number of queued outcomes.
func (in *Inbox) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.queue)
}
