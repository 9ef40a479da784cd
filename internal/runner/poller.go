package runner

import (
	"context"
	"time"

	"mldesk/pkg/types"
)

// DefaultPollInterval matches the UI tick the app was designed around.
const DefaultPollInterval = 200 * time.Millisecond

// Handler consumes outcomes on the owning goroutine.
type Handler interface {
	Handle(types.Outcome)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(types.Outcome)

func (f HandlerFunc) Handle(o types.Outcome) { f(o) }

// Poller drains the inbox on a fixed period and dispatches each outcome, in
// FIFO order, to the handler. It must only ever run on the goroutine that
// owns presentation state: that is what keeps all UI mutation single-threaded.
type Poller struct {
	inbox    *Inbox
	handler  Handler
	interval time.Duration
}

// NewPoller constructs a poller; interval <= 0 selects DefaultPollInterval.
func NewPoller(inbox *Inbox, h Handler, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{inbox: inbox, handler: h, interval: interval}
}

// Interval reports the configured tick period.
func (p *Poller) Interval() time.Duration { return p.interval }

// Poll drains the inbox completely once, dispatching every outcome in order.
// Returns how many outcomes were dispatched.
func (p *Poller) Poll() int {
	outcomes := p.inbox.Drain()
	for _, o := range outcomes {
		p.handler.Handle(o)
	}
	// Workers may have pushed while we dispatched; report what is left.
	inboxDepth.Set(float64(p.inbox.Len()))
	return len(outcomes)
}

// Run polls on every tick until the context is canceled. Delivery is
// eventual, bounded by the tick period; outcomes may batch across ticks.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Poll()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
