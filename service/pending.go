package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/mnehpets/lspwire/jsonrpc"
)

const (
	waiterPending int32 = iota
	waiterFulfilled
	waiterAbandoned
)

// waiter is one caller's slot in a pending entry.
type waiter struct {
	state atomic.Int32
	ch    chan *jsonrpc.Response
}

func newWaiter() *waiter {
	return &waiter{ch: make(chan *jsonrpc.Response, 1)}
}

// fulfill hands r to the waiter. It reports false if the waiter was abandoned.
func (w *waiter) fulfill(r *jsonrpc.Response) bool {
	if !w.state.CompareAndSwap(waiterPending, waiterFulfilled) {
		return false
	}
	w.ch <- r
	return true
}

// Waiter is the receiving end of a single AwaitResponse registration.
type Waiter struct {
	id jsonrpc.ID
	w  *waiter
}

// ID returns the id the waiter is registered under.
func (w *Waiter) ID() jsonrpc.ID {
	return w.id
}

// Wait blocks until the response arrives or ctx is done. When ctx wins the
// waiter is abandoned: the response that later fills its slot is dropped.
// Wait must be called at most once.
func (w *Waiter) Wait(ctx context.Context) (*jsonrpc.Response, error) {
	return w.wait(ctx, nil)
}

// wait is Wait that also gives up with ErrExited once exited is closed.
func (w *Waiter) wait(ctx context.Context, exited <-chan struct{}) (*jsonrpc.Response, error) {
	select {
	case r := <-w.w.ch:
		return r, nil
	case <-ctx.Done():
		return w.abandon(ctx.Err())
	case <-exited:
		return w.abandon(ErrExited)
	}
}

func (w *Waiter) abandon(err error) (*jsonrpc.Response, error) {
	if w.w.state.CompareAndSwap(waiterPending, waiterAbandoned) {
		return nil, err
	}
	// Fulfilled concurrently; the response is already buffered.
	return <-w.w.ch, nil
}

// waitQueue is the FIFO of waiters registered under one id. A queue in the
// map is never empty.
type waitQueue struct {
	waiters []*waiter
}

// PendingRequests correlates responses with the requests awaiting them.
//
// Entries are spread over the shards of a concurrent map so that unrelated
// ids do not contend on one lock. Each entry holds the waiters for an id in
// registration order; responses are handed out first come, first served.
type PendingRequests struct {
	m   cmap.ConcurrentMap[jsonrpc.ID, *waitQueue]
	log *slog.Logger
}

// PendingOption configures PendingRequests.
type PendingOption func(*PendingRequests)

// WithPendingLogger sets the logger for dropped responses.
func WithPendingLogger(l *slog.Logger) PendingOption {
	return func(p *PendingRequests) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPendingRequests returns an empty table.
func NewPendingRequests(opts ...PendingOption) *PendingRequests {
	p := &PendingRequests{
		m:   cmap.NewStringer[jsonrpc.ID, *waitQueue](),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AwaitResponse marks id as pending and returns the Waiter its response will
// be delivered to.
//
// If the same id is awaited more than once, responses are routed to the
// waiters in the order they registered. Callers must keep ids unique among
// their in-flight requests for responses to reach the intended caller.
//
// A null id can never be answered, so it is not registered; its Waiter only
// returns when the context passed to Wait is done.
func (p *PendingRequests) AwaitResponse(id jsonrpc.ID) *Waiter {
	w := newWaiter()
	if id.IsNull() {
		p.log.Warn("awaiting response for request ID of null, it will never resolve")
		return &Waiter{id: id, w: w}
	}
	p.m.Upsert(id, nil, func(exist bool, q *waitQueue, _ *waitQueue) *waitQueue {
		if !exist {
			return &waitQueue{waiters: []*waiter{w}}
		}
		q.waiters = append(q.waiters, w)
		return q
	})
	return &Waiter{id: id, w: w}
}

// RegisterResponse delivers r to the oldest waiter registered under its id.
// Responses with a null id, or with no waiter, are logged and dropped.
func (p *PendingRequests) RegisterResponse(r *jsonrpc.Response) {
	id := r.ID()
	if id.IsNull() {
		p.log.Warn("received response with request ID of null, ignoring")
		return
	}
	var next *waiter
	p.m.RemoveCb(id, func(_ jsonrpc.ID, q *waitQueue, exists bool) bool {
		if !exists {
			return false
		}
		next = q.waiters[0]
		q.waiters[0] = nil
		q.waiters = q.waiters[1:]
		return len(q.waiters) == 0
	})
	if next == nil {
		p.log.Warn("received response with unknown request ID", "id", id.String())
		return
	}
	if !next.fulfill(r) {
		p.log.Warn("received response for abandoned request, dropping", "id", id.String())
	}
}

// retract removes a waiter that will never be answered because its request
// was never sent.
func (p *PendingRequests) retract(wt *Waiter) {
	wt.w.state.CompareAndSwap(waiterPending, waiterAbandoned)
	p.m.RemoveCb(wt.id, func(_ jsonrpc.ID, q *waitQueue, exists bool) bool {
		if !exists {
			return false
		}
		for i, w := range q.waiters {
			if w == wt.w {
				q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
				break
			}
		}
		return len(q.waiters) == 0
	})
}

// Len returns the number of ids with at least one waiter.
func (p *PendingRequests) Len() int {
	return p.m.Count()
}

// Waiting returns the number of waiters registered under id.
func (p *PendingRequests) Waiting(id jsonrpc.ID) int {
	n := 0
	// A callback that returns false reads the entry under its shard lock.
	p.m.RemoveCb(id, func(_ jsonrpc.ID, q *waitQueue, exists bool) bool {
		if exists {
			n = len(q.waiters)
		}
		return false
	})
	return n
}

func (p *PendingRequests) String() string {
	var entries []string
	for item := range p.m.IterBuffered() {
		entries = append(entries, fmt.Sprintf("%s: %d", item.Key, p.Waiting(item.Key)))
	}
	sort.Strings(entries)
	return "{" + strings.Join(entries, ", ") + "}"
}
