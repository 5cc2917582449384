package arbiter

import (
	"context"
	"strings"
	"sync"
)

// Publication is the handle Publish returns: a Future over the
// aggregate subscriber outcome, plus the live fulfilled/rejected/pending
// counts and, if the publish persisted a message, the Token identifying
// it. Internal counters read zero until dispatch actually begins, which
// for an asynchronous publish (Options.Sync == false) happens on a
// later turn via the broker's Scheduler.
type Publication struct {
	future *Future

	mu        sync.Mutex
	fulfilled int
	rejected  int
	pending   int
	token     *Token
}

func newPublication() *Publication {
	return &Publication{future: NewFuture()}
}

func (p *Publication) updateCounts(fulfilled, rejected, pending int) {
	p.mu.Lock()
	p.fulfilled, p.rejected, p.pending = fulfilled, rejected, pending
	p.mu.Unlock()
}

func (p *Publication) setTotalPending(n int) {
	p.mu.Lock()
	p.pending = n
	p.mu.Unlock()
}

func (p *Publication) setToken(tok *Token) {
	p.mu.Lock()
	p.token = tok
	p.mu.Unlock()
}

// Fulfilled returns the number of subscriber outcomes that have
// fulfilled so far.
func (p *Publication) Fulfilled() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fulfilled
}

// Rejected returns the number of subscriber outcomes that have rejected
// so far.
func (p *Publication) Rejected() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rejected
}

// Pending returns the number of dispatched subscriptions whose outcome
// hasn't arrived yet.
func (p *Publication) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Token returns the persisted message's token, or nil if the publish
// didn't persist.
func (p *Publication) Token() *Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// Settled reports whether the publication future has resolved.
func (p *Publication) Settled() bool { return p.future.Settled() }

// Done returns a channel closed once the publication settles.
func (p *Publication) Done() <-chan struct{} { return p.future.Done() }

// Wait blocks until the publication settles or ctx finishes, returning
// the fulfillment value or, on rejection, a *RejectionError.
func (p *Publication) Wait(ctx context.Context) (any, error) {
	return p.future.Wait(ctx)
}

func (p *Publication) settleFulfilled(value any) {
	p.future.Fulfill(value)
}

func (p *Publication) settleRejected(causes []error) {
	p.future.Reject(&RejectionError{Causes: causes})
}

// RejectionError is a publication future's rejection value: every
// subscriber error collected up to the moment the latch became
// infeasible (or, for a settlement latch, up to settlement), in
// completion order. An infeasible latch with zero subscribers rejects
// with an empty Causes.
type RejectionError struct {
	Causes []error
}

func (e *RejectionError) Error() string {
	if len(e.Causes) == 0 {
		return "arbiter: publication rejected with no subscriber errors"
	}
	msgs := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		msgs[i] = c.Error()
	}
	return "arbiter: publication rejected: " + strings.Join(msgs, "; ")
}

// Unwrap exposes every cause for errors.Is/errors.As.
func (e *RejectionError) Unwrap() []error { return e.Causes }
