package arbiter

import "context"

// Future is the uniform promissory handle every subscriber invocation
// (and every publication) settles through. It exposes separate fulfill
// and reject capabilities to whoever constructs it, and a context-aware
// Wait plus an OnSettle callback registration to whoever consumes it.
//
// Settlement happens at most once: the first of Fulfill/Reject to run
// wins, matching the broker-wide rule that subscriber outcomes beyond
// the first are either recorded (UpdateAfterSettlement) or dropped, but
// a Future itself never re-settles.
type Future struct {
	mu        chan struct{} // buffered with 1 token; guards the fields below
	settled   bool
	fulfilled bool
	value     any
	err       error
	done      chan struct{}
	callbacks []func(value any, err error, fulfilled bool)
}

// NewFuture creates an unsettled Future.
func NewFuture() *Future {
	f := &Future{
		mu:   make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	f.mu <- struct{}{}
	return f
}

func (f *Future) lock()   { <-f.mu }
func (f *Future) unlock() { f.mu <- struct{}{} }

// Fulfill settles the future as successful with value. A no-op if
// already settled.
func (f *Future) Fulfill(value any) {
	f.settle(true, value, nil)
}

// Reject settles the future as failed with err. A no-op if already
// settled.
func (f *Future) Reject(err error) {
	f.settle(false, nil, err)
}

func (f *Future) settle(fulfilled bool, value any, err error) {
	f.lock()
	if f.settled {
		f.unlock()
		return
	}
	f.settled = true
	f.fulfilled = fulfilled
	f.value = value
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	f.unlock()

	close(f.done)
	for _, cb := range callbacks {
		cb(value, err, fulfilled)
	}
}

// OnSettle registers cb to run once the future settles. If the future
// has already settled, cb runs synchronously before OnSettle returns.
func (f *Future) OnSettle(cb func(value any, err error, fulfilled bool)) {
	f.lock()
	if f.settled {
		value, err, fulfilled := f.value, f.err, f.fulfilled
		f.unlock()
		cb(value, err, fulfilled)
		return
	}
	f.callbacks = append(f.callbacks, cb)
	f.unlock()
}

// Done returns a channel closed when the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has settled.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future settles or ctx is done, returning the
// settled value/error, or ctx.Err() if ctx finishes first.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		f.lock()
		value, err := f.value, f.err
		f.unlock()
		return value, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
