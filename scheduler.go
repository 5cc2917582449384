package arbiter

// Scheduler defers a function to run on a later turn, standing in for
// the host runtime's microtask queue. Defer must return without
// blocking on fn's completion.
type Scheduler interface {
	Defer(fn func())
}

// serialScheduler defers by handing fn to a single worker goroutine that
// drains a FIFO channel, so deferred work runs in the order it was
// submitted. It is the default for an asynchronous broker
// (Options.Sync == false): spec.md §5 requires that two publishes
// issued back-to-back in the same turn dispatch in submission order,
// which a bare `go fn()` per publish cannot guarantee since the
// runtime is free to schedule the resulting goroutines in either
// order.
type serialScheduler struct {
	queue chan func()
}

// newSerialScheduler starts the worker goroutine and returns a
// scheduler ready to accept Defer calls.
func newSerialScheduler() *serialScheduler {
	s := &serialScheduler{queue: make(chan func())}
	go func() {
		for fn := range s.queue {
			fn()
		}
	}()
	return s
}

func (s *serialScheduler) Defer(fn func()) { s.queue <- fn }
