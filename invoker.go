package arbiter

import "context"

// SubscriberFunc is the direct-return subscriber shape: its return
// value is the fulfillment, a returned error is a rejection.
type SubscriberFunc func(ctx context.Context, topic string, data any) (any, error)

// FutureSubscriberFunc is the future-returning shape, for a subscriber
// that already holds a pending operation of its own.
type FutureSubscriberFunc func(ctx context.Context, topic string, data any) *Future

// DoneFunc resolves one done-callback invocation. A non-nil err rejects;
// otherwise value fulfills.
type DoneFunc func(err error, value any)

// DoneSubscriberFunc is the done-callback subscriber shape: the
// subscriber calls done exactly once, synchronously or later, to settle
// its outcome.
type DoneSubscriberFunc func(ctx context.Context, topic string, data any, done DoneFunc)

// adaptSubscriber collapses whichever of the three subscriber shapes fn
// satisfies into the uniform invoke signature the dispatcher launches:
// given a context, topic, and payload, produce a Future. A fn that
// matches none of the known shapes is replaced by a no-op placeholder
// that fulfills immediately with nil, so publish still yields a settled
// outcome for it.
func adaptSubscriber(fn any) func(ctx context.Context, topic string, data any) *Future {
	switch s := fn.(type) {
	case SubscriberFunc:
		return adaptDirect(s)
	case func(context.Context, string, any) (any, error):
		return adaptDirect(s)
	case FutureSubscriberFunc:
		return adaptFuture(s)
	case func(context.Context, string, any) *Future:
		return adaptFuture(s)
	case DoneSubscriberFunc:
		return adaptDone(s)
	case func(context.Context, string, any, DoneFunc):
		return adaptDone(s)
	default:
		return func(ctx context.Context, topic string, data any) *Future {
			f := NewFuture()
			f.Fulfill(nil)
			return f
		}
	}
}

func adaptDirect(fn SubscriberFunc) func(context.Context, string, any) *Future {
	return func(ctx context.Context, topic string, data any) *Future {
		f := NewFuture()
		value, err := fn(ctx, topic, data)
		if err != nil {
			f.Reject(err)
		} else {
			f.Fulfill(value)
		}
		return f
	}
}

func adaptFuture(fn FutureSubscriberFunc) func(context.Context, string, any) *Future {
	return func(ctx context.Context, topic string, data any) *Future {
		inner := fn(ctx, topic, data)
		if inner == nil {
			f := NewFuture()
			f.Fulfill(nil)
			return f
		}
		return inner
	}
}

func adaptDone(fn DoneSubscriberFunc) func(context.Context, string, any) *Future {
	return func(ctx context.Context, topic string, data any) *Future {
		f := NewFuture()
		fn(ctx, topic, data, func(err error, value any) {
			if err != nil {
				f.Reject(err)
			} else {
				f.Fulfill(value)
			}
		})
		return f
	}
}
