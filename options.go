package arbiter

import "github.com/odvcencio/arbiter/internal/brokerconfig"

// Options is the shallow-mergeable configuration shared by broker-wide
// defaults (optionally loaded from YAML via brokerconfig) and per-call
// overrides passed to Subscribe and Publish.
type Options = brokerconfig.Options

// DefaultOptions returns the broker's built-in defaults.
func DefaultOptions() Options { return brokerconfig.Default() }

// Unbounded is Options.Semaphore's sentinel for "no concurrency limit."
const Unbounded = brokerconfig.Unbounded

// Option overrides a single Options field for one call. Fields that
// don't apply to the call they're passed to (e.g. WithPriority on a
// Publish call) are accepted but ignored by that operation.
type Option func(*Options, map[string]bool)

// WithPersist overrides whether a publish appends a persisted message.
func WithPersist(v bool) Option {
	return func(o *Options, set map[string]bool) { o.Persist = v; set["persist"] = true }
}

// WithSync overrides whether publish runs its dispatch inline instead of
// deferring it through the broker's Scheduler.
func WithSync(v bool) Option {
	return func(o *Options, set map[string]bool) { o.Sync = v; set["sync"] = true }
}

// WithPreventBubble overrides whether a publish notifies only the exact
// terminal node's subscribers instead of its whole lineage.
func WithPreventBubble(v bool) Option {
	return func(o *Options, set map[string]bool) { o.PreventBubble = v; set["prevent_bubble"] = true }
}

// WithLatch overrides the fraction or count of subscriber outcomes that
// must fulfill (or settle, with WithSettlementLatch) before a
// publication's future resolves.
func WithLatch(v float64) Option {
	return func(o *Options, set map[string]bool) { o.Latch = v; set["latch"] = true }
}

// WithSettlementLatch overrides whether the latch counts settlement
// (fulfilled+rejected) rather than fulfillment alone.
func WithSettlementLatch(v bool) Option {
	return func(o *Options, set map[string]bool) { o.SettlementLatch = v; set["settlement_latch"] = true }
}

// WithSemaphore overrides the number of subscriber invocations allowed
// in flight simultaneously for one publish. Unbounded (0) or negative
// degenerates to eager dispatch of every matching subscription.
func WithSemaphore(v int) Option {
	return func(o *Options, set map[string]bool) { o.Semaphore = v; set["semaphore"] = true }
}

// WithUpdateAfterSettlement overrides whether outcomes arriving after
// the publication future has already settled still update its
// observable counters, instead of being dropped.
func WithUpdateAfterSettlement(v bool) Option {
	return func(o *Options, set map[string]bool) {
		o.UpdateAfterSettlement = v
		set["update_after_settlement"] = true
	}
}

// WithPriority overrides a subscription's dispatch priority. Higher
// values launch first.
func WithPriority(v float64) Option {
	return func(o *Options, set map[string]bool) { o.Priority = v; set["priority"] = true }
}

// WithIgnorePersisted overrides whether a new subscription skips replay
// of the topic's already-persisted messages.
func WithIgnorePersisted(v bool) Option {
	return func(o *Options, set map[string]bool) { o.IgnorePersisted = v; set["ignore_persisted"] = true }
}

// resolveOptions applies opts over base, returning the merged Options.
// Only fields an Option explicitly touched override base.
func resolveOptions(base Options, opts []Option) Options {
	overlay := base
	set := make(map[string]bool, len(opts))
	for _, opt := range opts {
		opt(&overlay, set)
	}
	return brokerconfig.Merge(base, overlay, set)
}
