package arbiter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/odvcencio/arbiter/internal/blog"
	"github.com/odvcencio/arbiter/internal/brokerconfig"
	"github.com/odvcencio/arbiter/internal/brokerrors"
	"github.com/odvcencio/arbiter/internal/brokermetrics"
)

// Broker is an independent hierarchical topic-tree publish/subscribe
// instance. Two brokers created by Create share no state: separate
// trees, separate id spaces, separate default options.
type Broker struct {
	instanceID string

	treeMu sync.RWMutex
	tree   *tree

	optsMu   sync.RWMutex
	defaults Options

	nextSubID atomic.Uint64
	nextMsgID atomic.Uint64

	scheduler Scheduler
	logger    *blog.Logger
	metrics   *brokermetrics.Registry
	tracer    trace.Tracer
	prom      *promCollectors

	mPublishesTotal     *brokermetrics.Counter
	mDispatchesTotal    *brokermetrics.Counter
	mFulfillmentsTotal  *brokermetrics.Counter
	mRejectionsTotal    *brokermetrics.Counter
	mDispatchSeconds    *brokermetrics.Histogram
	mSubscriptionsGauge *brokermetrics.Gauge
	mPersistedGauge     *brokermetrics.Gauge
}

// BrokerOption configures a Broker at creation time.
type BrokerOption func(*Broker)

// WithDefaultOptions sets the broker's default Options, merged under
// every call's per-call overrides.
func WithDefaultOptions(o Options) BrokerOption {
	return func(b *Broker) { b.defaults = o }
}

// WithScheduler overrides how an asynchronous publish's dispatch is
// deferred. The default serializes deferred dispatches through a
// single worker goroutine so back-to-back async publishes still
// dispatch in submission order; schedulertest.Immediate runs
// everything inline, useful for deterministic tests.
func WithScheduler(s Scheduler) BrokerOption {
	return func(b *Broker) { b.scheduler = s }
}

// WithLogger attaches structured JSON-Lines logging of tree, dispatch,
// resolve, subscription, and persistence events.
func WithLogger(l *blog.Logger) BrokerOption {
	return func(b *Broker) { b.logger = l }
}

// WithTracer attaches an OpenTelemetry tracer; each publish's dispatch
// runs inside its own span.
func WithTracer(t trace.Tracer) BrokerOption {
	return func(b *Broker) { b.tracer = t }
}

// WithMetricsRegisterer registers the broker's Prometheus collectors
// (publishes, dispatches, resolutions labelled by fulfilled/rejected
// outcome, dispatch latency, active subscriptions, persisted message
// count) with r, for external scraping alongside the broker's own
// in-process Stats().
func WithMetricsRegisterer(r prometheus.Registerer) BrokerOption {
	return func(b *Broker) { b.prom = newPromCollectors(r) }
}

// Create returns a new, independent Broker.
func Create(opts ...BrokerOption) *Broker {
	metrics := brokermetrics.NewRegistry()
	b := &Broker{
		instanceID: uuid.New().String(),
		tree:       newTree(),
		defaults:   brokerconfig.Default(),
		scheduler:  newSerialScheduler(),
		metrics:    metrics,
		tracer:     noop.NewTracerProvider().Tracer("arbiter"),

		mPublishesTotal:     metrics.RegisterCounter(brokermetrics.MetricPublishesTotal, nil),
		mDispatchesTotal:    metrics.RegisterCounter(brokermetrics.MetricDispatchesTotal, nil),
		mFulfillmentsTotal:  metrics.RegisterCounter(brokermetrics.MetricFulfillmentsTotal, nil),
		mRejectionsTotal:    metrics.RegisterCounter(brokermetrics.MetricRejectionsTotal, nil),
		mDispatchSeconds:    metrics.RegisterHistogram(brokermetrics.MetricDispatchSeconds, nil, nil),
		mSubscriptionsGauge: metrics.RegisterGauge(brokermetrics.MetricSubscriptionsGauge, nil),
		mPersistedGauge:     metrics.RegisterGauge(brokermetrics.MetricPersistedGauge, nil),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// InstanceID returns this broker's unique identifier.
func (b *Broker) InstanceID() string { return b.instanceID }

func (b *Broker) defaultOptions() Options {
	b.optsMu.RLock()
	defer b.optsMu.RUnlock()
	return b.defaults
}

// SetDefaultOptions replaces the broker's default options at runtime,
// affecting every subsequent call that doesn't override the changed
// fields itself.
func (b *Broker) SetDefaultOptions(o Options) {
	b.optsMu.Lock()
	b.defaults = o
	b.optsMu.Unlock()
}

func (b *Broker) nextSubscriptionID() uint64 { return b.nextSubID.Add(1) }
func (b *Broker) nextMessageID() uint64      { return b.nextMsgID.Add(1) }

// Subscribe registers subscriber on every topic in topics. subscriber
// must be a SubscriberFunc, FutureSubscriberFunc, DoneSubscriberFunc (or
// a plain function matching one of their signatures); anything else is
// treated as a no-op placeholder. Unless Options.IgnorePersisted is set,
// the new subscription immediately replays every persisted message
// already stored at or below its topic, oldest first.
//
// When topics names exactly one topic, the result is a single *Token.
// Otherwise it's a []*Token, one per topic, in order.
func (b *Broker) Subscribe(topics TopicExpression, subscriber any, opts ...Option) (any, error) {
	if len(topics) == 0 {
		return nil, brokerrors.New(brokerrors.ErrCodeInvalidTopic, "topic expression must name at least one topic")
	}
	effective := resolveOptions(b.defaultOptions(), opts)

	tokens := make([]*Token, 0, len(topics))
	for _, topic := range topics {
		if !isValidTopic(topic) {
			return nil, brokerrors.New(brokerrors.ErrCodeInvalidTopic, "topic must be a string").WithContext("topic", topic)
		}
		tok := b.subscribeOne(topic, subscriber, effective)
		tokens = append(tokens, tok)
	}
	b.logEvent(blog.LevelInfo, blog.CategorySubscription, "subscribe", topics[0], nil)

	if len(tokens) == 1 {
		return tokens[0], nil
	}
	return tokens, nil
}

func (b *Broker) subscribeOne(topic string, subscriber any, effective Options) *Token {
	b.treeMu.Lock()
	sub, n := b.tree.subscribeAt(topic, effective.Priority, b.nextSubscriptionID(), subscriber)
	var replay []*persistedMessage
	if !effective.IgnorePersisted {
		replay = mergePersistedDescendants(n)
	}
	b.treeMu.Unlock()

	for _, msg := range replay {
		future := sub.invoke(context.Background(), msg.topic, msg.data)
		future.OnSettle(func(any, error, bool) {})
	}

	b.mSubscriptionsGauge.Inc()
	if b.prom != nil {
		b.prom.subscriptionsActive.Inc()
	}
	return &Token{Topic: topic, ID: sub.id, Priority: sub.priority}
}

func mergePersistedDescendants(n *node) []*persistedMessage {
	sequences := make([][]*persistedMessage, 0)
	for _, d := range descendants(n) {
		if len(d.persisted) > 0 {
			sequences = append(sequences, d.persisted)
		}
	}
	return mergeSequences(sequences, func(m *persistedMessage) float64 { return float64(m.order) })
}

// Publish dispatches data to topic's subscribers (and, unless
// Options.PreventBubble is set, its ancestors' subscribers), merged by
// priority. The returned Publication is created before any subscriber
// runs; when the effective Options.Sync is false the actual dispatch is
// deferred through the broker's Scheduler, so the Publication's counts
// read zero until dispatch begins.
func (b *Broker) Publish(topic string, data any, opts ...Option) (*Publication, error) {
	if !isValidTopic(topic) {
		return nil, brokerrors.New(brokerrors.ErrCodeInvalidTopic, "topic must be a string").WithContext("topic", topic)
	}
	effective := resolveOptions(b.defaultOptions(), opts)
	pub := newPublication()

	b.mPublishesTotal.Inc()
	if b.prom != nil {
		b.prom.publishesTotal.Inc()
	}
	b.logEvent(blog.LevelInfo, blog.CategoryDispatch, "publish", topic, map[string]any{"sync": effective.Sync})

	pub.future.OnSettle(func(value any, err error, fulfilled bool) {
		if fulfilled {
			b.mFulfillmentsTotal.Inc()
		} else {
			b.mRejectionsTotal.Inc()
		}
	})

	work := func() {
		timer := brokermetrics.NewTimer()
		start := time.Now()
		ctx, span := b.startSpan(context.Background(), "arbiter.dispatch", topic)
		defer span.End()

		b.treeMu.Lock()
		b.runDispatch(ctx, topic, data, effective, pub)
		b.treeMu.Unlock()

		b.mDispatchesTotal.Inc()
		timer.Observe(b.mDispatchSeconds)
		if b.prom != nil {
			b.prom.dispatchesTotal.Inc()
			b.prom.dispatchSeconds.Observe(time.Since(start).Seconds())
		}
	}

	if effective.Sync {
		work()
	} else {
		b.scheduler.Defer(work)
	}

	return pub, nil
}

// Unsubscribe removes (suspend == false) or suspends (suspend == true)
// subscriptions identified by target, which must be a *Token or a
// TopicExpression. A topic-expression target sweeps the topic's node
// and every descendant. The result shape mirrors target: a bool for a
// single token or single-topic expression, []bool otherwise.
func (b *Broker) Unsubscribe(target any, suspend bool) (any, error) {
	b.treeMu.Lock()
	defer b.treeMu.Unlock()

	switch t := target.(type) {
	case *Token:
		ok := b.unsubscribeToken(t, suspend)
		return ok, nil
	case TopicExpression:
		results := make([]bool, len(t))
		for i, topic := range t {
			results[i] = b.unsubscribeTopic(topic, suspend)
		}
		if len(results) == 1 {
			return results[0], nil
		}
		return results, nil
	default:
		return nil, brokerrors.New(brokerrors.ErrCodeInvalidTopic, "unsubscribe target must be a *Token or TopicExpression")
	}
}

func (b *Broker) unsubscribeToken(tok *Token, suspend bool) bool {
	if suspend {
		return b.tree.setSuspendedByToken(tok, true)
	}
	ok := b.tree.removeByToken(tok)
	if ok {
		b.mSubscriptionsGauge.Dec()
		if b.prom != nil {
			b.prom.subscriptionsActive.Dec()
		}
	}
	return ok
}

func (b *Broker) unsubscribeTopic(topic string, suspend bool) bool {
	if suspend {
		return b.tree.setSuspendedByTopic(topic, true)
	}
	removed, ok := b.tree.removeByTopic(topic)
	if removed > 0 {
		b.mSubscriptionsGauge.Add(int64(-removed))
		if b.prom != nil {
			b.prom.subscriptionsActive.Add(float64(-removed))
		}
	}
	return ok
}

// Resubscribe clears the suspended flag for target, which must be a
// *Token or a TopicExpression, reactivating dispatch to it.
func (b *Broker) Resubscribe(target any) (any, error) {
	b.treeMu.Lock()
	defer b.treeMu.Unlock()

	switch t := target.(type) {
	case *Token:
		return b.tree.setSuspendedByToken(t, false), nil
	case TopicExpression:
		results := make([]bool, len(t))
		for i, topic := range t {
			results[i] = b.tree.setSuspendedByTopic(topic, false)
		}
		if len(results) == 1 {
			return results[0], nil
		}
		return results, nil
	default:
		return nil, brokerrors.New(brokerrors.ErrCodeInvalidTopic, "resubscribe target must be a *Token or TopicExpression")
	}
}

// RemovePersisted clears persisted messages. target may be nil (clear
// the whole tree), a *Token or *Publication (remove one message), or a
// TopicExpression (clear a topic's node and every descendant, leaving
// ancestors and siblings untouched).
func (b *Broker) RemovePersisted(target any) (any, error) {
	b.treeMu.Lock()
	defer b.treeMu.Unlock()

	switch t := target.(type) {
	case nil:
		removed := 0
		for _, n := range descendants(b.tree.root) {
			removed += clearPersisted(n)
		}
		b.adjustPersistedGauge(-removed)
		return true, nil
	case *Token:
		return b.removePersistedToken(t), nil
	case *Publication:
		tok := t.Token()
		if tok == nil {
			return false, nil
		}
		return b.removePersistedToken(tok), nil
	case TopicExpression:
		results := make([]bool, len(t))
		for i, topic := range t {
			results[i] = b.removePersistedTopic(topic)
		}
		if len(results) == 1 {
			return results[0], nil
		}
		return results, nil
	default:
		return nil, brokerrors.New(brokerrors.ErrCodeInvalidTopic, "removePersisted target must be nil, a *Token, a *Publication, or a TopicExpression")
	}
}

func (b *Broker) removePersistedToken(tok *Token) bool {
	n := b.tree.ancestorSearch(tok.Topic)
	if n.topic != tok.Topic {
		return false
	}
	ok := removePersistedAt(n, tok.ID)
	if ok {
		b.adjustPersistedGauge(-1)
	}
	return ok
}

func (b *Broker) removePersistedTopic(topic string) bool {
	n := b.tree.ancestorSearch(topic)
	if n.topic != topic {
		return false
	}
	removed := 0
	for _, d := range descendants(n) {
		removed += clearPersisted(d)
	}
	b.adjustPersistedGauge(-removed)
	return true
}

func (b *Broker) adjustPersistedGauge(delta int) {
	if delta == 0 {
		return
	}
	b.mPersistedGauge.Add(int64(delta))
	if b.prom != nil {
		b.prom.persistedMessages.Add(float64(delta))
	}
}

// Stats returns a snapshot of this broker's in-process metrics.
func (b *Broker) Stats() map[string]any {
	return b.metrics.Export()
}

func (b *Broker) logEvent(level blog.Level, category blog.Category, eventType, topic string, details map[string]any) {
	if b.logger == nil {
		return
	}
	b.logger.Log(blog.Event{
		Level:      level,
		Category:   category,
		EventType:  eventType,
		InstanceID: b.instanceID,
		Topic:      topic,
		Details:    details,
	})
}
