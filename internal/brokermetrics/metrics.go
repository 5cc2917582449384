// Package brokermetrics is a small in-process metric registry used for
// Broker.Stats() snapshots. It does not compete with the prometheus
// registry wired into the root package for external scraping; it exists
// for callers who want a zero-dependency, synchronous snapshot of a
// single broker instance without standing up an HTTP exporter.
package brokermetrics

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// MetricType identifies the kind of metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// Labels represents a set of dimensional labels for metrics.
type Labels map[string]string

// String returns a string representation of labels for map keys.
func (l Labels) String() string {
	if len(l) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	result := ""
	for i, k := range keys {
		if i > 0 {
			result += ","
		}
		result += fmt.Sprintf("%s=%s", k, l[k])
	}
	return result
}

// Counter is a monotonically increasing metric.
type Counter struct {
	name   string
	labels Labels
	value  atomic.Int64
}

// NewCounter creates a new counter with the given name and labels.
func NewCounter(name string, labels Labels) *Counter {
	if labels == nil {
		labels = Labels{}
	}
	return &Counter{
		name:   name,
		labels: labels,
	}
}

// Name returns the metric name.
func (c *Counter) Name() string {
	return c.name
}

// Type returns the metric type.
func (c *Counter) Type() MetricType {
	return MetricTypeCounter
}

// Labels returns the metric labels.
func (c *Counter) Labels() Labels {
	return c.labels
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	if c == nil {
		return
	}
	c.value.Add(1)
}

// Add adds the given value to the counter.
func (c *Counter) Add(delta int64) {
	if c == nil {
		return
	}
	if delta < 0 {
		return // counters don't decrease
	}
	c.value.Add(delta)
}

// Get returns the current value.
func (c *Counter) Get() int64 {
	if c == nil {
		return 0
	}
	return c.value.Load()
}

// String returns a human-readable representation.
func (c *Counter) String() string {
	if c == nil {
		return "Counter<nil>"
	}
	return fmt.Sprintf("Counter{name=%s, labels=%s, value=%d}", c.name, c.labels.String(), c.Get())
}

// Gauge is a metric that can go up and down.
type Gauge struct {
	name   string
	labels Labels
	value  atomic.Int64
}

// NewGauge creates a new gauge with the given name and labels.
func NewGauge(name string, labels Labels) *Gauge {
	if labels == nil {
		labels = Labels{}
	}
	return &Gauge{
		name:   name,
		labels: labels,
	}
}

// Name returns the metric name.
func (g *Gauge) Name() string {
	return g.name
}

// Type returns the metric type.
func (g *Gauge) Type() MetricType {
	return MetricTypeGauge
}

// Labels returns the metric labels.
func (g *Gauge) Labels() Labels {
	return g.labels
}

// Set sets the gauge to the given value.
func (g *Gauge) Set(value int64) {
	if g == nil {
		return
	}
	g.value.Store(value)
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() {
	if g == nil {
		return
	}
	g.value.Add(1)
}

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() {
	if g == nil {
		return
	}
	g.value.Add(-1)
}

// Add adds the given value to the gauge.
func (g *Gauge) Add(delta int64) {
	if g == nil {
		return
	}
	g.value.Add(delta)
}

// Get returns the current value.
func (g *Gauge) Get() int64 {
	if g == nil {
		return 0
	}
	return g.value.Load()
}

// String returns a human-readable representation.
func (g *Gauge) String() string {
	if g == nil {
		return "Gauge<nil>"
	}
	return fmt.Sprintf("Gauge{name=%s, labels=%s, value=%d}", g.name, g.labels.String(), g.Get())
}

// DefaultHistogramBuckets are the default latency buckets in seconds,
// sized for in-process dispatch/resolve timings rather than network RPCs.
var DefaultHistogramBuckets = []float64{
	0.0001, // 100us
	0.0005, // 500us
	0.001,  // 1ms
	0.005,  // 5ms
	0.01,   // 10ms
	0.025,  // 25ms
	0.05,   // 50ms
	0.1,    // 100ms
	0.25,   // 250ms
	0.5,    // 500ms
	1.0,    // 1s
}

// Histogram is a metric that samples observations and counts them in buckets.
type Histogram struct {
	name    string
	labels  Labels
	buckets []float64
	counts  []atomic.Int64
	sum     atomic.Int64
	count   atomic.Int64
}

// NewHistogram creates a new histogram with the given name, labels, and buckets.
// If buckets is nil, DefaultHistogramBuckets is used.
func NewHistogram(name string, labels Labels, buckets []float64) *Histogram {
	if labels == nil {
		labels = Labels{}
	}
	if buckets == nil {
		buckets = DefaultHistogramBuckets
	}
	h := &Histogram{
		name:    name,
		labels:  labels,
		buckets: buckets,
		counts:  make([]atomic.Int64, len(buckets)+1), // +1 for +Inf bucket
	}
	return h
}

// Name returns the metric name.
func (h *Histogram) Name() string {
	return h.name
}

// Type returns the metric type.
func (h *Histogram) Type() MetricType {
	return MetricTypeHistogram
}

// Labels returns the metric labels.
func (h *Histogram) Labels() Labels {
	return h.labels
}

// Observe records a value in the histogram. Value should be in seconds.
func (h *Histogram) Observe(value float64) {
	if h == nil {
		return
	}
	if value < 0 {
		value = 0
	}

	for i, bucket := range h.buckets {
		if value <= bucket {
			h.counts[i].Add(1)
			break
		}
		if i == len(h.buckets)-1 {
			h.counts[len(h.buckets)].Add(1)
		}
	}

	h.sum.Add(int64(value * 1e9))
	h.count.Add(1)
}

// ObserveDuration records a duration observation.
func (h *Histogram) ObserveDuration(duration time.Duration) {
	if h == nil {
		return
	}
	h.Observe(duration.Seconds())
}

// GetCount returns the total number of observations.
func (h *Histogram) GetCount() int64 {
	if h == nil {
		return 0
	}
	return h.count.Load()
}

// GetSum returns the sum of all observed values (in seconds).
func (h *Histogram) GetSum() float64 {
	if h == nil {
		return 0
	}
	return float64(h.sum.Load()) / 1e9
}

// GetBuckets returns the bucket counts.
func (h *Histogram) GetBuckets() []int64 {
	if h == nil {
		return nil
	}
	result := make([]int64, len(h.counts))
	for i := range h.counts {
		result[i] = h.counts[i].Load()
	}
	return result
}

// String returns a human-readable representation.
func (h *Histogram) String() string {
	if h == nil {
		return "Histogram<nil>"
	}
	return fmt.Sprintf("Histogram{name=%s, labels=%s, count=%d, sum=%.3f}",
		h.name, h.labels.String(), h.GetCount(), h.GetSum())
}

// Registry manages all metrics belonging to one broker instance. Unlike
// the default global registries seen elsewhere, Arbiter never shares a
// Registry between instances: each Create() call gets its own.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
}

// NewRegistry creates a new, empty metric registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

// makeKey creates a unique key for a metric with labels.
func makeKey(name string, labels Labels) string {
	if len(labels) == 0 {
		return name
	}
	return name + "{" + labels.String() + "}"
}

// RegisterCounter registers a counter metric.
func (r *Registry) RegisterCounter(name string, labels Labels) *Counter {
	if r == nil {
		return NewCounter(name, labels)
	}
	key := makeKey(name, labels)
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.counters[key]; ok {
		return c
	}
	c := NewCounter(name, labels)
	r.counters[key] = c
	return c
}

// RegisterGauge registers a gauge metric.
func (r *Registry) RegisterGauge(name string, labels Labels) *Gauge {
	if r == nil {
		return NewGauge(name, labels)
	}
	key := makeKey(name, labels)
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.gauges[key]; ok {
		return g
	}
	g := NewGauge(name, labels)
	r.gauges[key] = g
	return g
}

// RegisterHistogram registers a histogram metric.
func (r *Registry) RegisterHistogram(name string, labels Labels, buckets []float64) *Histogram {
	if r == nil {
		return NewHistogram(name, labels, buckets)
	}
	key := makeKey(name, labels)
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.histograms[key]; ok {
		return h
	}
	h := NewHistogram(name, labels, buckets)
	r.histograms[key] = h
	return h
}

// Export exports all metrics as a map suitable for JSON serialization,
// the shape Broker.Stats() returns directly to callers.
func (r *Registry) Export() map[string]any {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	export := make(map[string]any)
	export["counters"] = r.counters
	export["gauges"] = r.gauges
	export["histograms"] = r.histograms
	return export
}

// Metric names recorded by a broker instance's internal registry. These
// are distinct from, and narrower than, the external prometheus names
// the root package registers for scraping.
const (
	MetricPublishesTotal     = "publishes_total"
	MetricDispatchesTotal    = "dispatches_total"
	MetricResolutionsTotal   = "resolutions_total"
	MetricFulfillmentsTotal  = "fulfillments_total"
	MetricRejectionsTotal    = "rejections_total"
	MetricDispatchSeconds    = "dispatch_duration_seconds"
	MetricSubscriptionsGauge = "subscriptions_active"
	MetricPersistedGauge     = "persisted_messages"
)

// Timer is a helper for timing operations, used to feed dispatch
// latency into a Histogram.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer, started immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Observe records the elapsed time since the timer started in a histogram.
func (t *Timer) Observe(h *Histogram) {
	if t == nil || h == nil {
		return
	}
	h.ObserveDuration(time.Since(t.start))
}
