package arbiter

import "github.com/prometheus/client_golang/prometheus"

// promCollectors holds the broker's externally scrapeable Prometheus
// collectors. It's distinct from the internal *brokermetrics.Registry
// backing Stats(): this one is opt-in (WithMetricsRegisterer), global
// in the Prometheus client sense, and meant for a real /metrics
// endpoint rather than an in-process snapshot.
type promCollectors struct {
	publishesTotal      prometheus.Counter
	dispatchesTotal     prometheus.Counter
	resolutionsTotal    *prometheus.CounterVec
	dispatchSeconds     prometheus.Histogram
	subscriptionsActive prometheus.Gauge
	persistedMessages   prometheus.Gauge
}

func newPromCollectors(r prometheus.Registerer) *promCollectors {
	pc := &promCollectors{
		publishesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbiter_publishes_total",
			Help: "Total number of Publish calls.",
		}),
		dispatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbiter_dispatches_total",
			Help: "Total number of completed dispatch passes.",
		}),
		resolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbiter_resolutions_total",
			Help: "Total number of publications settled, by outcome.",
		}, []string{"outcome"}),
		dispatchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbiter_dispatch_duration_seconds",
			Help:    "Time spent building and launching a dispatch list.",
			Buckets: prometheus.DefBuckets,
		}),
		subscriptionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbiter_subscriptions_active",
			Help: "Current number of registered, non-removed subscriptions.",
		}),
		persistedMessages: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbiter_persisted_messages",
			Help: "Current number of persisted messages retained across the tree.",
		}),
	}

	r.MustRegister(
		pc.publishesTotal,
		pc.dispatchesTotal,
		pc.resolutionsTotal,
		pc.dispatchSeconds,
		pc.subscriptionsActive,
		pc.persistedMessages,
	)
	return pc
}
