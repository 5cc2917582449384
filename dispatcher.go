package arbiter

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

// buildDispatchList computes the subscriptions a publish to topic with
// the given effective options should notify, in launch order (highest
// priority first, ties broken by registration order).
//
// With PreventBubble, only the terminal node's own subscriptions count,
// and only when that node's topic is an exact match for the published
// topic (an intermediate ancestor reached by lineage but not equal to
// topic contributes nothing). Otherwise every node in the lineage
// contributes its subscriptions, merged by priority via a k-way merge
// so that an ancestor's high-priority subscriber still launches before
// a deeper node's low-priority one.
func (b *Broker) buildDispatchList(topic string, opts Options) []*Subscription {
	lineage := b.tree.lineage(topic)

	var nodesToMerge []*node
	if opts.PreventBubble {
		terminal := lineage[len(lineage)-1]
		if terminal.topic == topic {
			nodesToMerge = []*node{terminal}
		}
	} else {
		nodesToMerge = lineage
	}

	// Each node's subscriptions are stored ascending by priority, ties
	// broken by increasing id (see insertSubscription). The merge needs
	// every input sequence already in its own output order, so each
	// node's list is stable-sorted descending by priority: a stable sort
	// preserves the existing ascending-id order within a priority tie.
	sequences := make([][]*Subscription, 0, len(nodesToMerge))
	for _, n := range nodesToMerge {
		var active []*Subscription
		for _, sub := range n.subscriptions {
			if !sub.suspended {
				active = append(active, sub)
			}
		}
		sort.SliceStable(active, func(i, j int) bool { return active[i].priority > active[j].priority })
		sequences = append(sequences, active)
	}

	merged := mergeSequences(sequences, func(s *Subscription) float64 { return -s.priority })
	// The merge breaks equal-priority ties between nodes by lineage
	// position; reorder those ties by id so registration order holds
	// across the whole lineage, not just within one node.
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].priority != merged[j].priority {
			return merged[i].priority > merged[j].priority
		}
		return merged[i].id < merged[j].id
	})
	return merged
}

// runDispatch executes the publish procedure: build the dispatch list,
// launch subscriptions under the effective semaphore bound, persist the
// message if requested, and drive pub to settlement through a resolver.
// It is called either inline (Options.Sync == true) or from the
// broker's Scheduler (Options.Sync == false); by the time it starts,
// pub already exists and has been handed back to the caller.
func (b *Broker) runDispatch(ctx context.Context, topic string, data any, opts Options, pub *Publication) {
	list := b.buildDispatchList(topic, opts)
	total := len(list)
	pub.setTotalPending(total)

	res := newResolver(total, opts, pub)

	if b.prom != nil {
		pub.future.OnSettle(func(value any, err error, fulfilled bool) {
			outcome := "rejected"
			if fulfilled {
				outcome = "fulfilled"
			}
			b.prom.resolutionsTotal.WithLabelValues(outcome).Inc()
		})
	}

	bound := opts.Semaphore
	if bound <= 0 {
		bound = total
	}
	if bound <= 0 {
		bound = 1
	}
	sem := semaphore.NewWeighted(int64(bound))

	var mu sync.Mutex
	cursor := 0

	var tryLaunchNext func()
	tryLaunchNext = func() {
		for {
			mu.Lock()
			if cursor >= total {
				mu.Unlock()
				return
			}
			if !sem.TryAcquire(1) {
				mu.Unlock()
				return
			}
			sub := list[cursor]
			cursor++
			mu.Unlock()

			b.launchSubscription(ctx, sub, topic, data, func(value any, err error, fulfilled bool) {
				sem.Release(1)
				recorded := res.onOutcome(value, err, fulfilled)

				mu.Lock()
				more := cursor < total
				mu.Unlock()

				if more {
					tryLaunchNext()
				} else if recorded {
					res.evaluate()
				}
			})
		}
	}

	if total == 0 {
		res.evaluate()
	} else {
		tryLaunchNext()
	}

	if opts.Persist {
		order := b.nextMessageID()
		ancestor := b.tree.ancestorSearch(topic)
		target := b.tree.addTopicLine(topic, ancestor)
		appendPersisted(target, &persistedMessage{topic: topic, data: data, order: order})
		pub.setToken(&Token{Topic: topic, ID: order})
		b.mPersistedGauge.Inc()
		if b.prom != nil {
			b.prom.persistedMessages.Inc()
		}
	}
}

// launchSubscription invokes sub's adapted subscriber and wires its
// future so onSettle fires with the outcome once it resolves, whether
// that happens synchronously inline or later.
func (b *Broker) launchSubscription(ctx context.Context, sub *Subscription, topic string, data any, onSettle func(value any, err error, fulfilled bool)) {
	future := sub.invoke(ctx, topic, data)
	future.OnSettle(onSettle)
}
