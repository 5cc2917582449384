package arbiter

import "context"

// Subscription is one registered subscriber at one node. id is
// monotonically increasing and globally unique within a broker;
// suspended subscriptions are skipped by dispatch but remain registered
// until explicitly removed.
type Subscription struct {
	id        uint64
	topic     string
	priority  float64
	suspended bool
	invoke    func(ctx context.Context, topic string, data any) *Future
}

func newSubscription(id uint64, topic string, priority float64, fn any) *Subscription {
	return &Subscription{
		id:       id,
		topic:    topic,
		priority: priority,
		invoke:   adaptSubscriber(fn),
	}
}

// registry operations compose tree primitives with Subscription
// lifecycle rules (suspend/resubscribe/remove), including the
// mass-sweep behavior for topic-targeted (rather than token-targeted)
// operations.

// subscribeAt registers a new subscription for fn at the node for topic,
// materializing the node if necessary, and returns the new subscription
// together with that node.
func (t *tree) subscribeAt(topic string, priority float64, id uint64, fn any) (*Subscription, *node) {
	ancestor := t.ancestorSearch(topic)
	n := t.addTopicLine(topic, ancestor)
	sub := newSubscription(id, topic, priority, fn)
	insertSubscription(n, sub)
	return sub, n
}

// setSuspendedByToken finds the subscription at tok's exact topic node
// and flips its suspended flag, returning whether it was found.
func (t *tree) setSuspendedByToken(tok *Token, suspended bool) bool {
	n := t.ancestorSearch(tok.Topic)
	if n.topic != tok.Topic {
		return false
	}
	i := findSubscription(n, tok.ID, tok.Priority)
	if i < 0 {
		return false
	}
	n.subscriptions[i].suspended = suspended
	return true
}

// removeByToken removes the subscription at tok's exact topic node,
// returning whether it was found.
func (t *tree) removeByToken(tok *Token) bool {
	n := t.ancestorSearch(tok.Topic)
	if n.topic != tok.Topic {
		return false
	}
	i := findSubscription(n, tok.ID, tok.Priority)
	if i < 0 {
		return false
	}
	removeSubscriptionAt(n, i)
	return true
}

// setSuspendedByTopic sweeps every subscription at topic's node and all
// of its descendants, setting their suspended flag. Returns whether the
// topic node exists at all.
func (t *tree) setSuspendedByTopic(topic string, suspended bool) bool {
	n := t.ancestorSearch(topic)
	if n.topic != topic {
		return false
	}
	for _, d := range descendants(n) {
		for _, sub := range d.subscriptions {
			sub.suspended = suspended
		}
	}
	return true
}

// removeByTopic sweeps every subscription at topic's node and all of its
// descendants, removing them. Returns the number of subscriptions
// removed and whether the topic node exists at all.
func (t *tree) removeByTopic(topic string) (int, bool) {
	n := t.ancestorSearch(topic)
	if n.topic != topic {
		return 0, false
	}
	removed := 0
	for _, d := range descendants(n) {
		removed += len(d.subscriptions)
		d.subscriptions = nil
	}
	return removed, true
}
