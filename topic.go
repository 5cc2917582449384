package arbiter

import (
	"strings"
	"unicode/utf8"
)

// Topic is a dot-partitioned hierarchical subject. The empty string is
// the root topic, an ancestor of every other topic. Topics are never
// dot-normalized: "a." and "a" name distinct nodes.
type Topic = string

// TopicExpression names one or more topics at once, the target of a
// Subscribe, Unsubscribe, Resubscribe, or RemovePersisted call (Publish
// takes a single topic string). Operations that take a TopicExpression of length 1 return a
// single result; longer expressions return one result per topic, in
// order.
type TopicExpression []Topic

// AsTopic builds a single-topic expression.
func AsTopic(topic string) TopicExpression { return TopicExpression{topic} }

// AsTopics builds an explicit multi-topic expression.
func AsTopics(topics ...string) TopicExpression { return TopicExpression(topics) }

// ParseTopics splits a comma-separated string into a topic expression,
// trimming surrounding whitespace from each entry.
func ParseTopics(expr string) TopicExpression {
	parts := strings.Split(expr, ",")
	out := make(TopicExpression, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func isValidTopic(topic string) bool {
	return utf8.ValidString(topic)
}

// Token is a weak reference to one subscription or one persisted
// message, resolved by (topic, id, priority) at the moment it's used
// rather than held as a strong pointer. Priority is part of the lookup
// key, not just a display field: findSubscription anchors its search
// on priority and then matches id among same-priority entries, so a
// Token whose Priority no longer matches the live subscription will
// not resolve to it.
type Token struct {
	Topic    string
	ID       uint64
	Priority float64
}
