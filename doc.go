// Package arbiter implements an in-process, hierarchical, topic-based
// publish/subscribe broker with promissory publish semantics: every
// Publish returns a Publication, a future settled by a configurable
// latch (a fraction or count of subscriber outcomes, either fulfillment
// or full settlement) rather than by waiting for every subscriber.
//
// Topics are dot-partitioned strings forming a tree; subscribing to an
// ancestor topic notifies descendant publishes too, unless the publish
// sets PreventBubble. Subscriptions carry a priority and launch
// highest-priority first, bounded by an optional semaphore on in-flight
// invocations per publish. Publishes may also persist a message on
// their topic for replay to subscribers that arrive later.
//
// Each Broker returned by Create is fully independent: its own topic
// tree, its own subscription id space, its own default Options.
package arbiter
