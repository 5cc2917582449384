package arbiter

import (
	"context"
	"testing"
)

func noopSubscriber(ctx context.Context, topic string, data any) (any, error) {
	return data, nil
}

func TestSubscribeAtMaterializesAndInserts(t *testing.T) {
	tr := newTree()
	sub, n := tr.subscribeAt("a.b", 0, 1, SubscriberFunc(noopSubscriber))
	if n.topic != "a.b" {
		t.Fatalf("node topic = %q, want a.b", n.topic)
	}
	if len(n.subscriptions) != 1 || n.subscriptions[0] != sub {
		t.Fatal("expected the new subscription to be registered on the node")
	}
}

func TestSuspendAndResubscribeByToken(t *testing.T) {
	tr := newTree()
	sub, _ := tr.subscribeAt("a", 3, 1, SubscriberFunc(noopSubscriber))
	tok := &Token{Topic: "a", ID: sub.id, Priority: sub.priority}

	if !tr.setSuspendedByToken(tok, true) {
		t.Fatal("expected suspend to find the token")
	}
	if !sub.suspended {
		t.Fatal("expected subscription to be suspended")
	}

	if !tr.setSuspendedByToken(tok, false) {
		t.Fatal("expected resubscribe to find the token")
	}
	if sub.suspended {
		t.Fatal("expected subscription to be active again")
	}
}

func TestRemoveByTokenIsIrreversible(t *testing.T) {
	tr := newTree()
	sub, n := tr.subscribeAt("a", 0, 1, SubscriberFunc(noopSubscriber))
	tok := &Token{Topic: "a", ID: sub.id, Priority: sub.priority}

	if !tr.removeByToken(tok) {
		t.Fatal("expected removal to succeed")
	}
	if len(n.subscriptions) != 0 {
		t.Fatal("expected subscription list to be empty")
	}
	if tr.removeByToken(tok) {
		t.Fatal("removing an already-removed token should fail")
	}
}

func TestUnknownTokenReportsFalseNotError(t *testing.T) {
	tr := newTree()
	tok := &Token{Topic: "never.subscribed", ID: 999, Priority: 0}
	if tr.removeByToken(tok) {
		t.Fatal("expected false for an unknown token")
	}
	if tr.setSuspendedByToken(tok, true) {
		t.Fatal("expected false for an unknown token")
	}
}

func TestMassSuspendAndRemoveSweepDescendants(t *testing.T) {
	tr := newTree()
	tr.subscribeAt("a", 0, 1, SubscriberFunc(noopSubscriber))
	tr.subscribeAt("a.b", 0, 2, SubscriberFunc(noopSubscriber))
	tr.subscribeAt("a.b.c", 0, 3, SubscriberFunc(noopSubscriber))
	tr.subscribeAt("other", 0, 4, SubscriberFunc(noopSubscriber))

	if !tr.setSuspendedByTopic("a", true) {
		t.Fatal("expected topic a to exist")
	}
	for _, topic := range []string{"a", "a.b", "a.b.c"} {
		n := tr.ancestorSearch(topic)
		for _, s := range n.subscriptions {
			if !s.suspended {
				t.Fatalf("expected subscription at %q to be suspended", topic)
			}
		}
	}
	other := tr.ancestorSearch("other")
	if other.subscriptions[0].suspended {
		t.Fatal("sibling subtree must not be affected")
	}

	if _, ok := tr.removeByTopic("a"); !ok {
		t.Fatal("expected topic a to exist for removal")
	}
	for _, topic := range []string{"a", "a.b", "a.b.c"} {
		n := tr.ancestorSearch(topic)
		if len(n.subscriptions) != 0 {
			t.Fatalf("expected no subscriptions remaining at %q", topic)
		}
	}
	if len(other.subscriptions) != 1 {
		t.Fatal("sibling subtree must still have its subscription")
	}
}

func TestMassOperationOnUnknownTopicReportsFalse(t *testing.T) {
	tr := newTree()
	if tr.setSuspendedByTopic("nope", true) {
		t.Fatal("expected false for a topic with no materialized node")
	}
	if _, ok := tr.removeByTopic("nope"); ok {
		t.Fatal("expected false for a topic with no materialized node")
	}
}
