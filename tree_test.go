package arbiter

import (
	"reflect"
	"testing"
)

func topicsOf(nodes []*node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.topic
	}
	return out
}

func TestAncestorSearchEmptyTreeReturnsRoot(t *testing.T) {
	tr := newTree()
	got := tr.ancestorSearch("a.b.c")
	if got != tr.root {
		t.Fatalf("expected root, got %q", got.topic)
	}
}

func TestAddTopicLineMaterializesIntermediateNodes(t *testing.T) {
	tr := newTree()
	leaf := tr.addTopicLine("a.b.c", tr.root)
	if leaf.topic != "a.b.c" {
		t.Fatalf("leaf.topic = %q, want a.b.c", leaf.topic)
	}

	got := topicsOf(tr.lineage("a.b.c"))
	want := []string{"", "a", "a.b", "a.b.c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("lineage = %v, want %v", got, want)
	}
}

func TestAddTopicLineIsIdempotent(t *testing.T) {
	tr := newTree()
	first := tr.addTopicLine("a.b", tr.ancestorSearch("a.b"))
	second := tr.addTopicLine("a.b", tr.ancestorSearch("a.b"))
	if first != second {
		t.Fatal("expected the same node on repeated materialization")
	}
	if len(tr.root.children) != 1 {
		t.Fatalf("expected exactly one child of root, got %d", len(tr.root.children))
	}
}

func TestAncestorSearchFindsDeepestExistingAncestor(t *testing.T) {
	tr := newTree()
	tr.addTopicLine("a.b", tr.root)

	got := tr.ancestorSearch("a.b.c.d")
	if got.topic != "a.b" {
		t.Fatalf("ancestorSearch = %q, want a.b", got.topic)
	}
}

func TestAncestorSearchExactMatch(t *testing.T) {
	tr := newTree()
	tr.addTopicLine("a.b", tr.root)

	got := tr.ancestorSearch("a.b")
	if got.topic != "a.b" {
		t.Fatalf("ancestorSearch = %q, want a.b", got.topic)
	}
}

func TestAncestorSearchDoesNotNormalizeTrailingDot(t *testing.T) {
	tr := newTree()
	tr.addTopicLine("a", tr.root)
	withDot := tr.addTopicLine("a.", tr.ancestorSearch("a."))

	if withDot.topic == "a" {
		t.Fatal("\"a.\" must not collapse to \"a\"")
	}
	if tr.ancestorSearch("a").topic != "a" {
		t.Fatal("\"a\" must still resolve to its own node")
	}
}

func TestSiblingsDoNotShadowEachOther(t *testing.T) {
	tr := newTree()
	tr.addTopicLine("a.x", tr.root)
	tr.addTopicLine("a.y", tr.root)
	tr.addTopicLine("a.z", tr.root)

	if got := tr.ancestorSearch("a.y.deep"); got.topic != "a.y" {
		t.Fatalf("ancestorSearch(a.y.deep) = %q, want a.y", got.topic)
	}
	a := tr.ancestorSearch("a")
	got := topicsOf(a.children)
	want := []string{"a.x", "a.y", "a.z"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("children = %v, want sorted %v", got, want)
	}
}

func TestDescendantsIncludesSelfAndIsDeterministic(t *testing.T) {
	tr := newTree()
	tr.addTopicLine("a.b", tr.root)
	tr.addTopicLine("a.c", tr.root)
	tr.addTopicLine("a.b.d", tr.root)

	a := tr.ancestorSearch("a")
	got := topicsOf(descendants(a))
	want := []string{"a", "a.b", "a.b.d", "a.c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("descendants = %v, want %v", got, want)
	}
}

func TestSubscribingToEmptyTopicTargetsRoot(t *testing.T) {
	tr := newTree()
	n := tr.addTopicLine("", tr.root)
	if n != tr.root {
		t.Fatal("expected addTopicLine(\"\", root) to return root itself")
	}
}

func TestInsertSubscriptionSortedByPriorityThenID(t *testing.T) {
	n := &node{topic: "a"}
	low := &Subscription{id: 1, priority: 0}
	high := &Subscription{id: 2, priority: 10}
	mid := &Subscription{id: 3, priority: 5}
	midLater := &Subscription{id: 4, priority: 5}

	insertSubscription(n, low)
	insertSubscription(n, high)
	insertSubscription(n, mid)
	insertSubscription(n, midLater)

	var ids []uint64
	for _, s := range n.subscriptions {
		ids = append(ids, s.id)
	}
	// ascending priority: low(0), mid(5,id3), midLater(5,id4), high(10)
	want := []uint64{1, 3, 4, 2}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
}

func TestFindAndRemoveSubscription(t *testing.T) {
	n := &node{topic: "a"}
	a := &Subscription{id: 1, priority: 5}
	b := &Subscription{id: 2, priority: 5}
	c := &Subscription{id: 3, priority: 5}
	insertSubscription(n, a)
	insertSubscription(n, b)
	insertSubscription(n, c)

	idx := findSubscription(n, 2, 5)
	if idx < 0 || n.subscriptions[idx].id != 2 {
		t.Fatalf("findSubscription did not locate id 2, idx=%d", idx)
	}
	removeSubscriptionAt(n, idx)
	if len(n.subscriptions) != 2 {
		t.Fatalf("expected 2 remaining subscriptions, got %d", len(n.subscriptions))
	}
	if findSubscription(n, 2, 5) >= 0 {
		t.Fatal("expected id 2 to be gone")
	}
}

func TestPersistedAppendAndRemove(t *testing.T) {
	n := &node{topic: "a"}
	appendPersisted(n, &persistedMessage{topic: "a", data: 1, order: 1})
	appendPersisted(n, &persistedMessage{topic: "a", data: 2, order: 2})
	appendPersisted(n, &persistedMessage{topic: "a", data: 3, order: 3})

	if !removePersistedAt(n, 2) {
		t.Fatal("expected to find and remove order 2")
	}
	if len(n.persisted) != 2 {
		t.Fatalf("expected 2 remaining persisted messages, got %d", len(n.persisted))
	}
	if removePersistedAt(n, 2) {
		t.Fatal("order 2 should already be gone")
	}

	clearPersisted(n)
	if len(n.persisted) != 0 {
		t.Fatal("expected persisted list to be empty after clear")
	}
}
