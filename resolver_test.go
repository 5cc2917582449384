package arbiter

import (
	"context"
	"errors"
	"testing"
)

func newTestResolver(total int, latch float64, settlementLatch, updateAfterSettlement bool) (*resolver, *Publication) {
	pub := newPublication()
	pub.setTotalPending(total)
	opts := Options{Latch: latch, SettlementLatch: settlementLatch, UpdateAfterSettlement: updateAfterSettlement}
	return newResolver(total, opts, pub), pub
}

func TestResolverZeroSubscribersWithCountLatchRejectsImmediately(t *testing.T) {
	res, pub := newTestResolver(0, 1, false, false)
	res.evaluate()

	if !pub.Settled() {
		t.Fatal("expected immediate settlement with zero subscribers")
	}
	_, err := pub.Wait(context.Background())
	var rej *RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("err = %v, want *RejectionError", err)
	}
	if len(rej.Causes) != 0 {
		t.Fatalf("expected empty causes, got %v", rej.Causes)
	}
}

func TestResolverFulfillmentLatchCount(t *testing.T) {
	res, pub := newTestResolver(3, 2, false, false)

	res.onOutcome("a", nil, true)
	res.evaluate()
	if pub.Settled() {
		t.Fatal("should not settle after only 1 of 2 required fulfillments")
	}

	res.onOutcome("b", nil, true)
	res.evaluate()
	if !pub.Settled() {
		t.Fatal("expected settlement once fulfilled count reaches the latch")
	}
	value, err := pub.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	values, ok := value.([]any)
	if !ok || len(values) != 2 {
		t.Fatalf("value = %v, want 2 fulfilled values", value)
	}
}

func TestResolverRejectsWhenFulfillmentBecomesImpossible(t *testing.T) {
	res, pub := newTestResolver(3, 3, false, false)

	res.onOutcome(nil, errors.New("e1"), false)
	res.evaluate()
	if !pub.Settled() {
		t.Fatal("expected rejection: fewer than 3 subscriptions can now fulfill")
	}
	_, err := pub.Wait(context.Background())
	var rej *RejectionError
	if !errors.As(err, &rej) || len(rej.Causes) != 1 {
		t.Fatalf("err = %v, want *RejectionError with 1 cause", err)
	}
}

func TestResolverFractionalLatch(t *testing.T) {
	res, pub := newTestResolver(4, 0.5, false, false)

	res.onOutcome("a", nil, true)
	res.evaluate()
	if pub.Settled() {
		t.Fatal("1/4 fulfilled should not satisfy a 0.5 latch yet")
	}

	res.onOutcome("b", nil, true)
	res.evaluate()
	if !pub.Settled() {
		t.Fatal("2/4 fulfilled should satisfy a 0.5 latch")
	}
}

func TestResolverSettlementLatchCountsRejectionsToo(t *testing.T) {
	res, pub := newTestResolver(2, 2, true, false)

	res.onOutcome(nil, errors.New("e1"), false)
	res.evaluate()
	if pub.Settled() {
		t.Fatal("1 of 2 settled should not satisfy a settlement latch of 2")
	}

	res.onOutcome("ok", nil, true)
	res.evaluate()
	if !pub.Settled() {
		t.Fatal("2 of 2 settled should satisfy a settlement latch of 2")
	}
	value, err := pub.Wait(context.Background())
	if err != nil {
		t.Fatalf("settlement latch should fulfill once satisfied, got err %v", err)
	}
	values, ok := value.([]any)
	if !ok || len(values) != 2 {
		t.Fatalf("value = %v, want fulfilled+rejected values concatenated", value)
	}
}

func TestResolverOutcomesAfterSettlementAreDroppedByDefault(t *testing.T) {
	res, pub := newTestResolver(3, 1, false, false)
	res.onOutcome("a", nil, true)
	res.evaluate()
	if !pub.Settled() {
		t.Fatal("expected settlement after first fulfillment with latch=1")
	}

	recorded := res.onOutcome("b", nil, true)
	if recorded {
		t.Fatal("expected the outcome after settlement to be dropped")
	}
	if pub.Fulfilled() != 1 {
		t.Fatalf("Fulfilled() = %d, want 1 (later outcome must not update counts)", pub.Fulfilled())
	}
}

func TestResolverUpdateAfterSettlementKeepsRecording(t *testing.T) {
	res, pub := newTestResolver(3, 1, false, true)
	res.onOutcome("a", nil, true)
	res.evaluate()
	if !pub.Settled() {
		t.Fatal("expected settlement after first fulfillment with latch=1")
	}

	recorded := res.onOutcome("b", nil, true)
	if !recorded {
		t.Fatal("expected outcome to be recorded when updateAfterSettlement is set")
	}
	if pub.Fulfilled() != 2 {
		t.Fatalf("Fulfilled() = %d, want 2", pub.Fulfilled())
	}
}
