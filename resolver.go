package arbiter

import "sync"

// resolver accumulates subscriber outcomes for one publish and decides
// when the publication future settles. total is fixed at dispatch
// start: fulfilled + rejected + pending always sums to total.
//
// Latch evaluation follows the publish options' latch/settlementLatch
// combination. Let F/R/P be the fulfilled/rejected/pending counts, S =
// F+R (settled so far), T = F+P+R (total, constant), M = F+P (the most
// that could still fulfill), L = latch:
//
//	reject when (not settlementLatch, L>=1, M<L)
//	         or (not settlementLatch, L<1,  M/T<L)
//	         or (not settlementLatch, L<1,  T==0)
//	         or (settlementLatch,     L>=1, T<L)
//	         or (settlementLatch,     L<1,  T==0)
//
// The T==0 guards above exist because M/T and F/T are 0/0 (NaN) when a
// publish has no subscribers at all; every comparison against NaN is
// false, so without an explicit T==0 check a zero-subscriber publish
// under the default fractional latch would never settle. Rejecting
// immediately, with no causes, is the documented behavior (spec.md §9).
//	fulfill when (not settlementLatch, L>=1, F>=L)   [checked after reject]
//	         or (not settlementLatch, L<1,  F/T>=L)
//	         or (settlementLatch,     L>=1, S>=L)
//	         or (settlementLatch,     L<1,  S/T>=L)
//
// Fulfillment value is fulfilledValues alone for a fulfillment latch, or
// fulfilledValues followed by rejectedValues for a settlement latch.
// Rejection value is always rejectedValues.
type resolver struct {
	mu sync.Mutex

	total     int
	fulfilled int
	rejected  int
	pending   int

	fulfilledValues []any
	rejectedValues  []error

	settled               bool
	latch                 float64
	settlementLatch       bool
	updateAfterSettlement bool

	pub *Publication
}

func newResolver(total int, opts Options, pub *Publication) *resolver {
	return &resolver{
		total:                 total,
		pending:               total,
		latch:                 opts.Latch,
		settlementLatch:       opts.SettlementLatch,
		updateAfterSettlement: opts.UpdateAfterSettlement,
		pub:                   pub,
	}
}

// onOutcome records one subscriber's outcome. It returns whether the
// outcome was actually recorded: outcomes arriving after settlement are
// dropped unless updateAfterSettlement is set, per the broker's policy
// that unresolved latches stay fixed at their resolved value.
func (r *resolver) onOutcome(value any, err error, fulfilled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.settled && !r.updateAfterSettlement {
		return false
	}

	if fulfilled {
		r.fulfilledValues = append(r.fulfilledValues, value)
		r.fulfilled++
	} else {
		r.rejectedValues = append(r.rejectedValues, err)
		r.rejected++
	}
	r.pending--
	r.pub.updateCounts(r.fulfilled, r.rejected, r.pending)
	return true
}

// evaluate re-checks the latch against the current counts and settles
// the publication future if it has become determined. Safe to call
// repeatedly: once settled, later calls are no-ops (unless
// updateAfterSettlement allows the counts to keep moving, in which case
// each call re-checks against the latest counts).
func (r *resolver) evaluate() {
	r.mu.Lock()
	if r.settled && !r.updateAfterSettlement {
		r.mu.Unlock()
		return
	}

	F := float64(r.fulfilled)
	R := float64(r.rejected)
	P := float64(r.pending)
	S := F + R
	T := F + P + R
	M := F + P
	L := r.latch
	settlementLatch := r.settlementLatch

	reject := (!settlementLatch && L >= 1 && M < L) ||
		(!settlementLatch && L < 1 && M/T < L) ||
		(!settlementLatch && L < 1 && T == 0) ||
		(settlementLatch && L >= 1 && T < L) ||
		(settlementLatch && L < 1 && T == 0)

	if reject {
		r.settleLocked(false)
		return
	}

	fulfill := (!settlementLatch && L >= 1 && F >= L) ||
		(!settlementLatch && L < 1 && F/T >= L) ||
		(settlementLatch && L >= 1 && S >= L) ||
		(settlementLatch && L < 1 && S/T >= L)

	if fulfill {
		r.settleLocked(true)
		return
	}

	r.mu.Unlock()
}

// settleLocked settles the publication future. r.mu must be held; it is
// released before returning.
func (r *resolver) settleLocked(fulfilled bool) {
	r.settled = true
	var fulfilledValues []any
	var rejectedValues []error
	settlementLatch := r.settlementLatch
	if fulfilled {
		fulfilledValues = append([]any(nil), r.fulfilledValues...)
		if settlementLatch {
			rejectedValues = append([]error(nil), r.rejectedValues...)
		}
	} else {
		rejectedValues = append([]error(nil), r.rejectedValues...)
	}
	r.mu.Unlock()

	if fulfilled {
		if settlementLatch {
			r.pub.settleFulfilled(append(fulfilledValues, errsToAny(rejectedValues)...))
		} else {
			r.pub.settleFulfilled(fulfilledValues)
		}
	} else {
		r.pub.settleRejected(rejectedValues)
	}
}

func errsToAny(errs []error) []any {
	out := make([]any, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}
