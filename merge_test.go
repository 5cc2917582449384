package arbiter

import "testing"

func TestMergeSequencesAscending(t *testing.T) {
	a := []int{1, 4, 9}
	b := []int{2, 3}
	c := []int{0, 5, 6, 10}

	got := mergeSequences([][]int{a, b, c}, func(v int) float64 { return float64(v) })
	want := []int{0, 1, 2, 3, 4, 5, 6, 9, 10}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %d, want %d (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestMergeSequencesWithEmptySequences(t *testing.T) {
	got := mergeSequences([][]int{{}, {1, 2}, {}}, func(v int) float64 { return float64(v) })
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got = %v, want [1 2]", got)
	}
}

func TestMergeSequencesAllEmpty(t *testing.T) {
	got := mergeSequences([][]int{{}, {}}, func(v int) float64 { return float64(v) })
	if len(got) != 0 {
		t.Fatalf("got = %v, want empty", got)
	}
}

func TestMergeSequencesNoSequences(t *testing.T) {
	got := mergeSequences[int](nil, func(v int) float64 { return float64(v) })
	if len(got) != 0 {
		t.Fatalf("got = %v, want empty", got)
	}
}

func TestMergeSequencesTieBreaksByEarlierSequence(t *testing.T) {
	type tagged struct {
		seq   int
		value int
	}
	a := []tagged{{0, 5}}
	b := []tagged{{1, 5}}
	got := mergeSequences([][]tagged{a, b}, func(v tagged) float64 { return float64(v.value) })
	if got[0].seq != 0 || got[1].seq != 1 {
		t.Fatalf("expected earlier sequence first on a tie, got %+v", got)
	}
}

func TestMergeSequencesDescendingViaNegatedKey(t *testing.T) {
	// Each input is ascending by the negated key, i.e. descending by value.
	a := []int{3, 1}
	b := []int{4, 2}
	got := mergeSequences([][]int{a, b}, func(v int) float64 { return -float64(v) })
	want := []int{4, 3, 2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got = %v, want %v", got, want)
		}
	}
}
