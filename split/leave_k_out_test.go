package split

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/lasigeBioTM/DRecPy/core"
	"github.com/lasigeBioTM/DRecPy/dataset"
)

// newSplitDS builds a dataset with three users and five interactions each.
func newSplitDS(t *testing.T) *dataset.MemoryInteractionDataset {
	t.Helper()
	var rows [][]any
	for _, user := range []string{"u1", "u2", "u3"} {
		for i := 1; i <= 5; i++ {
			rows = append(rows, []any{user, fmt.Sprintf("i%d", i), i, i * 100})
		}
	}
	ds, err := dataset.FromRows([]string{"user", "item", "interaction", "timestamp"}, rows)
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}
	return ds
}

func collectRIDs(t *testing.T, ds core.InteractionDataset) []int {
	t.Helper()
	recs, err := ds.ValuesList("rid")
	if err != nil {
		t.Fatalf("ValuesList(rid) error = %v", err)
	}
	out := make([]int, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.RID())
	}
	sort.Ints(out)
	return out
}

func TestLeaveKOut(t *testing.T) {
	ds := newSplitDS(t)

	train, test, err := LeaveKOut(context.Background(), ds, LeaveKOutOptions{K: 2, Seed: 5})
	if err != nil {
		t.Fatalf("LeaveKOut() error = %v", err)
	}
	if test.Len() != 6 || train.Len() != 9 {
		t.Fatalf("Len() = (train %d, test %d), want (9, 6)", train.Len(), test.Len())
	}
	if ds.Len() != 15 {
		t.Errorf("input mutated: Len() = %d, want 15", ds.Len())
	}

	// Train and test partition the original rows.
	seen := make(map[int]bool)
	for _, rid := range append(collectRIDs(t, train), collectRIDs(t, test)...) {
		if seen[rid] {
			t.Errorf("rid %d appears on both sides", rid)
		}
		seen[rid] = true
	}
	if len(seen) != 15 {
		t.Errorf("union holds %d rids, want 15", len(seen))
	}

	// Exactly two test interactions per user.
	for _, user := range []string{"u1", "u2", "u3"} {
		sel, err := test.Select(fmt.Sprintf("user == '%s'", user), true)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if sel.Len() != 2 {
			t.Errorf("user %s holds %d test rows, want 2", user, sel.Len())
		}
	}
}

func TestLeaveKOut_Ratio(t *testing.T) {
	ds := newSplitDS(t)

	// K = 0.4 with 5 interactions per user leaves 2 rows each in test.
	_, test, err := LeaveKOut(context.Background(), ds, LeaveKOutOptions{K: 0.4, Seed: 1})
	if err != nil {
		t.Fatalf("LeaveKOut() error = %v", err)
	}
	if test.Len() != 6 {
		t.Errorf("test Len() = %d, want 6", test.Len())
	}
}

func TestLeaveKOut_MinUserInteractions(t *testing.T) {
	ds, err := dataset.FromRows(
		[]string{"user", "item", "interaction", "timestamp"},
		[][]any{
			{"u1", "i1", 1, 1}, {"u1", "i2", 2, 2}, {"u1", "i3", 3, 3},
			{"u2", "i1", 1, 1}, // too few interactions, stays in train
		},
	)
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}
	train, test, err := LeaveKOut(context.Background(), ds, LeaveKOutOptions{
		K:                   1,
		MinUserInteractions: 2,
		Seed:                3,
	})
	if err != nil {
		t.Fatalf("LeaveKOut() error = %v", err)
	}
	if test.Len() != 1 || train.Len() != 3 {
		t.Errorf("Len() = (train %d, test %d), want (3, 1)", train.Len(), test.Len())
	}
	ok, err := train.Exists("user == 'u2'")
	if err != nil || !ok {
		t.Errorf("u2 should remain fully in train: (%v, %v)", ok, err)
	}
}

func TestLeaveKOut_LastTimestamps(t *testing.T) {
	ds := newSplitDS(t)

	// Timestamps grow with the interaction index, so the two most recent
	// rows per user are those with interaction 4 and 5.
	_, test, err := LeaveKOut(context.Background(), ds, LeaveKOutOptions{
		K:              2,
		LastTimestamps: true,
	})
	if err != nil {
		t.Fatalf("LeaveKOut() error = %v", err)
	}
	if test.Len() != 6 {
		t.Fatalf("test Len() = %d, want 6", test.Len())
	}
	if v, err := test.Min("interaction"); err != nil || v != 4 {
		t.Errorf("Min(interaction) = (%v, %v), want (4, nil)", v, err)
	}
}

func TestLeaveKOut_Deterministic(t *testing.T) {
	ds := newSplitDS(t)

	run := func(concurrent int) []int {
		_, test, err := LeaveKOut(context.Background(), ds, LeaveKOutOptions{
			K:             2,
			Seed:          42,
			MaxConcurrent: concurrent,
		})
		if err != nil {
			t.Fatalf("LeaveKOut() error = %v", err)
		}
		return collectRIDs(t, test)
	}
	a := run(0)
	b := run(1)
	c := run(4)
	if fmt.Sprint(a) != fmt.Sprint(b) || fmt.Sprint(a) != fmt.Sprint(c) {
		t.Errorf("results vary with concurrency: %v / %v / %v", a, b, c)
	}
}

func TestLeaveKOut_PreservesInternalIDs(t *testing.T) {
	ds := newSplitDS(t)
	if err := ds.AssignInternalIDs(); err != nil {
		t.Fatalf("AssignInternalIDs() error = %v", err)
	}
	train, test, err := LeaveKOut(context.Background(), ds, LeaveKOutOptions{K: 2, Seed: 9})
	if err != nil {
		t.Fatalf("LeaveKOut() error = %v", err)
	}
	if !train.HasInternalIDs() || !test.HasInternalIDs() {
		t.Fatal("split outputs lost internal ids")
	}
	// uid mapping stays consistent across both sides.
	for _, user := range []string{"u1", "u2", "u3"} {
		a, err := train.UserToUID(user)
		if err != nil {
			t.Fatalf("train UserToUID(%s) error = %v", user, err)
		}
		b, err := test.UserToUID(user)
		if err != nil {
			t.Fatalf("test UserToUID(%s) error = %v", user, err)
		}
		if a != b {
			t.Errorf("UserToUID(%s) differs: train %d, test %d", user, a, b)
		}
	}
}

func TestLeaveKOut_InvalidK(t *testing.T) {
	ds := newSplitDS(t)
	if _, _, err := LeaveKOut(context.Background(), ds, LeaveKOutOptions{K: 0}); !core.IsInvalidInput(err) {
		t.Errorf("LeaveKOut(K=0) error = %v, want INVALID_INPUT", err)
	}
}
