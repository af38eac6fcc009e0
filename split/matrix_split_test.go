package split

import (
	"fmt"
	"testing"

	"github.com/lasigeBioTM/DRecPy/core"
	"github.com/lasigeBioTM/DRecPy/dataset"
)

// newGridDS builds a dense 4x4 user-item grid.
func newGridDS(t *testing.T) *dataset.MemoryInteractionDataset {
	t.Helper()
	var rows [][]any
	for u := 1; u <= 4; u++ {
		for i := 1; i <= 4; i++ {
			rows = append(rows, []any{fmt.Sprintf("u%d", u), fmt.Sprintf("i%d", i), u + i})
		}
	}
	ds, err := dataset.FromRows([]string{"user", "item", "interaction"}, rows)
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}
	return ds
}

func TestMatrixSplit(t *testing.T) {
	ds := newGridDS(t)

	train, test, err := MatrixSplit(ds, MatrixSplitOptions{
		UserTestRatio: 0.5,
		ItemTestRatio: 0.5,
		Seed:          21,
	})
	if err != nil {
		t.Fatalf("MatrixSplit() error = %v", err)
	}

	// Half the users crossed with half the items of a dense grid puts
	// exactly 2x2 interactions into the test sub-matrix.
	if test.Len() != 4 || train.Len() != 12 {
		t.Fatalf("Len() = (train %d, test %d), want (12, 4)", train.Len(), test.Len())
	}
	if n, _ := test.CountUnique("user"); n != 2 {
		t.Errorf("test users = %d, want 2", n)
	}
	if n, _ := test.CountUnique("item"); n != 2 {
		t.Errorf("test items = %d, want 2", n)
	}

	// Partition without overlap.
	seen := make(map[int]bool)
	for _, rid := range append(collectRIDs(t, train), collectRIDs(t, test)...) {
		if seen[rid] {
			t.Errorf("rid %d appears on both sides", rid)
		}
		seen[rid] = true
	}
	if len(seen) != 16 {
		t.Errorf("union holds %d rids, want 16", len(seen))
	}
	if ds.Len() != 16 {
		t.Errorf("input mutated: Len() = %d, want 16", ds.Len())
	}
}

func TestMatrixSplit_Deterministic(t *testing.T) {
	ds := newGridDS(t)
	run := func() []int {
		_, test, err := MatrixSplit(ds, MatrixSplitOptions{
			UserTestRatio: 0.5,
			ItemTestRatio: 0.5,
			Seed:          8,
		})
		if err != nil {
			t.Fatalf("MatrixSplit() error = %v", err)
		}
		return collectRIDs(t, test)
	}
	if a, b := run(), run(); fmt.Sprint(a) != fmt.Sprint(b) {
		t.Errorf("same seed produced different splits: %v vs %v", a, b)
	}
}

func TestMatrixSplit_InvalidRatios(t *testing.T) {
	ds := newGridDS(t)
	for _, opts := range []MatrixSplitOptions{
		{UserTestRatio: 0, ItemTestRatio: 0.5},
		{UserTestRatio: 0.5, ItemTestRatio: 1},
		{UserTestRatio: -0.1, ItemTestRatio: 0.5},
	} {
		if _, _, err := MatrixSplit(ds, opts); !core.IsInvalidInput(err) {
			t.Errorf("MatrixSplit(%+v) error = %v, want INVALID_INPUT", opts, err)
		}
	}
}

func TestMatrixSplit_WithInternalIDs(t *testing.T) {
	ds := newGridDS(t)
	if err := ds.AssignInternalIDs(); err != nil {
		t.Fatalf("AssignInternalIDs() error = %v", err)
	}
	train, test, err := MatrixSplit(ds, MatrixSplitOptions{
		UserTestRatio: 0.5,
		ItemTestRatio: 0.5,
		Seed:          3,
	})
	if err != nil {
		t.Fatalf("MatrixSplit() error = %v", err)
	}
	if !train.HasInternalIDs() || !test.HasInternalIDs() {
		t.Error("split outputs lost internal ids")
	}
	if test.Len() != 4 {
		t.Errorf("test Len() = %d, want 4", test.Len())
	}
}
