package model

import (
	"context"
	"reflect"
	"testing"

	"github.com/lasigeBioTM/DRecPy/core"
	"github.com/lasigeBioTM/DRecPy/store"
)

// countingModel records how often the underlying model is invoked.
type countingModel struct {
	calls int
}

var _ core.Recommender = (*countingModel)(nil)

func (m *countingModel) Rank(_ context.Context, uid int, iids []int, n int) ([]core.RankedItem, error) {
	m.calls++
	ranked := make([]core.RankedItem, 0, len(iids))
	for i, iid := range iids {
		ranked = append(ranked, core.RankedItem{IID: iid, Score: float64(len(iids) - i)})
	}
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

func (m *countingModel) TrainSet() core.InteractionDataset { return nil }

func TestCachedRecommender_HitsCache(t *testing.T) {
	base := &countingModel{}
	cache := store.NewMemoryStore()
	defer cache.Close()
	rec := NewCachedRecommender(base, cache, 0)
	ctx := context.Background()

	first, err := rec.Rank(ctx, 1, []int{3, 1, 2}, 2)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	second, err := rec.Rank(ctx, 1, []int{3, 1, 2}, 2)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if base.calls != 1 {
		t.Errorf("base model called %d times, want 1", base.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached result differs: %v vs %v", first, second)
	}
}

func TestCachedRecommender_KeyIsOrderIndependent(t *testing.T) {
	base := &countingModel{}
	cache := store.NewMemoryStore()
	defer cache.Close()
	rec := NewCachedRecommender(base, cache, 0)
	ctx := context.Background()

	if _, err := rec.Rank(ctx, 1, []int{3, 1, 2}, 2); err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	// Same candidate set in a different order reuses the cached entry.
	if _, err := rec.Rank(ctx, 1, []int{2, 3, 1}, 2); err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if base.calls != 1 {
		t.Errorf("base model called %d times, want 1", base.calls)
	}
}

func TestCachedRecommender_DistinctArgsMiss(t *testing.T) {
	base := &countingModel{}
	cache := store.NewMemoryStore()
	defer cache.Close()
	rec := NewCachedRecommender(base, cache, 0)
	ctx := context.Background()

	if _, err := rec.Rank(ctx, 1, []int{1, 2}, 2); err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	// Different uid, different candidate set and different n all miss.
	if _, err := rec.Rank(ctx, 2, []int{1, 2}, 2); err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if _, err := rec.Rank(ctx, 1, []int{1, 3}, 2); err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if _, err := rec.Rank(ctx, 1, []int{1, 2}, 1); err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if base.calls != 4 {
		t.Errorf("base model called %d times, want 4", base.calls)
	}
}
