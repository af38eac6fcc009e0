package metrics

import (
	"math"
	"testing"
)

const eps = 1e-9

func almost(a, b float64) bool { return math.Abs(a-b) < eps }

func TestPrecision(t *testing.T) {
	recs := []int{1, 2, 3, 4}
	rel := map[int]bool{1: true, 3: true}

	tests := []struct {
		name string
		k    int
		want float64
	}{
		{"top 2 holds one hit", 2, 0.5},
		{"top 3 holds two hits", 3, 2.0 / 3.0},
		{"k beyond list uses full length", 10, 0.5},
		{"perfect prefix", 1, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Precision(recs, rel, tt.k, nil); !almost(got, tt.want) {
				t.Errorf("Precision@%d = %v, want %v", tt.k, got, tt.want)
			}
		})
	}

	if got := Precision(nil, rel, 5, nil); got != 0 {
		t.Errorf("Precision(empty list) = %v, want 0", got)
	}
}

func TestRecallAndHitRatio(t *testing.T) {
	recs := []int{1, 2, 3, 4}
	rel := map[int]bool{1: true, 3: true}

	if got := Recall(recs, rel, 2, nil); !almost(got, 0.5) {
		t.Errorf("Recall@2 = %v, want 0.5", got)
	}
	if got := Recall(recs, rel, 4, nil); !almost(got, 1.0) {
		t.Errorf("Recall@4 = %v, want 1.0", got)
	}
	if got := Recall(recs, nil, 2, nil); got != 0 {
		t.Errorf("Recall(no relevant) = %v, want 0", got)
	}

	// Binary relevance makes hit ratio coincide with recall.
	for _, k := range []int{1, 2, 3, 4} {
		if r, h := Recall(recs, rel, k, nil), HitRatio(recs, rel, k, nil); !almost(r, h) {
			t.Errorf("HitRatio@%d = %v, Recall@%d = %v", k, h, k, r)
		}
	}
}

func TestAveragePrecision(t *testing.T) {
	rel := map[int]bool{1: true, 3: true}

	tests := []struct {
		name string
		recs []int
		k    int
		want float64
	}{
		{"hit at one of two slots", []int{1, 2}, 2, 0.5},
		{"both hits in order", []int{1, 3, 2, 4}, 4, (1.0 + 2.0/2.0) / 2.0},
		{"hits at ranks 2 and 4", []int{2, 1, 4, 3}, 4, (1.0/2.0 + 2.0/4.0) / 2.0},
		{"no hits", []int{2, 4}, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AveragePrecision(tt.recs, rel, tt.k, nil); !almost(got, tt.want) {
				t.Errorf("AP@%d = %v, want %v", tt.k, got, tt.want)
			}
		})
	}
}

func TestNDCG(t *testing.T) {
	rel := map[int]bool{1: true, 3: true}

	// Perfect ranking at k=2 scores 1.
	if got := NDCG([]int{1, 3, 2, 4}, rel, 2, nil); !almost(got, 1.0) {
		t.Errorf("NDCG(perfect) = %v, want 1.0", got)
	}

	// Single hit at rank 1, ideal holds two hits.
	want := 1.0 / (1.0 + 1.0/math.Log2(3))
	if got := NDCG([]int{1, 2, 3, 4}, rel, 2, nil); !almost(got, want) {
		t.Errorf("NDCG = %v, want %v", got, want)
	}

	if got := NDCG([]int{2, 4}, rel, 2, nil); got != 0 {
		t.Errorf("NDCG(no hits) = %v, want 0", got)
	}
	if got := NDCG([]int{1, 2}, nil, 2, nil); got != 0 {
		t.Errorf("NDCG(no relevant) = %v, want 0", got)
	}
}

func TestReciprocalRank(t *testing.T) {
	rel := map[int]bool{3: true}

	tests := []struct {
		name string
		recs []int
		k    int
		want float64
	}{
		{"hit first", []int{3, 1, 2}, 3, 1.0},
		{"hit second", []int{1, 3, 2}, 3, 0.5},
		{"hit third", []int{1, 2, 3}, 3, 1.0 / 3.0},
		{"hit outside cutoff", []int{1, 2, 3}, 2, 0},
		{"no hit", []int{1, 2}, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReciprocalRank(tt.recs, rel, tt.k, nil); !almost(got, tt.want) {
				t.Errorf("RR@%d = %v, want %v", tt.k, got, tt.want)
			}
		})
	}
}
