package store

import (
	"context"
	"testing"
	"time"

	"github.com/lasigeBioTM/DRecPy/core"
)

func TestMemoryStore_SetGet(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if err := ms.Set(ctx, "k1", []byte("v1")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, err := ms.Get(ctx, "k1")
	if err != nil || string(v) != "v1" {
		t.Errorf("Get(k1) = (%q, %v), want (v1, nil)", v, err)
	}

	_, err = ms.Get(ctx, "missing")
	if !core.IsStoreNotFound(err) {
		t.Errorf("Get(missing) error = %v, want store not-found", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if err := ms.Set(ctx, "k1", []byte("v1")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := ms.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := ms.Get(ctx, "k1"); !core.IsStoreNotFound(err) {
		t.Errorf("Get after delete error = %v, want store not-found", err)
	}

	// Deleting an absent key is not an error.
	if err := ms.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestMemoryStore_Batch(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	kvs := map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
		"c": []byte("3"),
	}
	if err := ms.BatchSet(ctx, kvs); err != nil {
		t.Fatalf("BatchSet() error = %v", err)
	}

	got, err := ms.BatchGet(ctx, []string{"a", "c", "missing"})
	if err != nil {
		t.Fatalf("BatchGet() error = %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["c"]) != "3" {
		t.Errorf("BatchGet() = %v", got)
	}
	if _, ok := got["missing"]; ok {
		t.Error("BatchGet returned a value for a missing key")
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if err := ms.Set(ctx, "k1", []byte("v1"), 1); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := ms.Get(ctx, "k1"); err != nil {
		t.Fatalf("Get before expiry error = %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := ms.Get(ctx, "k1"); !core.IsStoreNotFound(err) {
		t.Errorf("Get after expiry error = %v, want store not-found", err)
	}
}

func TestMemoryStore_Name(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	if ms.Name() != "memory" {
		t.Errorf("Name() = %q, want memory", ms.Name())
	}
}
