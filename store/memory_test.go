package store

import (
	"context"
	"testing"

	"github.com/rushteam/projecthub/core"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()
	ctx := context.Background()

	if _, err := m.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}

	if err := m.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("expected NOT_FOUND after delete, got %v", err)
	}
}

func TestMemoryStore_Batch(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()
	ctx := context.Background()

	if err := m.BatchSet(ctx, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}); err != nil {
		t.Fatalf("BatchSet: %v", err)
	}

	got, err := m.BatchGet(ctx, []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("BatchGet: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Errorf("BatchGet = %v", got)
	}
}

func TestMemoryStore_ZSet(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()
	ctx := context.Background()

	// 按分数降序；同分按 member 升序
	m.ZAdd(ctx, "z", 3, "c")
	m.ZAdd(ctx, "z", 1, "a")
	m.ZAdd(ctx, "z", 2, "b1")
	m.ZAdd(ctx, "z", 2, "b0")

	got, err := m.ZRange(ctx, "z", 0, -1)
	if err != nil {
		t.Fatalf("ZRange: %v", err)
	}
	want := []string{"c", "b0", "b1", "a"}
	if len(got) != len(want) {
		t.Fatalf("ZRange = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ZRange = %v, want %v", got, want)
		}
	}

	top, _ := m.ZRange(ctx, "z", 0, 1)
	if len(top) != 2 || top[0] != "c" {
		t.Errorf("ZRange(0,1) = %v", top)
	}

	if score, err := m.ZScore(ctx, "z", "b0"); err != nil || score != 2 {
		t.Errorf("ZScore = %.0f, %v", score, err)
	}
	if _, err := m.ZScore(ctx, "z", "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestMemoryStore_Hash(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()
	ctx := context.Background()

	m.HSet(ctx, "h", "f1", []byte("v1"))
	m.HSet(ctx, "h", "f2", []byte("v2"))

	if got, err := m.HGet(ctx, "h", "f1"); err != nil || string(got) != "v1" {
		t.Errorf("HGet = %q, %v", got, err)
	}
	if _, err := m.HGet(ctx, "h", "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}

	all, err := m.HGetAll(ctx, "h")
	if err != nil || len(all) != 2 {
		t.Fatalf("HGetAll = %v, %v", all, err)
	}
	if string(all["f2"]) != "v2" {
		t.Errorf("HGetAll[f2] = %q", all["f2"])
	}
}

func TestMemoryVectorStore_Search(t *testing.T) {
	vs := NewMemoryVectorStore()
	ctx := context.Background()

	vs.Upsert(ctx, "projects", "a", []float64{1, 0})
	vs.Upsert(ctx, "projects", "b", []float64{0.9, 0.1})
	vs.Upsert(ctx, "projects", "c", []float64{0, 1})

	res, err := vs.Search(ctx, &core.VectorSearchRequest{
		Collection: "projects",
		Vector:     []float64{1, 0},
		TopK:       2,
		MinScore:   0.5,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("items = %v, want a and b", res.Items)
	}
	if res.Items[0].ID != "a" || res.Items[1].ID != "b" {
		t.Errorf("order = [%s %s], want [a b]", res.Items[0].ID, res.Items[1].ID)
	}
}

func TestMemoryVectorStore_SimilarTo(t *testing.T) {
	vs := NewMemoryVectorStore()
	ctx := context.Background()

	vs.Upsert(ctx, "projects", "a", []float64{1, 0})
	vs.Upsert(ctx, "projects", "b", []float64{1, 0})

	res, err := vs.SimilarTo(ctx, "projects", "a", 5)
	if err != nil {
		t.Fatalf("SimilarTo: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].ID != "b" {
		t.Errorf("items = %v, want only b", res.Items)
	}

	if _, err := vs.SimilarTo(ctx, "projects", "missing", 5); !core.IsNotFound(err) {
		t.Errorf("expected NOT_FOUND for unindexed id, got %v", err)
	}
}

func TestMemoryVectorStore_Remove(t *testing.T) {
	vs := NewMemoryVectorStore()
	ctx := context.Background()

	vs.Upsert(ctx, "projects", "a", []float64{1, 0})
	vs.Remove(ctx, "projects", "a")

	if _, err := vs.SimilarTo(ctx, "projects", "a", 5); !core.IsNotFound(err) {
		t.Errorf("expected NOT_FOUND after remove, got %v", err)
	}
}
