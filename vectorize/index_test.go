package vectorize

import (
	"context"
	"testing"

	"github.com/rushteam/projecthub/core"
	"github.com/rushteam/projecthub/embedding"
	"github.com/rushteam/projecthub/store"
)

func testCandidates(n int) []*core.ProjectCandidate {
	out := make([]*core.ProjectCandidate, n)
	for i := 0; i < n; i++ {
		out[i] = &core.ProjectCandidate{
			ID:             string(rune('a' + i)),
			Title:          "project " + string(rune('a'+i)),
			Abstract:       "abstract",
			Specialization: "CS",
			Tags:           []string{"tag"},
		}
	}
	return out
}

func TestProjectIndex_SingleBatchCall(t *testing.T) {
	mock := embedding.NewMock(16)
	kv := store.NewMemoryStore()
	defer kv.Close()

	x := NewProjectIndex(mock, kv, nil)
	candidates := testCandidates(20)

	vectors := x.BatchVectors(context.Background(), candidates)
	if len(vectors) != 20 {
		t.Fatalf("len = %d, want 20", len(vectors))
	}
	for i, pv := range vectors {
		if pv.Vector == nil {
			t.Fatalf("vector %d missing", i)
		}
	}
	// 20 条 < 批量上限 100：恰好一次批量调用
	if mock.BatchCalls() != 1 {
		t.Errorf("BatchCalls = %d, want 1", mock.BatchCalls())
	}
}

func TestProjectIndex_CacheHitSkipsRecompute(t *testing.T) {
	mock := embedding.NewMock(16)
	kv := store.NewMemoryStore()
	defer kv.Close()

	x := NewProjectIndex(mock, kv, nil)
	candidates := testCandidates(5)

	x.BatchVectors(context.Background(), candidates)
	if mock.BatchCalls() != 1 {
		t.Fatalf("BatchCalls = %d, want 1", mock.BatchCalls())
	}

	x.BatchVectors(context.Background(), candidates)
	if mock.BatchCalls() != 1 {
		t.Errorf("cached candidates should not trigger new calls, BatchCalls = %d", mock.BatchCalls())
	}
}

func TestProjectIndex_ContentChangeInvalidates(t *testing.T) {
	mock := embedding.NewMock(16)
	kv := store.NewMemoryStore()
	defer kv.Close()

	x := NewProjectIndex(mock, kv, nil)
	candidates := testCandidates(1)

	x.BatchVectors(context.Background(), candidates)
	before := mock.BatchCalls()

	candidates[0].Abstract = "rewritten abstract"
	x.BatchVectors(context.Background(), candidates)
	if mock.BatchCalls() != before+1 {
		t.Errorf("content change should recompute, BatchCalls = %d, want %d", mock.BatchCalls(), before+1)
	}
}

func TestProjectIndex_PartialFailure(t *testing.T) {
	mock := embedding.NewMock(16)
	mock.FailTexts = []string{"project b"}
	kv := store.NewMemoryStore()
	defer kv.Close()

	x := NewProjectIndex(mock, kv, nil)
	x.ChunkSize = 1 // 每条一个批次，失败只影响所在批次

	candidates := testCandidates(3) // a, b, c
	vectors := x.BatchVectors(context.Background(), candidates)

	if vectors[0].Vector == nil || vectors[2].Vector == nil {
		t.Error("unaffected chunks should still produce vectors")
	}
	if vectors[1].Vector != nil {
		t.Error("failed chunk should leave vector nil")
	}
}

func TestProjectIndex_UpsertsIntoSearcher(t *testing.T) {
	mock := embedding.NewMock(16)
	kv := store.NewMemoryStore()
	defer kv.Close()
	vs := store.NewMemoryVectorStore()

	x := NewProjectIndex(mock, kv, vs)
	x.BatchVectors(context.Background(), testCandidates(3))

	res, err := vs.SimilarTo(context.Background(), "projects", "a", 2)
	if err != nil {
		t.Fatalf("SimilarTo: %v", err)
	}
	if len(res.Items) == 0 {
		t.Fatal("expected similar projects after upsert")
	}
	for _, item := range res.Items {
		if item.ID == "a" {
			t.Error("SimilarTo must exclude the query project itself")
		}
	}
}

func TestContentHash_SensitiveToContent(t *testing.T) {
	a := &core.ProjectCandidate{ID: "p", Title: "t", Abstract: "one"}
	b := &core.ProjectCandidate{ID: "p", Title: "t", Abstract: "two"}
	if ContentHash(a) == ContentHash(b) {
		t.Error("different content must hash differently")
	}

	// 标签顺序不影响 hash
	c := &core.ProjectCandidate{ID: "p", Title: "t", Tags: []string{"x", "y"}}
	d := &core.ProjectCandidate{ID: "p", Title: "t", Tags: []string{"y", "x"}}
	if ContentHash(c) != ContentHash(d) {
		t.Error("tag order must not change the hash")
	}
}
