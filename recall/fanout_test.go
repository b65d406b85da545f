package recall

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rushteam/projecthub/core"
)

// stubSource 返回固定 ID 列表，可模拟失败与慢响应。
type stubSource struct {
	name  string
	ids   []string
	err   error
	delay time.Duration
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Recall(ctx context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	items := make([]*core.Item, 0, len(s.ids))
	for _, id := range s.ids {
		items = append(items, core.NewItem(&core.ProjectCandidate{ID: id}))
	}
	return items, nil
}

func ids(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestFanout_MergesByPriority(t *testing.T) {
	n := &Fanout{Sources: []Source{
		&stubSource{name: "src-a", ids: []string{"a1", "a2"}},
		&stubSource{name: "src-b", ids: []string{"b1"}},
	}}

	// 并发召回但合并顺序必须确定：多跑几轮
	for i := 0; i < 5; i++ {
		items, err := n.Process(context.Background(), nil, nil)
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		got := ids(items)
		want := []string{"a1", "a2", "b1"}
		if len(got) != len(want) {
			t.Fatalf("ids = %v, want %v", got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("ids = %v, want %v", got, want)
			}
		}
	}
}

func TestFanout_StampsRecallSource(t *testing.T) {
	n := &Fanout{Sources: []Source{
		&stubSource{name: "src-a", ids: []string{"a1"}},
	}}
	items, err := n.Process(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	lbl, ok := items[0].GetLabel("recall_source")
	if !ok || lbl.Value != "src-a" || lbl.Source != "recall" {
		t.Errorf("recall_source label = %+v", lbl)
	}
}

func TestFanout_DedupMergesLabels(t *testing.T) {
	n := &Fanout{
		Dedup: true,
		Sources: []Source{
			&stubSource{name: "src-a", ids: []string{"shared", "a2"}},
			&stubSource{name: "src-b", ids: []string{"shared"}},
		},
	}
	items, err := n.Process(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := ids(items)
	if len(got) != 2 || got[0] != "shared" || got[1] != "a2" {
		t.Fatalf("ids = %v, want [shared a2]", got)
	}
	// 重复候选的来源合并进第一次出现的 label
	lbl, _ := items[0].GetLabel("recall_source")
	if lbl.Value != "src-a|src-b" {
		t.Errorf("merged recall_source = %q, want src-a|src-b", lbl.Value)
	}
}

func TestFanout_SourceFailureIsSwallowed(t *testing.T) {
	n := &Fanout{Sources: []Source{
		&stubSource{name: "bad", err: errors.New("backend down")},
		&stubSource{name: "good", ids: []string{"g1"}},
	}}
	items, err := n.Process(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := ids(items)
	if len(got) != 1 || got[0] != "g1" {
		t.Errorf("ids = %v, want [g1]", got)
	}
}

func TestFanout_SlowSourceTimesOut(t *testing.T) {
	n := &Fanout{
		Timeout: 20 * time.Millisecond,
		Sources: []Source{
			&stubSource{name: "slow", ids: []string{"s1"}, delay: 200 * time.Millisecond},
			&stubSource{name: "fast", ids: []string{"f1"}},
		},
	}
	items, err := n.Process(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := ids(items)
	if len(got) != 1 || got[0] != "f1" {
		t.Errorf("ids = %v, want [f1]", got)
	}
}

func TestUnionMergeStrategy_KeepsDuplicates(t *testing.T) {
	n := &Fanout{
		MergeStrategy: &UnionMergeStrategy{},
		Sources: []Source{
			&stubSource{name: "src-a", ids: []string{"x"}},
			&stubSource{name: "src-b", ids: []string{"x"}},
		},
	}
	items, err := n.Process(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2 (no dedup)", len(items))
	}
}
