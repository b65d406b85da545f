package filter

import (
	"context"
	"testing"

	"github.com/rushteam/projecthub/core"
)

func candidateItem(id, spec string, difficulty core.Difficulty) *core.Item {
	return core.NewItem(&core.ProjectCandidate{
		ID:             id,
		Specialization: spec,
		Difficulty:     difficulty,
	})
}

func TestSpecializationFilter(t *testing.T) {
	tests := []struct {
		name       string
		include    []string
		exclude    []string
		spec       string
		wantFilter bool
	}{
		{"no constraints keeps all", nil, nil, "CS", false},
		{"include keeps listed", []string{"CS"}, nil, "CS", false},
		{"include drops unlisted", []string{"CS"}, nil, "SE", true},
		{"exclude drops listed", nil, []string{"SE"}, "SE", true},
		{"exclude wins over include", []string{"CS"}, []string{"CS"}, "CS", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &SpecializationFilter{Include: tt.include, Exclude: tt.exclude}
			got, err := f.ShouldFilter(context.Background(), nil, candidateItem("p", tt.spec, ""))
			if err != nil {
				t.Fatalf("ShouldFilter: %v", err)
			}
			if got != tt.wantFilter {
				t.Errorf("ShouldFilter = %v, want %v", got, tt.wantFilter)
			}
		})
	}
}

func TestDifficultyCapFilter(t *testing.T) {
	tests := []struct {
		name       string
		max        core.Difficulty
		difficulty core.Difficulty
		wantFilter bool
	}{
		{"under cap", core.DifficultyIntermediate, core.DifficultyBeginner, false},
		{"at cap", core.DifficultyIntermediate, core.DifficultyIntermediate, false},
		{"over cap", core.DifficultyIntermediate, core.DifficultyAdvanced, true},
		{"no cap", "", core.DifficultyAdvanced, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &DifficultyCapFilter{Max: tt.max}
			got, err := f.ShouldFilter(context.Background(), nil, candidateItem("p", "CS", tt.difficulty))
			if err != nil {
				t.Fatalf("ShouldFilter: %v", err)
			}
			if got != tt.wantFilter {
				t.Errorf("ShouldFilter = %v, want %v", got, tt.wantFilter)
			}
		})
	}
}

func TestExprFilter(t *testing.T) {
	it := core.NewItem(&core.ProjectCandidate{
		ID:             "p-1",
		Title:          "NLP Project",
		Specialization: "CS",
		Difficulty:     core.DifficultyIntermediate,
		Tags:           []string{"nlp", "machine-learning"},
	})
	it.Score = 0.8
	rctx := &core.RecommendContext{StudentID: "stu-1"}

	tests := []struct {
		name       string
		expr       string
		wantFilter bool
	}{
		{"empty keeps all", "", false},
		{"match keeps", `item.specialization == "CS"`, false},
		{"mismatch drops", `item.specialization == "SE"`, true},
		{"tag membership", `"nlp" in item.tags`, false},
		{"score threshold", `item.score > 0.9`, true},
		{"context access", `rctx.student_id == "stu-1"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &ExprFilter{Expression: tt.expr}
			got, err := f.ShouldFilter(context.Background(), rctx, it)
			if err != nil {
				t.Fatalf("ShouldFilter: %v", err)
			}
			if got != tt.wantFilter {
				t.Errorf("ShouldFilter(%q) = %v, want %v", tt.expr, got, tt.wantFilter)
			}
		})
	}
}

func TestFilterNode_DropsAndLabels(t *testing.T) {
	keep := candidateItem("p-keep", "CS", core.DifficultyBeginner)
	drop := candidateItem("p-drop", "SE", core.DifficultyBeginner)

	node := &FilterNode{Filters: []Filter{
		&SpecializationFilter{Exclude: []string{"SE"}},
	}}
	out, err := node.Process(context.Background(), nil, []*core.Item{keep, drop})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 1 || out[0].ID != "p-keep" {
		t.Fatalf("out = %v", out)
	}
	if lbl, ok := drop.GetLabel("filtered"); !ok || lbl.Value != "true" {
		t.Error("dropped item should carry a filtered label")
	}
}

func TestMinScoreNode(t *testing.T) {
	low := candidateItem("p-low", "CS", "")
	low.Score = 0.2
	high := candidateItem("p-high", "CS", "")
	high.Score = 0.8

	node := &MinScoreNode{Min: 0.5}
	out, err := node.Process(context.Background(), nil, []*core.Item{high, low})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 1 || out[0].ID != "p-high" {
		t.Fatalf("out = %v, want only p-high", out)
	}

	// Min=0 不过滤
	all, _ := (&MinScoreNode{}).Process(context.Background(), nil, []*core.Item{high, low})
	if len(all) != 2 {
		t.Errorf("Min=0 should keep all, got %d", len(all))
	}
}
