package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/projecthub/core"
	"github.com/rushteam/projecthub/pipeline"
	"github.com/rushteam/projecthub/rank"
	"github.com/rushteam/projecthub/rerank"
)

const pipelineYAML = `
pipeline:
  name: recommend
  nodes:
    - type: filter.candidate
      config:
        exclude_specializations: ["Photography"]
        max_difficulty: intermediate
    - type: rank.similarity
      config:
        embedding: 0.6
        tag_overlap: 0.4
    - type: filter.min_score
      config:
        min: 0.1
    - type: rerank.diversity
      config:
        limit: 5
    - type: rerank.topn
      config:
        n: 5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestBuildPipelineFromYAML(t *testing.T) {
	cfg, err := pipeline.LoadFromYAML(writeConfig(t, pipelineYAML))
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}
	if err := ValidatePipelineConfig(cfg); err != nil {
		t.Fatalf("ValidatePipelineConfig: %v", err)
	}

	pipe, err := cfg.BuildPipeline(DefaultFactory())
	if err != nil {
		t.Fatalf("BuildPipeline: %v", err)
	}
	if len(pipe.Nodes) != 5 {
		t.Fatalf("nodes = %d, want 5", len(pipe.Nodes))
	}

	// 配置值要透传到节点
	sim, ok := pipe.Nodes[1].(*rank.Similarity)
	if !ok {
		t.Fatalf("node[1] = %T, want *rank.Similarity", pipe.Nodes[1])
	}
	if sim.Weights.Embedding != 0.6 || sim.Weights.TagOverlap != 0.4 {
		t.Errorf("weights = %+v", sim.Weights)
	}
	if topn, ok := pipe.Nodes[4].(*rerank.TopNNode); !ok || topn.N != 5 {
		t.Errorf("node[4] = %+v", pipe.Nodes[4])
	}
}

func TestBuiltPipelineFilters(t *testing.T) {
	cfg, err := pipeline.LoadFromYAML(writeConfig(t, pipelineYAML))
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}
	pipe, err := cfg.BuildPipeline(DefaultFactory())
	if err != nil {
		t.Fatalf("BuildPipeline: %v", err)
	}

	rctx := &core.RecommendContext{
		StudentID: "stu-1",
		Profile: &core.ProfileSnapshot{
			Skills:          []string{"Python"},
			Interests:       []string{"nlp"},
			Specializations: []string{"Computer Science"},
		},
		Fallback: true, // 无向量也能跑通标签匹配
	}
	items := []*core.Item{
		core.NewItem(&core.ProjectCandidate{
			ID: "p-keep", Specialization: "Computer Science",
			Difficulty: core.DifficultyBeginner,
			TechStack:  []string{"Python"}, Tags: []string{"nlp"},
		}),
		core.NewItem(&core.ProjectCandidate{
			ID: "p-photo", Specialization: "Photography",
			Difficulty: core.DifficultyBeginner,
		}),
		core.NewItem(&core.ProjectCandidate{
			ID: "p-hard", Specialization: "Computer Science",
			Difficulty: core.DifficultyAdvanced,
		}),
	}

	out, err := pipe.Run(context.Background(), rctx, items)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0].ID != "p-keep" {
		t.Fatalf("out = %v, want only p-keep", out)
	}
}

const engineYAML = `
store:
  type: memory
embedding:
  type: mock
  dimensions: 32
cache:
  ttl_hours: 24
weights:
  embedding: 0.6
  tag_overlap: 0.4
fallback_threshold: 0.3
diversity:
  step: 0.08
  cap: 0.2
`

type emptyProfiles struct{}

func (emptyProfiles) GetProfileSnapshot(_ context.Context, studentID string) (*core.ProfileSnapshot, error) {
	return nil, core.NewDomainError(core.ModuleProfile, core.ErrorCodeNotFound, "student not found: "+studentID)
}

type emptyCatalog struct{}

func (emptyCatalog) ListApprovedCandidates(_ context.Context, _ *core.CatalogFilters) ([]*core.ProjectCandidate, error) {
	return nil, nil
}

func TestBuildEngineFromYAML(t *testing.T) {
	cfg, err := LoadEngineConfig(writeConfig(t, engineYAML))
	if err != nil {
		t.Fatalf("LoadEngineConfig: %v", err)
	}

	e, err := cfg.BuildEngine(emptyProfiles{}, emptyCatalog{})
	if err != nil {
		t.Fatalf("BuildEngine: %v", err)
	}

	// 调参要透传到引擎
	if e.Weights.Embedding != 0.6 || e.Weights.TagOverlap != 0.4 {
		t.Errorf("weights = %+v", e.Weights)
	}
	if e.FallbackThreshold != 0.3 {
		t.Errorf("fallback threshold = %.2f, want 0.3", e.FallbackThreshold)
	}
	if e.DiversityStep != 0.08 || e.DiversityCap != 0.2 {
		t.Errorf("diversity step/cap = %.2f/%.2f, want 0.08/0.2", e.DiversityStep, e.DiversityCap)
	}
}

func TestValidatePipelineConfig_UnknownType(t *testing.T) {
	cfg := &pipeline.Config{}
	cfg.Pipeline.Nodes = []pipeline.NodeConfig{{Type: "rank.made_up"}}
	if err := ValidatePipelineConfig(cfg); err == nil {
		t.Error("expected error for unregistered node type")
	}
}

func TestSupportedTypes(t *testing.T) {
	types := SupportedTypes()
	want := map[string]bool{
		"filter.candidate": false, "filter.expr": false, "filter.min_score": false,
		"rank.similarity": false, "rerank.diversity": false, "rerank.topn": false,
	}
	for _, typ := range types {
		if _, ok := want[typ]; ok {
			want[typ] = true
		}
	}
	for typ, seen := range want {
		if !seen {
			t.Errorf("type %s not registered", typ)
		}
	}
}
