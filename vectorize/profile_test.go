package vectorize

import (
	"context"
	"testing"

	"github.com/rushteam/projecthub/core"
	"github.com/rushteam/projecthub/embedding"
	"github.com/rushteam/projecthub/store"
)

func TestCanonicalText_OrderIndependent(t *testing.T) {
	a := &core.ProfileSnapshot{
		Skills:          []string{"Python", "SQL"},
		Interests:       []string{"NLP"},
		Specializations: []string{"Computer Science"},
	}
	b := &core.ProfileSnapshot{
		Skills:          []string{"SQL", "python"}, // 大小写与顺序不同
		Interests:       []string{"nlp"},
		Specializations: []string{"Computer Science"},
	}

	if CanonicalText(a) != CanonicalText(b) {
		t.Errorf("canonical text differs:\n%q\n%q", CanonicalText(a), CanonicalText(b))
	}
	if CanonicalText(nil) != "" {
		t.Error("nil profile should produce empty text")
	}
}

func TestCanonicalText_Dedup(t *testing.T) {
	p := &core.ProfileSnapshot{
		Skills:    []string{"python", "Python "},
		Interests: []string{"python"},
	}
	if got := CanonicalText(p); got != "python" {
		t.Errorf("CanonicalText = %q, want %q", got, "python")
	}
}

func TestCanonicalText_InterestWeights(t *testing.T) {
	base := &core.ProfileSnapshot{
		Skills:    []string{"python", "sql"},
		Interests: []string{"nlp"},
	}
	weighted := &core.ProfileSnapshot{
		Skills:          []string{"python", "sql"},
		Interests:       []string{"nlp"},
		InterestWeights: map[string]float64{"NLP": 0.8},
	}
	faint := &core.ProfileSnapshot{
		Skills:          []string{"python", "sql"},
		Interests:       []string{"nlp"},
		InterestWeights: map[string]float64{"nlp": 0.2},
	}

	if got := CanonicalText(weighted); got != "nlp python sql nlp" {
		t.Errorf("CanonicalText = %q, want emphasized interest repeated", got)
	}
	// 权重变化改变文本即改变缓存键，向量自然失效重算
	if CanonicalText(weighted) == CanonicalText(base) {
		t.Error("high-weight interest should change the canonical text")
	}
	// 低于阈值的权重不加重
	if CanonicalText(faint) != CanonicalText(base) {
		t.Errorf("below-threshold weight should not change the text: %q vs %q",
			CanonicalText(faint), CanonicalText(base))
	}
}

func TestInterestWeightsShiftVector(t *testing.T) {
	mock := embedding.NewMock(256)
	ctx := context.Background()

	base := &core.ProfileSnapshot{
		Skills:    []string{"python", "sql", "go"},
		Interests: []string{"nlp"},
	}
	weighted := &core.ProfileSnapshot{
		Skills:          []string{"python", "sql", "go"},
		Interests:       []string{"nlp"},
		InterestWeights: map[string]float64{"nlp": 0.9},
	}
	project, err := mock.EmbedText(ctx, "nlp text mining")
	if err != nil {
		t.Fatalf("EmbedText: %v", err)
	}

	v := NewProfileVectorizer(mock, nil)
	baseVec := v.Vector(ctx, base)
	weightedVec := v.Vector(ctx, weighted)
	if baseVec == nil || weightedVec == nil {
		t.Fatal("expected vectors for both profiles")
	}

	// 加权兴趣把画像向量拉向该兴趣方向的项目
	if Cosine(weightedVec, project) <= Cosine(baseVec, project) {
		t.Errorf("weighted profile should sit closer to the matching project: %.4f vs %.4f",
			Cosine(weightedVec, project), Cosine(baseVec, project))
	}
}

func TestProfileVectorizer_CacheHitSkipsCall(t *testing.T) {
	mock := embedding.NewMock(16)
	kv := store.NewMemoryStore()
	defer kv.Close()

	v := NewProfileVectorizer(mock, kv)
	profile := &core.ProfileSnapshot{StudentID: "stu-1", Skills: []string{"go", "redis"}}

	first := v.Vector(context.Background(), profile)
	if first == nil {
		t.Fatal("expected vector")
	}
	if mock.TextCalls() != 1 {
		t.Fatalf("TextCalls = %d, want 1", mock.TextCalls())
	}

	second := v.Vector(context.Background(), profile)
	if mock.TextCalls() != 1 {
		t.Errorf("cache hit should not call the service again, TextCalls = %d", mock.TextCalls())
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("cached vector differs from computed vector")
		}
	}
}

func TestProfileVectorizer_FailureReturnsNil(t *testing.T) {
	mock := embedding.NewMock(16)
	mock.FailAll = true

	v := NewProfileVectorizer(mock, nil)
	profile := &core.ProfileSnapshot{Skills: []string{"go"}}

	if vec := v.Vector(context.Background(), profile); vec != nil {
		t.Errorf("expected nil vector on service failure, got %v", vec)
	}
}

func TestProfileVectorizer_EmptyProfile(t *testing.T) {
	v := NewProfileVectorizer(embedding.NewMock(16), nil)
	if vec := v.Vector(context.Background(), &core.ProfileSnapshot{}); vec != nil {
		t.Error("empty profile should not be vectorized")
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 0}, []float64{1, 0}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"dimension mismatch", []float64{1, 0}, []float64{1}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); got != tt.want {
				t.Errorf("Cosine = %.4f, want %.4f", got, tt.want)
			}
		})
	}
}
