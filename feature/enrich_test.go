package feature

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/projecthub/core"
	"github.com/rushteam/projecthub/feast"
)

// stubFeast 返回固定特征值的 feast.Client 替身。
type stubFeast struct {
	values map[string]interface{}
	err    error
}

func (s *stubFeast) GetOnlineFeatures(_ context.Context, req *feast.GetOnlineFeaturesRequest) (*feast.GetOnlineFeaturesResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &feast.GetOnlineFeaturesResponse{
		FeatureVectors: []feast.FeatureVector{
			{Values: s.values, EntityRow: req.EntityRows[0]},
		},
	}, nil
}

func (s *stubFeast) Close() error { return nil }

func TestEnrich_MergesInterestWeights(t *testing.T) {
	e := NewProfileEnricher(&stubFeast{values: map[string]interface{}{
		"student_interests:machine-learning": 0.8,
		"student_interests:visualization":    0.2,
		"student_interests:out_of_range":     1.5, // 丢弃
		"student_interests:not_a_number":     "x", // 丢弃
	}}, []string{
		"student_interests:machine-learning",
		"student_interests:visualization",
		"student_interests:out_of_range",
		"student_interests:not_a_number",
	})

	rctx := &core.RecommendContext{StudentID: "stu-1"}
	profile := &core.ProfileSnapshot{StudentID: "stu-1"}
	e.Enrich(context.Background(), rctx, profile)

	if len(profile.InterestWeights) != 2 {
		t.Fatalf("weights = %v, want 2 entries", profile.InterestWeights)
	}
	if profile.InterestWeights["machine-learning"] != 0.8 {
		t.Errorf("machine-learning = %v", profile.InterestWeights["machine-learning"])
	}
	if lbl, ok := rctx.GetLabel("feature_enrich"); !ok || lbl.Value != "ok" {
		t.Errorf("feature_enrich label = %+v", lbl)
	}
}

func TestEnrich_FailureIsSoft(t *testing.T) {
	e := NewProfileEnricher(&stubFeast{err: errors.New("feast down")},
		[]string{"student_interests:machine-learning"})

	rctx := &core.RecommendContext{StudentID: "stu-1"}
	profile := &core.ProfileSnapshot{StudentID: "stu-1"}
	e.Enrich(context.Background(), rctx, profile)

	if profile.InterestWeights != nil {
		t.Errorf("weights should stay untouched, got %v", profile.InterestWeights)
	}
	if lbl, ok := rctx.GetLabel("feature_enrich"); !ok || lbl.Value != "failed" {
		t.Errorf("feature_enrich label = %+v", lbl)
	}
}

func TestInterestName(t *testing.T) {
	if got := interestName("student_interests:nlp"); got != "nlp" {
		t.Errorf("interestName = %q, want nlp", got)
	}
	if got := interestName("plain"); got != "plain" {
		t.Errorf("interestName = %q, want plain", got)
	}
}
