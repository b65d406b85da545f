package rank

import (
	"context"
	"sort"
	"strings"

	"github.com/rushteam/projecthub/core"
	"github.com/rushteam/projecthub/pipeline"
	"github.com/rushteam/projecthub/pkg/utils"
	"github.com/rushteam/projecthub/vectorize"
)

// Weights 是混合相似度排序的权重配置。
// 这些常数是可调默认值而非固定契约，生产配置见 config 包。
type Weights struct {
	// Embedding 语义相似度权重（默认 0.7）
	Embedding float64 `yaml:"embedding" json:"embedding"`

	// TagOverlap 标签重合度权重（默认 0.3）
	TagOverlap float64 `yaml:"tag_overlap" json:"tag_overlap"`

	// SpecializationBoost 方向匹配加分（默认 0.05）
	SpecializationBoost float64 `yaml:"specialization_boost" json:"specialization_boost"`

	// DifficultyPenalty 难度超出偏好超过一级时的减分（默认 0.10）
	DifficultyPenalty float64 `yaml:"difficulty_penalty" json:"difficulty_penalty"`

	// AffinityCap 反馈调权项的绝对值上限（默认 0.10）
	AffinityCap float64 `yaml:"affinity_cap" json:"affinity_cap"`
}

// DefaultWeights 返回默认权重。
func DefaultWeights() Weights {
	return Weights{
		Embedding:           0.7,
		TagOverlap:          0.3,
		SpecializationBoost: 0.05,
		DifficultyPenalty:   0.10,
		AffinityCap:         0.10,
	}
}

// Similarity 是混合相似度排序 Node。
//
// 每个候选的最终分：
//
//	finalScore = clamp(wE·embeddingScore + wT·tagOverlap
//	                   + specializationBoost − difficultyPenalty
//	                   + affinity, 0, 1)
//
// 其中：
//   - embeddingScore：画像向量与项目向量的余弦相似度，负值截断为 0；
//     项目向量缺失时以 tagOverlap 代替，并打 low_confidence 标签
//   - tagOverlap：|skills ∩ (tags ∪ techStack)| / max(1, |skills ∪ interests|)
//   - affinity：反馈账本按方向累积的调权项，截断到 ±AffinityCap
//
// 降级模式（rctx.Fallback=true）：embeddingScore 权重置 0、tagOverlap 权重
// 置 1 —— 同一条打分路径，不同的分量组合，而不是独立实现。
//
// 输出按 finalScore 降序排列，同分按项目 ID 升序，保证确定性。
type Similarity struct {
	Weights Weights
}

func NewSimilarity(w Weights) *Similarity {
	return &Similarity{Weights: w}
}

func (n *Similarity) Name() string        { return "rank.similarity" }
func (n *Similarity) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *Similarity) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	w := n.Weights
	if w.Embedding == 0 && w.TagOverlap == 0 {
		w = DefaultWeights()
	}

	algorithm := core.AlgorithmHybridSimilarity
	wEmbedding, wTag := w.Embedding, w.TagOverlap
	if rctx != nil && rctx.Fallback {
		// 降级：只用标签/方向/难度信号
		algorithm = core.AlgorithmFallbackTags
		wEmbedding, wTag = 0, 1
	}

	var profile *core.ProfileSnapshot
	var profileVec []float64
	if rctx != nil {
		profile = rctx.Profile
		profileVec = rctx.ProfileVector
	}

	for _, it := range items {
		if it == nil || it.Candidate == nil {
			continue
		}

		tagOverlap, matchedSkills, matchedInterests := overlap(profile, it.Candidate)

		embeddingScore := tagOverlap
		lowConfidence := true
		if wEmbedding > 0 && len(profileVec) > 0 && len(it.Vector) > 0 {
			embeddingScore = vectorize.ClampUnit(vectorize.Cosine(profileVec, it.Vector))
			lowConfidence = false
		}

		specBoost := 0.0
		if profile != nil && profile.HasSpecialization(it.Candidate.Specialization) {
			specBoost = w.SpecializationBoost
		}

		diffPenalty := 0.0
		if profile != nil && it.Candidate.Difficulty.ExceedsBy(profile.PreferredDifficulty) > 1 {
			diffPenalty = w.DifficultyPenalty
		}

		affinity := 0.0
		if rctx != nil && rctx.Affinity != nil {
			affinity = clampAbs(rctx.Affinity[it.Candidate.Specialization], w.AffinityCap)
		}

		score := wEmbedding*embeddingScore + wTag*tagOverlap + specBoost - diffPenalty + affinity
		it.Score = vectorize.ClampUnit(score)

		it.PutFeature("embedding_score", embeddingScore)
		it.PutFeature("tag_overlap", tagOverlap)
		it.PutFeature("specialization_boost", specBoost)
		it.PutFeature("difficulty_penalty", diffPenalty)
		it.PutFeature("affinity", affinity)
		it.PutFeature("final_score", it.Score)
		it.Meta["matching_skills"] = matchedSkills
		it.Meta["matching_interests"] = matchedInterests

		it.PutLabel("rank_model", utils.Label{Value: algorithm, Source: "rank"})
		if lowConfidence && !(rctx != nil && rctx.Fallback) {
			it.PutLabel("low_confidence", utils.Label{Value: "true", Source: "rank"})
		}
	}

	SortDeterministic(items)
	return items, nil
}

// SortDeterministic 按分数降序、同分按 ID 升序排序。
func SortDeterministic(items []*core.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
}

// overlap 计算标签重合度与匹配明细。
// 分子：skills 与 (tags ∪ techStack) 的交集；分母：|skills ∪ interests|，下限 1。
func overlap(profile *core.ProfileSnapshot, c *core.ProjectCandidate) (float64, []string, []string) {
	if profile == nil {
		return 0, nil, nil
	}

	projectTerms := make(map[string]bool, len(c.Tags)+len(c.TechStack))
	for _, t := range c.Tags {
		projectTerms[normalize(t)] = true
	}
	for _, t := range c.TechStack {
		projectTerms[normalize(t)] = true
	}

	union := make(map[string]bool, len(profile.Skills)+len(profile.Interests))
	matchedSkills := make([]string, 0, 4)
	for _, s := range profile.Skills {
		key := normalize(s)
		if key == "" {
			continue
		}
		if !union[key] && projectTerms[key] {
			matchedSkills = append(matchedSkills, s)
		}
		union[key] = true
	}

	matchedInterests := make([]string, 0, 4)
	for _, s := range profile.Interests {
		key := normalize(s)
		if key == "" {
			continue
		}
		if !union[key] && projectTerms[key] {
			matchedInterests = append(matchedInterests, s)
		}
		union[key] = true
	}

	denom := len(union)
	if denom < 1 {
		denom = 1
	}
	sort.Strings(matchedSkills)
	sort.Strings(matchedInterests)
	return float64(len(matchedSkills)) / float64(denom), matchedSkills, matchedInterests
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clampAbs(x, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	if x > limit {
		return limit
	}
	if x < -limit {
		return -limit
	}
	return x
}
