package core

import "time"

// ResultStatus 是推荐结果的状态：active 可被 get 返回，expired 仅可经历史读取。
type ResultStatus string

const (
	ResultActive  ResultStatus = "active"
	ResultExpired ResultStatus = "expired"
)

// 算法标识：正常混合相似度 / 降级纯标签。
const (
	AlgorithmHybridSimilarity = "hybrid-similarity-v2"
	AlgorithmFallbackTags     = "fallback-tags-v1"
)

// ProjectRecommendation 是对单个项目的推荐条目，每次生成重新计算，生成后不再修改。
type ProjectRecommendation struct {
	ProjectID      string     `json:"project_id"`
	Title          string     `json:"title"`
	Specialization string     `json:"specialization"`
	SupervisorID   string     `json:"supervisor_id"`
	SupervisorName string     `json:"supervisor_name"`
	Difficulty     Difficulty `json:"difficulty,omitempty"`

	// SimilarityScore 是最终综合分 [0,1]，列表按它降序排列。
	SimilarityScore float64 `json:"similarity_score"`

	// 分量明细，供解释生成使用。
	EmbeddingScore    float64 `json:"embedding_score"`
	TagOverlap        float64 `json:"tag_overlap"`
	DiversityBoost    float64 `json:"diversity_boost"`
	LowConfidence     bool    `json:"low_confidence,omitempty"`
	MatchingSkills    []string `json:"matching_skills"`
	MatchingInterests []string `json:"matching_interests"`

	Reasoning         string `json:"reasoning"`
	SupervisorSummary string `json:"supervisor_summary"`
}

// ResultMetadata 是一次生成的元信息；降级路径通过显式标志暴露，绝不静默。
type ResultMetadata struct {
	TotalProjects     int    `json:"total_projects"`
	ProcessingTimeMs  int64  `json:"processing_time_ms"`
	Algorithm         string `json:"algorithm"`
	CacheHit          bool   `json:"cache_hit"`
	FallbackUsed      bool   `json:"fallback_used"`
	ProfileIncomplete bool   `json:"profile_incomplete"`
}

// RecommendationResult 是一次完整的推荐生成结果。
// 由引擎创建、缓存持有；过期或强制刷新后被新结果取代（不原地修改），
// 仅 Feedback 列表允许追加。
type RecommendationResult struct {
	ID                     string                  `json:"id"`
	StudentID              string                  `json:"student_id"`
	ProjectSuggestions     []ProjectRecommendation `json:"project_suggestions"`
	AverageSimilarityScore float64                 `json:"average_similarity_score"`
	ProfileSnapshot        ProfileSnapshot         `json:"profile_snapshot"`
	Status                 ResultStatus            `json:"status"`
	CreatedAt              time.Time               `json:"created_at"`
	ExpiresAt              time.Time               `json:"expires_at"`
	Feedback               []Feedback              `json:"feedback"`
	Metadata               ResultMetadata          `json:"metadata"`
}

// ExpiredAt 判断结果在 now 时刻是否已过期。
func (r *RecommendationResult) ExpiredAt(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// Suggestion 按项目 ID 查找推荐条目。
func (r *RecommendationResult) Suggestion(projectID string) (*ProjectRecommendation, bool) {
	for i := range r.ProjectSuggestions {
		if r.ProjectSuggestions[i].ProjectID == projectID {
			return &r.ProjectSuggestions[i], true
		}
	}
	return nil, false
}
