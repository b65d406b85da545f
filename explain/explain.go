package explain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rushteam/projecthub/cache"
	"github.com/rushteam/projecthub/core"
)

// Factor 是解释中的单个匹配因素。
type Factor struct {
	// Name 因素名：semantic / skills / interests / specialization / difficulty
	Name string `json:"name"`

	// Matched 命中的具体条目（技能名、兴趣名、方向名）
	Matched []string `json:"matched,omitempty"`

	// Score 该因素的分量 [0,1]
	Score float64 `json:"score"`

	// Explanation 面向学生的一句话说明
	Explanation string `json:"explanation"`
}

// SimilarProject 是"更多类似项目"中的一项。
type SimilarProject struct {
	ProjectID string  `json:"project_id"`
	Score     float64 `json:"score"`
}

// Explanation 是对一条推荐的完整解释。
type Explanation struct {
	RecommendationID string    `json:"recommendation_id"`
	ProjectID        string    `json:"project_id"`
	Title            string    `json:"title"`
	FinalScore       float64   `json:"final_score"`
	Confidence       float64   `json:"confidence"`
	Factors          []Factor  `json:"factors"`
	SimilarProjects  []SimilarProject `json:"similar_projects,omitempty"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Generator 按需生成推荐解释：因素拆解、置信度、以及基于向量检索的类似项目。
// 解释基于结果中保存的画像快照与分量明细生成，不重新计算相似度。
type Generator struct {
	cache    *cache.Cache
	searcher core.VectorSearcher

	// Collection 向量集合名（默认 "projects"）
	Collection string

	// SimilarLimit 类似项目数量上限（默认 3）
	SimilarLimit int

	// SimilarMinScore 类似项目的最低相似度（默认 0.5）
	SimilarMinScore float64

	now func() time.Time
}

// NewGenerator 创建解释生成器。searcher 可为 nil，此时不返回类似项目。
func NewGenerator(c *cache.Cache, searcher core.VectorSearcher) *Generator {
	return &Generator{
		cache:           c,
		searcher:        searcher,
		Collection:      "projects",
		SimilarLimit:    3,
		SimilarMinScore: 0.5,
		now:             time.Now,
	}
}

// Explain 为某结果中的某个项目生成解释。
//
// 错误：
//   - 结果不存在：NOT_FOUND（cache 模块）
//   - 项目不在结果中：NOT_FOUND（explain 模块）
func (g *Generator) Explain(ctx context.Context, recommendationID, projectID string) (*Explanation, error) {
	result, err := g.cache.GetResult(ctx, recommendationID)
	if err != nil {
		return nil, err
	}
	suggestion, ok := result.Suggestion(projectID)
	if !ok {
		return nil, core.NewDomainError(core.ModuleExplain, core.ErrorCodeNotFound,
			"explain: project "+projectID+" is not part of recommendation "+recommendationID)
	}

	profile := &result.ProfileSnapshot
	out := &Explanation{
		RecommendationID: recommendationID,
		ProjectID:        projectID,
		Title:            suggestion.Title,
		FinalScore:       suggestion.SimilarityScore,
		Confidence:       confidence(suggestion, profile),
		Factors:          factors(suggestion, profile),
		GeneratedAt:      g.now(),
	}

	if g.searcher != nil {
		out.SimilarProjects = g.similarProjects(ctx, projectID)
	}
	return out, nil
}

// similarProjects 检索与该项目语义接近的其它项目；检索失败静默返回空列表。
func (g *Generator) similarProjects(ctx context.Context, projectID string) []SimilarProject {
	res, err := g.searcher.SimilarTo(ctx, g.Collection, projectID, g.SimilarLimit)
	if err != nil {
		return nil
	}
	out := make([]SimilarProject, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Score < g.SimilarMinScore {
			continue
		}
		out = append(out, SimilarProject{ProjectID: item.ID, Score: item.Score})
	}
	return out
}

// confidence 聚合置信度：最终分为底，低置信路径与不完整画像打折。
func confidence(s *core.ProjectRecommendation, profile *core.ProfileSnapshot) float64 {
	c := s.SimilarityScore
	if s.LowConfidence {
		c *= 0.6
	}
	c *= 0.5 + 0.5*profile.Completeness
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

// factors 把结果中保存的分量明细拆解为可读的匹配因素。
func factors(s *core.ProjectRecommendation, profile *core.ProfileSnapshot) []Factor {
	out := make([]Factor, 0, 5)

	semantic := Factor{
		Name:  "semantic",
		Score: s.EmbeddingScore,
	}
	if s.LowConfidence {
		semantic.Explanation = "语义相似度不可用，按标签重合度估算"
	} else {
		semantic.Explanation = fmt.Sprintf("画像与项目描述的语义相似度为 %.0f%%", s.EmbeddingScore*100)
	}
	out = append(out, semantic)

	skills := Factor{
		Name:    "skills",
		Matched: s.MatchingSkills,
		Score:   s.TagOverlap,
	}
	if len(s.MatchingSkills) > 0 {
		skills.Explanation = "你的技能 " + strings.Join(s.MatchingSkills, "、") + " 与项目技术栈匹配"
	} else {
		skills.Explanation = "没有直接匹配的技能，项目可能带来新的学习机会"
	}
	out = append(out, skills)

	if len(s.MatchingInterests) > 0 {
		out = append(out, Factor{
			Name:        "interests",
			Matched:     s.MatchingInterests,
			Score:       s.TagOverlap,
			Explanation: "项目方向覆盖你的兴趣：" + strings.Join(s.MatchingInterests, "、"),
		})
	}

	if profile.HasSpecialization(s.Specialization) {
		out = append(out, Factor{
			Name:        "specialization",
			Matched:     []string{s.Specialization},
			Score:       1,
			Explanation: s.Specialization + " 是你声明的偏好方向",
		})
	}

	if s.Difficulty.Level() > 0 {
		difficulty := Factor{Name: "difficulty", Score: 1}
		pref := profile.PreferredDifficulty
		switch {
		case pref.Level() == 0:
			difficulty.Explanation = "你未设置难度偏好，项目难度为 " + string(s.Difficulty)
		case s.Difficulty.Level() > pref.Level()+1:
			// 与排序的难度惩罚同一条规则：超出偏好一级以上
			difficulty.Score = 0
			difficulty.Explanation = "项目难度明显高于你的偏好，需要额外投入"
		default:
			difficulty.Explanation = "项目难度与你的偏好相符"
		}
		out = append(out, difficulty)
	}

	return out
}

// Reasoning 为一条推荐生成一句话推荐理由（生成时写入结果，之后不再变化）。
func Reasoning(s *core.ProjectRecommendation, profile *core.ProfileSnapshot) string {
	parts := make([]string, 0, 3)
	if len(s.MatchingSkills) > 0 {
		parts = append(parts, "技能匹配："+strings.Join(s.MatchingSkills, "、"))
	}
	if len(s.MatchingInterests) > 0 {
		parts = append(parts, "兴趣契合："+strings.Join(s.MatchingInterests, "、"))
	}
	if profile != nil && profile.HasSpecialization(s.Specialization) {
		parts = append(parts, "方向一致："+s.Specialization)
	}
	if len(parts) == 0 {
		if s.LowConfidence {
			return "基于标签匹配推荐，可完善画像获得更准确的结果"
		}
		return fmt.Sprintf("项目描述与你的画像语义相似度达 %.0f%%", s.EmbeddingScore*100)
	}
	return strings.Join(parts, "；")
}

// SupervisorSummary 生成导师摘要行。
func SupervisorSummary(s *core.ProjectRecommendation) string {
	if s.SupervisorName == "" {
		return ""
	}
	if s.Specialization != "" {
		return fmt.Sprintf("%s（%s 方向）", s.SupervisorName, s.Specialization)
	}
	return s.SupervisorName
}
