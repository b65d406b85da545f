package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rushteam/projecthub/cache"
	"github.com/rushteam/projecthub/core"
	"github.com/rushteam/projecthub/explain"
	"github.com/rushteam/projecthub/feature"
	"github.com/rushteam/projecthub/feedback"
	"github.com/rushteam/projecthub/filter"
	"github.com/rushteam/projecthub/pipeline"
	"github.com/rushteam/projecthub/rank"
	"github.com/rushteam/projecthub/recall"
	"github.com/rushteam/projecthub/rerank"
	"github.com/rushteam/projecthub/vectorize"
)

const (
	// DefaultLimit 默认返回条数
	DefaultLimit = 5

	// MaxLimit 单次请求的条数上限
	MaxLimit = 20

	// poolMultiplier 多样性重排的候选池倍数（limit × 3）
	poolMultiplier = 3

	// fallbackMissingThreshold 项目向量缺失比例超过该值时整体降级
	fallbackMissingThreshold = 0.5

	// incompleteThreshold 画像完整度低于该值时在元数据中标记
	incompleteThreshold = 0.5
)

// Params 是一次推荐请求的参数。
type Params struct {
	// Limit 返回条数，默认 5，上限 20
	Limit int

	// MinSimilarityScore 最低综合分 [0,1]，低于该分的候选不返回
	MinSimilarityScore float64

	// IncludeSpecializations 方向白名单（空表示不限制）
	IncludeSpecializations []string

	// ExcludeSpecializations 方向黑名单（优先于白名单）
	ExcludeSpecializations []string

	// MaxDifficulty 难度上限（空表示不限制）
	MaxDifficulty core.Difficulty

	// DisableDiversity 为 true 时跳过多样性重排（默认开启）
	DisableDiversity bool

	// FilterExpr 额外的 CEL 过滤表达式（空表示不过滤）
	FilterExpr string

	// ForceRefresh 为 true 时跳过缓存强制重新生成
	ForceRefresh bool
}

// Validate 校验请求参数并回填默认值。
func (p *Params) Validate() error {
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			fmt.Sprintf("engine: limit must be within [1,%d]", MaxLimit))
	}
	if p.MinSimilarityScore < 0 || p.MinSimilarityScore > 1 {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: min_similarity_score must be within [0,1]")
	}
	if !p.MaxDifficulty.Valid() {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: unknown difficulty "+string(p.MaxDifficulty))
	}
	return nil
}

// Engine 是推荐引擎的编排入口：取画像、向量化、跑 Pipeline、落缓存。
//
// 各阶段职责见对应包；Engine 只负责组装和元数据。
// 对画像与项目目录只读，自有状态仅推荐结果、向量缓存与反馈账本。
type Engine struct {
	// Profiles 学生画像数据源（必填）
	Profiles core.ProfileSource

	// Catalog 已审核项目目录（必填）
	Catalog core.CatalogSource

	// Vectorizer 画像向量化
	Vectorizer *vectorize.ProfileVectorizer

	// Index 项目向量索引
	Index *vectorize.ProjectIndex

	// Cache 结果缓存（必填）
	Cache *cache.Cache

	// Ledger 反馈账本，可为 nil（不启用反馈调权）
	Ledger *feedback.Ledger

	// Explainer 解释生成器，可为 nil
	Explainer *explain.Generator

	// Enricher 画像特征回填，可为 nil
	Enricher *feature.ProfileEnricher

	// Weights 排序权重，零值使用默认权重
	Weights rank.Weights

	// FallbackThreshold 项目向量缺失比例超过该值时整体降级，
	// 零值使用默认 0.5
	FallbackThreshold float64

	// DiversityStep / DiversityCap 多样性重排的降权步长与加权上限，
	// 零值使用 rerank 包默认
	DiversityStep float64
	DiversityCap  float64

	now func() time.Time
}

// New 创建推荐引擎。
func New(profiles core.ProfileSource, catalog core.CatalogSource, c *cache.Cache) *Engine {
	return &Engine{
		Profiles: profiles,
		Catalog:  catalog,
		Cache:    c,
		Weights:  rank.DefaultWeights(),
		now:      time.Now,
	}
}

// GenerateRecommendations 返回学生的推荐结果。
//
// 有效期内同参数请求返回缓存结果（Metadata.CacheHit=true）；
// ForceRefresh 使当前结果失效并立即重新生成。
// 并发请求由结果缓存合并，同一学生同参数只有一次生成在途。
func (e *Engine) GenerateRecommendations(ctx context.Context, studentID string, p Params) (*core.RecommendationResult, error) {
	if studentID == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: student id is required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	sig := filterSignature(p)
	gen := func(genCtx context.Context) (*core.RecommendationResult, error) {
		return e.generate(genCtx, studentID, p)
	}

	if p.ForceRefresh {
		return e.Cache.Refresh(ctx, studentID, sig, gen)
	}

	result, cacheHit, err := e.Cache.GetOrGenerate(ctx, studentID, sig, gen)
	if err != nil {
		return nil, err
	}
	if cacheHit {
		// 不回写缓存，只在返回的副本上标记命中
		copied := *result
		copied.Metadata.CacheHit = true
		return &copied, nil
	}
	return result, nil
}

// RefreshRecommendations 强制重新生成（等价于 ForceRefresh=true）。
func (e *Engine) RefreshRecommendations(ctx context.Context, studentID string, p Params) (*core.RecommendationResult, error) {
	p.ForceRefresh = true
	return e.GenerateRecommendations(ctx, studentID, p)
}

// SubmitFeedback 记录一条针对推荐的反馈。
func (e *Engine) SubmitFeedback(ctx context.Context, fb core.Feedback) (*core.Feedback, error) {
	if e.Ledger == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotSupported,
			"engine: feedback ledger is not configured")
	}
	return e.Ledger.Submit(ctx, fb)
}

// GetExplanation 为某结果中的某个项目生成解释。
func (e *Engine) GetExplanation(ctx context.Context, recommendationID, projectID string) (*explain.Explanation, error) {
	if e.Explainer == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotSupported,
			"engine: explanation generator is not configured")
	}
	return e.Explainer.Explain(ctx, recommendationID, projectID)
}

// GetHistory 返回学生的历史推荐结果，从新到旧。
func (e *Engine) GetHistory(ctx context.Context, studentID string, limit int) ([]*core.RecommendationResult, error) {
	if studentID == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: student id is required")
	}
	return e.Cache.History(ctx, studentID, limit)
}

// generate 执行一次完整生成。调用方（缓存）保证同 key 不并发进入。
func (e *Engine) generate(ctx context.Context, studentID string, p Params) (*core.RecommendationResult, error) {
	started := e.now()

	profile, err := e.Profiles.GetProfileSnapshot(ctx, studentID)
	if err != nil {
		return nil, err
	}
	profile.Completeness = Completeness(profile)
	if profile.SnapshotAt.IsZero() {
		profile.SnapshotAt = started
	}

	rctx := &core.RecommendContext{
		StudentID: studentID,
		Profile:   profile,
		Params:    paramsMap(p),
	}

	if e.Enricher != nil {
		e.Enricher.Enrich(ctx, rctx, profile)
	}
	if e.Ledger != nil {
		rctx.Affinity = e.Ledger.Affinity(ctx, studentID)
	}
	if e.Vectorizer != nil {
		rctx.ProfileVector = e.Vectorizer.Vector(ctx, profile)
	}

	// 召回
	catalogNode := &recall.CatalogRecall{Catalog: e.Catalog}
	items, err := catalogNode.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}

	// 项目向量回填：缺失比例决定是否整体降级
	missing := 0
	if e.Index != nil && len(items) > 0 {
		candidates := make([]*core.ProjectCandidate, len(items))
		for i, it := range items {
			candidates[i] = it.Candidate
		}
		for i, pv := range e.Index.BatchVectors(ctx, candidates) {
			items[i].Vector = pv.Vector
			if pv.Vector == nil {
				missing++
			}
		}
	} else {
		missing = len(items)
	}

	threshold := e.FallbackThreshold
	if threshold <= 0 {
		threshold = fallbackMissingThreshold
	}
	rctx.Fallback = rctx.ProfileVector == nil ||
		(len(items) > 0 && float64(missing)/float64(len(items)) > threshold)

	// 过滤 -> 排序 -> 最低分 -> 截断候选池 -> 多样性 -> 最终截断
	nodes := []pipeline.Node{
		e.filterNode(p),
		rank.NewSimilarity(e.Weights),
		&filter.MinScoreNode{Min: p.MinSimilarityScore},
		&rerank.TopNNode{N: p.Limit * poolMultiplier},
	}
	if !p.DisableDiversity {
		nodes = append(nodes, rerank.NewDiversity(p.Limit, e.DiversityStep, e.DiversityCap))
	}
	nodes = append(nodes, &rerank.TopNNode{N: p.Limit})

	pipe := &pipeline.Pipeline{Nodes: nodes}
	ranked, err := pipe.Run(ctx, rctx, items)
	if err != nil {
		return nil, err
	}

	result := e.buildResult(studentID, profile, rctx, ranked, len(items))
	result.Metadata.ProcessingTimeMs = e.now().Sub(started).Milliseconds()
	return result, nil
}

// filterNode 组装候选过滤器。
func (e *Engine) filterNode(p Params) pipeline.Node {
	filters := []filter.Filter{}
	if len(p.IncludeSpecializations) > 0 || len(p.ExcludeSpecializations) > 0 {
		filters = append(filters, &filter.SpecializationFilter{
			Include: p.IncludeSpecializations,
			Exclude: p.ExcludeSpecializations,
		})
	}
	if p.MaxDifficulty != "" {
		filters = append(filters, &filter.DifficultyCapFilter{Max: p.MaxDifficulty})
	}
	if p.FilterExpr != "" {
		filters = append(filters, &filter.ExprFilter{Expression: p.FilterExpr})
	}
	return &filter.FilterNode{Filters: filters}
}

// buildResult 把排好序的 items 物化成推荐结果。
func (e *Engine) buildResult(
	studentID string,
	profile *core.ProfileSnapshot,
	rctx *core.RecommendContext,
	ranked []*core.Item,
	total int,
) *core.RecommendationResult {
	now := e.now()

	suggestions := make([]core.ProjectRecommendation, 0, len(ranked))
	sum := 0.0
	for _, it := range ranked {
		if it == nil || it.Candidate == nil {
			continue
		}
		c := it.Candidate
		s := core.ProjectRecommendation{
			ProjectID:         c.ID,
			Title:             c.Title,
			Specialization:    c.Specialization,
			SupervisorID:      c.SupervisorID,
			SupervisorName:    c.SupervisorName,
			Difficulty:        c.Difficulty,
			SimilarityScore:   it.Score,
			EmbeddingScore:    it.Feature("embedding_score"),
			TagOverlap:        it.Feature("tag_overlap"),
			DiversityBoost:    it.Feature("diversity_boost"),
			MatchingSkills:    metaStrings(it, "matching_skills"),
			MatchingInterests: metaStrings(it, "matching_interests"),
		}
		if _, ok := it.GetLabel("low_confidence"); ok {
			s.LowConfidence = true
		}
		s.Reasoning = explain.Reasoning(&s, profile)
		s.SupervisorSummary = explain.SupervisorSummary(&s)

		suggestions = append(suggestions, s)
		sum += it.Score
	}

	avg := 0.0
	if len(suggestions) > 0 {
		avg = sum / float64(len(suggestions))
	}

	algorithm := core.AlgorithmHybridSimilarity
	if rctx.Fallback {
		algorithm = core.AlgorithmFallbackTags
	}

	ttl := e.Cache.TTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	return &core.RecommendationResult{
		ID:                     resultID(studentID, now),
		StudentID:              studentID,
		ProjectSuggestions:     suggestions,
		AverageSimilarityScore: avg,
		ProfileSnapshot:        *profile,
		Status:                 core.ResultActive,
		CreatedAt:              now,
		ExpiresAt:              now.Add(ttl),
		Feedback:               []core.Feedback{},
		Metadata: core.ResultMetadata{
			TotalProjects:     total,
			Algorithm:         algorithm,
			FallbackUsed:      rctx.Fallback,
			ProfileIncomplete: profile.Completeness < incompleteThreshold,
		},
	}
}

// Completeness 计算画像完整度：技能/兴趣/方向/难度偏好各占 1/4。
func Completeness(p *core.ProfileSnapshot) float64 {
	if p == nil {
		return 0
	}
	score := 0.0
	if len(p.Skills) > 0 {
		score += 0.25
	}
	if len(p.Interests) > 0 {
		score += 0.25
	}
	if len(p.Specializations) > 0 {
		score += 0.25
	}
	if p.PreferredDifficulty.Level() > 0 {
		score += 0.25
	}
	return score
}

// filterSignature 对影响结果集的参数做规范化 hash，作为缓存 key 的一部分。
// ForceRefresh 不参与：它只决定取数路径，不改变结果集定义。
func filterSignature(p Params) string {
	inc := append([]string{}, p.IncludeSpecializations...)
	exc := append([]string{}, p.ExcludeSpecializations...)
	sort.Strings(inc)
	sort.Strings(exc)

	parts := []string{
		"limit=" + strconv.Itoa(p.Limit),
		"min=" + strconv.FormatFloat(p.MinSimilarityScore, 'f', 4, 64),
		"inc=" + strings.Join(inc, ","),
		"exc=" + strings.Join(exc, ","),
		"maxdiff=" + string(p.MaxDifficulty),
		"div=" + strconv.FormatBool(!p.DisableDiversity),
		"expr=" + p.FilterExpr,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:12])
}

func resultID(studentID string, now time.Time) string {
	return fmt.Sprintf("rec-%s-%d", studentID, now.UnixNano())
}

func paramsMap(p Params) map[string]any {
	m := map[string]any{
		"limit":                p.Limit,
		"min_similarity_score": p.MinSimilarityScore,
	}
	if len(p.IncludeSpecializations) > 0 {
		m["include_specializations"] = p.IncludeSpecializations
	}
	if len(p.ExcludeSpecializations) > 0 {
		m["exclude_specializations"] = p.ExcludeSpecializations
	}
	if p.MaxDifficulty != "" {
		m["max_difficulty"] = string(p.MaxDifficulty)
	}
	if p.FilterExpr != "" {
		m["filter_expr"] = p.FilterExpr
	}
	return m
}

func metaStrings(it *core.Item, key string) []string {
	if it.Meta == nil {
		return nil
	}
	if v, ok := it.Meta[key].([]string); ok {
		return v
	}
	return nil
}
