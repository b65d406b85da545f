package config

import (
	"github.com/rushteam/projecthub/core"
	"github.com/rushteam/projecthub/filter"
	"github.com/rushteam/projecthub/pipeline"
	"github.com/rushteam/projecthub/pkg/conv"
	"github.com/rushteam/projecthub/rank"
	"github.com/rushteam/projecthub/rerank"
)

// 内置 Node 的配置驱动注册。
// recall 节点依赖外部数据源，不在这里注册：由引擎（或调用方）注入。

func init() {
	Register("filter.candidate", buildCandidateFilterNode)
	Register("filter.expr", buildExprFilterNode)
	Register("filter.min_score", buildMinScoreNode)
	Register("rank.similarity", buildSimilarityNode)
	Register("rerank.diversity", buildDiversityNode)
	Register("rerank.topn", buildTopNNode)
}

// buildCandidateFilterNode 组合方向/难度过滤器。
//
// 配置：
//
//	type: filter.candidate
//	config:
//	  include_specializations: ["Computer Science"]
//	  exclude_specializations: []
//	  max_difficulty: intermediate
func buildCandidateFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	filters := []filter.Filter{}

	include := conv.SliceAnyToString(cfg["include_specializations"])
	exclude := conv.SliceAnyToString(cfg["exclude_specializations"])
	if len(include) > 0 || len(exclude) > 0 {
		filters = append(filters, &filter.SpecializationFilter{Include: include, Exclude: exclude})
	}
	if d := conv.ConfigGet[string](cfg, "max_difficulty", ""); d != "" {
		filters = append(filters, &filter.DifficultyCapFilter{Max: core.Difficulty(d)})
	}
	return &filter.FilterNode{Filters: filters}, nil
}

// buildExprFilterNode 构建 CEL 表达式过滤节点。
//
// 配置：
//
//	type: filter.expr
//	config:
//	  expression: item.specialization != "Photography"
func buildExprFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	expr := conv.ConfigGet[string](cfg, "expression", "")
	return &filter.FilterNode{Filters: []filter.Filter{&filter.ExprFilter{Expression: expr}}}, nil
}

func buildMinScoreNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &filter.MinScoreNode{Min: conv.ConfigGetFloat64(cfg, "min", 0)}, nil
}

// buildSimilarityNode 构建混合相似度排序节点，缺省权重见 rank.DefaultWeights。
//
// 配置：
//
//	type: rank.similarity
//	config:
//	  embedding: 0.7
//	  tag_overlap: 0.3
//	  specialization_boost: 0.05
//	  difficulty_penalty: 0.10
//	  affinity_cap: 0.10
func buildSimilarityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	w := rank.DefaultWeights()
	w.Embedding = conv.ConfigGetFloat64(cfg, "embedding", w.Embedding)
	w.TagOverlap = conv.ConfigGetFloat64(cfg, "tag_overlap", w.TagOverlap)
	w.SpecializationBoost = conv.ConfigGetFloat64(cfg, "specialization_boost", w.SpecializationBoost)
	w.DifficultyPenalty = conv.ConfigGetFloat64(cfg, "difficulty_penalty", w.DifficultyPenalty)
	w.AffinityCap = conv.ConfigGetFloat64(cfg, "affinity_cap", w.AffinityCap)
	return rank.NewSimilarity(w), nil
}

func buildDiversityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return rerank.NewDiversity(
		int(conv.ConfigGetInt64(cfg, "limit", 0)),
		conv.ConfigGetFloat64(cfg, "boost_step", 0),
		conv.ConfigGetFloat64(cfg, "boost_cap", 0),
	), nil
}

func buildTopNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}
