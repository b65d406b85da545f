// Package projecthub 是学生-课题匹配的推荐引擎（Project Recommendation Engine）。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（Recall → Filter → Rank → ReRank）
// - Labels-first: labels 全链路透传与标准化 merge，支持 explain / 观测 / 策略驱动
// - 显式降级: 向量服务不可用时切换纯标签排序，元数据标记 fallback，绝不静默
package projecthub

import "github.com/rushteam/projecthub/pipeline"

// 轻量 facade：便于直接 import "projecthub" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
