package core

import "github.com/rushteam/projecthub/pkg/utils"

// RecommendContext 承载一次推荐生成的学生/参数/实时信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	StudentID string

	// Profile 是本次生成取到的画像快照。
	Profile *ProfileSnapshot

	// ProfileVector 是画像向量；向量服务不可用时为 nil，排序节点据此降级。
	ProfileVector []float64

	// Fallback 为 true 时排序只使用标签/方向/难度信号（降级模式）。
	Fallback bool

	// Affinity 是反馈账本累积的按方向加权项（specialization -> weight）。
	Affinity map[string]float64

	// Labels 是请求级标签，可驱动整个 Pipeline 行为。
	Labels map[string]utils.Label

	// Params 请求级上下文参数：limit, min_similarity_score,
	// include_specializations, exclude_specializations, max_difficulty 等。
	Params map[string]any
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// Param 读取请求参数，不存在时返回 nil。
func (rctx *RecommendContext) Param(key string) any {
	if rctx.Params == nil {
		return nil
	}
	return rctx.Params[key]
}
