package filter

import (
	"context"

	"github.com/rushteam/projecthub/core"
	"github.com/rushteam/projecthub/pipeline"
)

// MinScoreNode 在排序之后剔除低于最低相似分的候选。
// 通常放在 rank 节点与 rerank 节点之间。
type MinScoreNode struct {
	// Min 最低分 [0,1]；0 表示不过滤
	Min float64
}

func (n *MinScoreNode) Name() string {
	return "filter.min_score"
}

func (n *MinScoreNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *MinScoreNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Min <= 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if it.Score >= n.Min {
			out = append(out, it)
		}
	}
	return out, nil
}
