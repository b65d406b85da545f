package rerank

import (
	"context"

	"github.com/rushteam/projecthub/core"
	"github.com/rushteam/projecthub/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，用于在排序/重排后截取前 N 个候选。
//
// 使用场景：
//   - 排序后先截取 3×limit 的候选池交给多样性重排
//   - 重排后截取最终返回数量
type TopNNode struct {
	// N 要保留的候选数量（Top N）
	// 如果 N <= 0，则返回所有候选（不截断）
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
