package filter

import (
	"context"

	"github.com/rushteam/projecthub/core"
	"github.com/rushteam/projecthub/pkg/dsl"
)

// ExprFilter 按 CEL 表达式过滤候选：表达式为真的候选被保留。
//
// 示例：
//   - item.specialization == "Computer Science"
//   - "machine-learning" in item.tags && item.difficulty != "advanced"
//   - label.recall_source.contains("catalog")
type ExprFilter struct {
	// Expression CEL 表达式，空表达式保留所有候选
	Expression string
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Expression == "" || item == nil {
		return false, nil
	}

	keep, err := dsl.NewEval(item, rctx).Evaluate(f.Expression)
	if err != nil {
		// 表达式错误不剔除候选，由 FilterNode 记录并继续
		return false, err
	}
	return !keep, nil
}
