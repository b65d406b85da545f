package recall

import (
	"context"

	"github.com/rushteam/projecthub/core"
)

// Source 表示一个可复用的候选来源（项目目录/导师推介/跨院系目录/...）。
// 你可以把它理解为“可并发 fan-out 的策略单元”。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
