package recall

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/projecthub/core"
	"github.com/rushteam/projecthub/pipeline"
	"github.com/rushteam/projecthub/pkg/utils"
)

// Fanout 是一个 Recall Node：并发执行多个候选来源，并合并结果。
// 支持超时、限流、优先级合并策略。单一来源失败不影响其他来源。
type Fanout struct {
	Sources       []Source
	Dedup         bool
	Timeout       time.Duration // 每个来源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy MergeStrategy // 默认 FirstMergeStrategy
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	type sourced struct {
		priority int
		items    []*core.Item
	}

	var (
		mu    sync.Mutex
		all   []sourced
		eg, _ = errgroup.WithContext(ctx)
	)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		s := src
		priority := i // 优先级（索引越小优先级越高）

		eg.Go(func() error {
			recallCtx := ctx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(ctx, n.Timeout)
				defer cancel()
			}

			items, err := s.Recall(recallCtx, rctx)
			if err != nil {
				// 超时或错误时返回空结果，不中断其他来源
				return nil
			}

			// 记录召回来源 label，方便 explain / 观测
			for _, it := range items {
				it.PutLabel("recall_source", utils.Label{Value: s.Name(), Source: "recall"})
			}

			mu.Lock()
			all = append(all, sourced{priority: priority, items: items})
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// 按来源优先级恢复确定性顺序后再合并
	ordered := make([]*core.Item, 0)
	for p := 0; p < len(n.Sources); p++ {
		for _, s := range all {
			if s.priority == p {
				ordered = append(ordered, s.items...)
			}
		}
	}

	strategy := n.MergeStrategy
	if strategy == nil {
		strategy = &FirstMergeStrategy{Dedup: n.Dedup}
	}
	return strategy.Merge(ordered), nil
}

// MergeStrategy 定义多来源结果的合并规则。
type MergeStrategy interface {
	Merge(all []*core.Item) []*core.Item
}

// FirstMergeStrategy 按 ID 去重，保留第一个出现的（默认策略）。
type FirstMergeStrategy struct {
	Dedup bool
}

func (s *FirstMergeStrategy) Merge(all []*core.Item) []*core.Item {
	if !s.Dedup {
		return all
	}
	seen := make(map[string]*core.Item, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		if old, ok := seen[it.ID]; ok {
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		seen[it.ID] = it
		out = append(out, it)
	}
	return out
}

// UnionMergeStrategy 合并所有结果，不去重（用于需要保留所有来源的场景）。
type UnionMergeStrategy struct{}

func (s *UnionMergeStrategy) Merge(all []*core.Item) []*core.Item {
	return all
}
