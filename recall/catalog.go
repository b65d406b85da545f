package recall

import (
	"context"

	"github.com/rushteam/projecthub/core"
	"github.com/rushteam/projecthub/pipeline"
	"github.com/rushteam/projecthub/pkg/conv"
	"github.com/rushteam/projecthub/pkg/utils"
)

// CatalogRecall 从已审核项目目录拉取候选集。
// 既可以作为独立的 Recall Node，也可以作为 Fanout 的 Source。
//
// 过滤条件从请求参数透传给目录源（include_specializations /
// exclude_specializations / max_difficulty），目录源可以在查询侧裁剪，
// 引擎侧的 filter 节点会再做一次兜底过滤。
type CatalogRecall struct {
	// Catalog 项目目录数据源
	Catalog core.CatalogSource

	// SourceName 标识来源（多目录场景区分），默认 "catalog"
	SourceName string
}

func (r *CatalogRecall) Name() string {
	if r.SourceName != "" {
		return "recall." + r.SourceName
	}
	return "recall.catalog"
}

func (r *CatalogRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

// Recall 实现 Source 接口。
func (r *CatalogRecall) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.Catalog == nil {
		return nil, nil
	}

	filters := filtersFromParams(rctx)
	candidates, err := r.Catalog.ListApprovedCandidates(ctx, filters)
	if err != nil {
		return nil, err
	}

	items := make([]*core.Item, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		it := core.NewItem(c)
		it.PutLabel("recall_source", utils.Label{Value: r.Name(), Source: "recall"})
		items = append(items, it)
	}
	return items, nil
}

// Process 实现 pipeline.Node 接口：召回结果追加到输入 items 之后。
func (r *CatalogRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	recalled, err := r.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	return append(items, recalled...), nil
}

func filtersFromParams(rctx *core.RecommendContext) *core.CatalogFilters {
	if rctx == nil || rctx.Params == nil {
		return nil
	}
	f := &core.CatalogFilters{
		IncludeSpecializations: conv.SliceAnyToString(rctx.Params["include_specializations"]),
		ExcludeSpecializations: conv.SliceAnyToString(rctx.Params["exclude_specializations"]),
	}
	if d, ok := conv.ToString(rctx.Params["max_difficulty"]); ok {
		f.MaxDifficulty = core.Difficulty(d)
	}
	if len(f.IncludeSpecializations) == 0 && len(f.ExcludeSpecializations) == 0 && f.MaxDifficulty == "" {
		return nil
	}
	return f
}
