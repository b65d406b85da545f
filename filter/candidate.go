package filter

import (
	"context"

	"github.com/rushteam/projecthub/core"
)

// SpecializationFilter 按方向白名单/黑名单过滤候选项目。
// Include 非空时仅保留列表内的方向；Exclude 优先于 Include。
type SpecializationFilter struct {
	Include []string
	Exclude []string
}

func (f *SpecializationFilter) Name() string {
	return "filter.specialization"
}

func (f *SpecializationFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || item.Candidate == nil {
		return true, nil
	}
	spec := item.Candidate.Specialization

	for _, s := range f.Exclude {
		if s == spec {
			return true, nil
		}
	}

	if len(f.Include) > 0 {
		for _, s := range f.Include {
			if s == spec {
				return false, nil
			}
		}
		return true, nil
	}

	return false, nil
}

// DifficultyCapFilter 过滤超出难度上限的候选项目。
type DifficultyCapFilter struct {
	Max core.Difficulty
}

func (f *DifficultyCapFilter) Name() string {
	return "filter.difficulty_cap"
}

func (f *DifficultyCapFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || item.Candidate == nil {
		return true, nil
	}
	if f.Max.Level() == 0 {
		return false, nil
	}
	return item.Candidate.Difficulty.Level() > f.Max.Level(), nil
}
