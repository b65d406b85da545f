package core

import "context"

// ProfileSource 是学生画像的外部数据源。
//
// 设计原则：
//   - 定义在领域层（core），由调用方/基础设施层实现
//   - 引擎对画像数据只读，每次生成重新取快照
type ProfileSource interface {
	// GetProfileSnapshot 获取学生画像快照；学生不存在时返回 NOT_FOUND 领域错误。
	GetProfileSnapshot(ctx context.Context, studentID string) (*ProfileSnapshot, error)
}

// CatalogFilters 是项目目录查询的过滤条件。
type CatalogFilters struct {
	IncludeSpecializations []string
	ExcludeSpecializations []string
	MaxDifficulty          Difficulty
}

// CatalogSource 是已审核项目目录的外部数据源，对引擎只读。
type CatalogSource interface {
	// ListApprovedCandidates 列出通过审核的候选项目。
	ListApprovedCandidates(ctx context.Context, filters *CatalogFilters) ([]*ProjectCandidate, error)
}
