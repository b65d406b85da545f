package core

import "github.com/rushteam/projecthub/pkg/utils"

// Item 是推荐链路中的统一承载结构：候选项目、分数、特征、元信息、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策；Vector 由向量索引节点回填。
type Item struct {
	ID        string
	Score     float64
	Candidate *ProjectCandidate
	Vector    []float64
	Features  map[string]float64
	Meta      map[string]any
	Labels    map[string]utils.Label
}

// NewItem 基于候选项目创建一个 Item。
func NewItem(c *ProjectCandidate) *Item {
	it := &Item{
		Candidate: c,
		Features:  make(map[string]float64),
		Meta:      make(map[string]any),
		Labels:    make(map[string]utils.Label),
	}
	if c != nil {
		it.ID = c.ID
	}
	return it
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// GetLabel 获取 Label。
func (it *Item) GetLabel(key string) (utils.Label, bool) {
	if it.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := it.Labels[key]
	return lbl, ok
}

// PutFeature 写入一个数值特征（排序分量、解释分量等）。
func (it *Item) PutFeature(key string, v float64) {
	if it.Features == nil {
		it.Features = make(map[string]float64)
	}
	it.Features[key] = v
}

// Feature 读取数值特征，不存在时返回 0。
func (it *Item) Feature(key string) float64 {
	if it.Features == nil {
		return 0
	}
	return it.Features[key]
}
