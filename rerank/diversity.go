package rerank

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rushteam/projecthub/core"
	"github.com/rushteam/projecthub/pipeline"
	"github.com/rushteam/projecthub/pkg/conv"
	"github.com/rushteam/projecthub/pkg/utils"
)

// Diversity 是多样性重排 Node：避免输出过度集中在单一方向或单一导师。
//
// 算法（贪心，非组合最优，保证时延有界）：
//   - 输入是已排序的候选池（建议取 3×limit）
//   - 逐个选入输出；维护各方向/各导师的已选计数
//   - 当下一个最高分候选的方向或导师相对候选池占比已超额时，
//     给池中下一个不同方向、欠代表的候选加一个小幅 boost
//     （按欠代表程度放大，上限 BoostCap），重排后它有机会提前出线
//   - boost 有界：不可能把候选抬到比它未加权分高出 BoostCap 以上的候选之前
//   - 每个候选至多 boost 一次；相同输入顺序下输出确定
type Diversity struct {
	// Limit 输出条数；<=0 时从请求参数 limit 读取，仍无则不截断
	Limit int

	// BoostStep 基础加分（默认 0.05）
	BoostStep float64

	// BoostCap 加分上限（默认 0.15）
	BoostCap float64
}

func NewDiversity(limit int, step, boostCap float64) *Diversity {
	return &Diversity{Limit: limit, BoostStep: step, BoostCap: boostCap}
}

func (n *Diversity) Name() string        { return "rerank.diversity" }
func (n *Diversity) Kind() pipeline.Kind { return pipeline.KindReRank }

type divCandidate struct {
	item    *core.Item
	base    float64 // 未加权分
	boost   float64
	boosted bool
}

func (c *divCandidate) adjusted() float64 { return c.base + c.boost }

func (n *Diversity) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	limit := n.Limit
	if limit <= 0 && rctx != nil {
		if v, ok := conv.ToInt(rctx.Param("limit")); ok {
			limit = v
		}
	}
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}

	step := n.BoostStep
	if step <= 0 {
		step = 0.05
	}
	boostCap := n.BoostCap
	if boostCap <= 0 {
		boostCap = 0.15
	}

	pool := make([]*divCandidate, 0, len(items))
	specTotal := make(map[string]int)
	supTotal := make(map[string]int)
	for _, it := range items {
		if it == nil || it.Candidate == nil {
			continue
		}
		pool = append(pool, &divCandidate{item: it, base: it.Score})
		specTotal[it.Candidate.Specialization]++
		supTotal[it.Candidate.SupervisorID]++
	}
	if len(pool) == 0 {
		return items, nil
	}

	// 单一方向/导师在输出中的硬上限：ceil(limit/2)
	hardCap := (limit + 1) / 2

	// 按候选池占比推导的软配额，下限 1
	quota := func(total map[string]int, key string) int {
		q := int(math.Ceil(float64(limit) * float64(total[key]) / float64(len(pool))))
		if q < 1 {
			q = 1
		}
		if q > hardCap {
			q = hardCap
		}
		return q
	}

	specSel := make(map[string]int)
	supSel := make(map[string]int)
	selected := make([]*core.Item, 0, limit)
	lastAdjusted := math.Inf(1)

	// 硬上限：达到即出池，宁可少返回也不超额
	hardCapped := func(c *divCandidate) bool {
		return specSel[c.item.Candidate.Specialization] >= hardCap ||
			supSel[c.item.Candidate.SupervisorID] >= hardCap
	}

	// 软配额：超出时优先给欠代表方向加分
	overRepresented := func(c *divCandidate) bool {
		spec := c.item.Candidate.Specialization
		return specSel[spec] >= quota(specTotal, spec)
	}

	sortPool := func() {
		sort.SliceStable(pool, func(i, j int) bool {
			if pool[i].adjusted() != pool[j].adjusted() {
				return pool[i].adjusted() > pool[j].adjusted()
			}
			return pool[i].item.ID < pool[j].item.ID
		})
	}

	for len(selected) < limit && len(pool) > 0 {
		sortPool()
		top := pool[0]

		if hardCapped(top) {
			pool = pool[1:]
			continue
		}

		if overRepresented(top) {
			if alt := n.pickAlternative(pool, top, specSel, supSel, hardCap, quota, specTotal, step, boostCap, lastAdjusted); alt != nil {
				// boost 后重排，让欠代表方向有机会上浮；本轮不选
				continue
			}
		}

		lastAdjusted = top.adjusted()
		selected = append(selected, top.item)
		specSel[top.item.Candidate.Specialization]++
		supSel[top.item.Candidate.SupervisorID]++
		if top.boost > 0 {
			top.item.Score = clampUnit(top.adjusted())
			top.item.PutFeature("diversity_boost", top.boost)
			top.item.PutLabel("diversity_boost", utils.Label{
				Value:  fmt.Sprintf("%.3f", top.boost),
				Source: "rerank",
			})
		}
		pool = pool[1:]
	}

	return selected, nil
}

// pickAlternative 在池中找一个不同方向、未超额的候选做一次 boost。
// 返回 nil 表示没有够得着的替代者（差距超过 BoostCap 或全部同方向）。
func (n *Diversity) pickAlternative(
	pool []*divCandidate,
	top *divCandidate,
	specSel, supSel map[string]int,
	hardCap int,
	quota func(map[string]int, string) int,
	specTotal map[string]int,
	step, boostCap, lastAdjusted float64,
) *divCandidate {
	topSpec := top.item.Candidate.Specialization

	for _, c := range pool[1:] {
		spec := c.item.Candidate.Specialization
		if spec == topSpec || c.boosted {
			continue
		}
		if specSel[spec] >= quota(specTotal, spec) {
			continue
		}
		if supSel[c.item.Candidate.SupervisorID] >= hardCap {
			continue
		}
		// 差距超过上限的候选追不上，不做无效 boost
		if top.base-c.base > boostCap {
			continue
		}

		q := quota(specTotal, spec)
		deficit := float64(q-specSel[spec]) / float64(q)
		boost := step * (1 + deficit)
		if boost > boostCap {
			boost = boostCap
		}
		// 不允许越过已选条目，保证输出仍按最终分降序
		if !math.IsInf(lastAdjusted, 1) && c.base+boost > lastAdjusted {
			boost = lastAdjusted - c.base
		}
		if boost <= 0 {
			continue
		}
		c.boost = boost
		c.boosted = true

		if c.adjusted() > top.adjusted() {
			return c
		}
		// boost 不足以反超：视为无替代者，让 top 正常出线
		return nil
	}
	return nil
}

func clampUnit(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
