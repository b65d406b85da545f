package feedback

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rushteam/projecthub/cache"
	"github.com/rushteam/projecthub/core"
)

// affinityKeyPrefix 调权表键：rec:affinity:{studentID}，Hash 字段为方向名。
const affinityKeyPrefix = "rec:affinity:"

// 各反馈类型对所属方向的调权增量。
// rating 按偏离中位 3 分的程度调整：(r-3)×0.02，即 1 星 −0.04、5 星 +0.04。
const (
	deltaLike     = 0.03
	deltaDislike  = -0.03
	deltaBookmark = 0.05
	deltaPerStar  = 0.02

	// affinityCap 单个方向的调权绝对值上限
	affinityCap = 0.10
)

// Ledger 是反馈账本：校验并追加反馈，同时维护按方向累积的调权表。
//
// 语义：
//   - 反馈只追加不修改；同一项目允许多条反馈（取消点赞即一条新记录）
//   - 针对过期结果的反馈照常接受（反馈总是有价值的信号）
//   - 存储写失败不拒绝反馈：结果回写失败时落进程内账本并带软警告返回，
//     调权表写失败降级到进程内暂存，读取时叠加
type Ledger struct {
	cache *cache.Cache
	store core.KeyValueStore

	mu sync.Mutex
	// pending 调权表写失败时的进程内暂存（studentID -> specialization -> delta）
	pending map[string]map[string]float64
	// unsaved 结果回写失败时的进程内账本（recommendationID -> 反馈列表）
	unsaved map[string][]core.Feedback

	now func() time.Time
}

// NewLedger 创建反馈账本。
func NewLedger(c *cache.Cache, store core.KeyValueStore) *Ledger {
	return &Ledger{
		cache:   c,
		store:   store,
		pending: make(map[string]map[string]float64),
		unsaved: make(map[string][]core.Feedback),
		now:     time.Now,
	}
}

// Submit 校验并记录一条反馈，返回落账后的反馈（带 ID 与时间戳）。
//
// 错误：
//   - 反馈非法（未知类型、rating 越界）：INVALID_INPUT
//   - 推荐结果不存在：NOT_FOUND
//   - 项目不在该结果中：NOT_FOUND
//
// 下游持久化故障不算错误：反馈至少落进程内账本，返回值带 Warning 标记。
func (l *Ledger) Submit(ctx context.Context, fb core.Feedback) (*core.Feedback, error) {
	if err := fb.Validate(); err != nil {
		return nil, err
	}

	result, err := l.cache.GetResult(ctx, fb.RecommendationID)
	if err != nil {
		return nil, err
	}
	if _, ok := result.Suggestion(fb.ProjectID); !ok {
		return nil, core.NewDomainError(core.ModuleFeedback, core.ErrorCodeNotFound,
			"feedback: project "+fb.ProjectID+" is not part of recommendation "+fb.RecommendationID)
	}

	now := l.now()
	fb.ID = fmt.Sprintf("fb-%d-%s", now.UnixNano(), fb.ProjectID)
	fb.CreatedAt = now

	// 读-改-写经互斥串行化：反馈量级小，简单优先
	l.mu.Lock()
	defer l.mu.Unlock()

	result.Feedback = append(result.Feedback, fb)
	if err := l.cache.SaveResult(ctx, result); err != nil {
		// 反馈提交不因下游持久化故障失败：落进程内账本，软警告返回
		fb.Warning = "feedback: recorded in-memory only, result persistence failed: " + err.Error()
		l.unsaved[fb.RecommendationID] = append(l.unsaved[fb.RecommendationID], fb)
	}

	suggestion, _ := result.Suggestion(fb.ProjectID)
	l.applyAffinity(ctx, result.StudentID, suggestion.Specialization, deltaOf(fb))

	return &fb, nil
}

// deltaOf 计算一条反馈的调权增量。
func deltaOf(fb core.Feedback) float64 {
	switch fb.Type {
	case core.FeedbackLike:
		return deltaLike
	case core.FeedbackDislike:
		return deltaDislike
	case core.FeedbackBookmark:
		return deltaBookmark
	case core.FeedbackRating:
		if fb.Rating == nil {
			return 0
		}
		return (*fb.Rating - 3) * deltaPerStar
	}
	return 0
}

// applyAffinity 将增量累加进调权表；写失败降级到进程内暂存，不向上报错。
// 调用方持有 l.mu。
func (l *Ledger) applyAffinity(ctx context.Context, studentID, specialization string, delta float64) {
	if delta == 0 || specialization == "" {
		return
	}

	key := affinityKeyPrefix + studentID
	current := 0.0
	if raw, err := l.store.HGet(ctx, key, specialization); err == nil {
		if v, err := strconv.ParseFloat(string(raw), 64); err == nil {
			current = v
		}
	}
	next := clampAbs(current+delta, affinityCap)

	if err := l.store.HSet(ctx, key, specialization, []byte(strconv.FormatFloat(next, 'f', -1, 64))); err != nil {
		// 调权是软信号，存储故障不应让反馈落账失败
		if l.pending[studentID] == nil {
			l.pending[studentID] = make(map[string]float64)
		}
		l.pending[studentID][specialization] = clampAbs(l.pending[studentID][specialization]+delta, affinityCap)
	}
}

// Unsaved 返回某结果下未能落库、仅存于进程内账本的反馈。
func (l *Ledger) Unsaved(recommendationID string) []core.Feedback {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Feedback, len(l.unsaved[recommendationID]))
	copy(out, l.unsaved[recommendationID])
	return out
}

// Affinity 返回学生按方向累积的调权表（specialization -> weight），
// 叠加进程内暂存的未落库增量。无数据时返回空表。
func (l *Ledger) Affinity(ctx context.Context, studentID string) map[string]float64 {
	out := make(map[string]float64)

	if fields, err := l.store.HGetAll(ctx, affinityKeyPrefix+studentID); err == nil {
		for spec, raw := range fields {
			if v, err := strconv.ParseFloat(string(raw), 64); err == nil {
				out[spec] = v
			}
		}
	}

	l.mu.Lock()
	for spec, delta := range l.pending[studentID] {
		out[spec] = clampAbs(out[spec]+delta, affinityCap)
	}
	l.mu.Unlock()

	return out
}

func clampAbs(x, limit float64) float64 {
	if x > limit {
		return limit
	}
	if x < -limit {
		return -limit
	}
	return x
}
