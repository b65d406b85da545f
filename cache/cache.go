package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rushteam/projecthub/core"
)

// 缓存键格式。
//
//	rec:active:{studentID}:{filterSig}  -> 当前活跃结果的 ID
//	rec:result:{resultID}               -> 结果 JSON
//	rec:history:{studentID}             -> 按生成时间排序的结果 ID 集合
const (
	activeKeyPrefix  = "rec:active:"
	resultKeyPrefix  = "rec:result:"
	historyKeyPrefix = "rec:history:"
)

const (
	// DefaultTTL 结果默认有效期：7 天
	DefaultTTL = 7 * 24 * time.Hour

	// DefaultWaitTimeout 等待在途生成的上限；超时返回 GENERATION_TIMEOUT，
	// 调用方可重试，不触发第二次生成
	DefaultWaitTimeout = 10 * time.Second
)

// ErrResultNotFound 表示没有可返回的活跃结果（不存在或已过期）。
var ErrResultNotFound = core.NewDomainError(core.ModuleCache, core.ErrorCodeNotFound, "cache: no active result")

// ErrGenerationTimeout 表示等待同学生的在途生成超时。
var ErrGenerationTimeout = core.NewDomainError(core.ModuleCache, core.ErrorCodeGenerationTimeout, "cache: waiting for in-flight generation timed out")

// Generator 是结果生成函数，缓存未命中时由 GetOrGenerate 调用。
type Generator func(ctx context.Context) (*core.RecommendationResult, error)

// Cache 是推荐结果缓存。
//
// 语义：
//   - 同一学生、同一过滤条件的有效期内请求返回同一结果（含相同 ID 与 CreatedAt）
//   - 过期在读取时判定：活跃指针仍在但结果已过 ExpiresAt 时视为未命中
//   - 并发 miss 由 singleflight 合并：同 key 只有一次生成在途，其余请求等待并
//     共享同一结果；等待有界（WaitTimeout）
//   - 生成使用与发起请求解耦的 context（WithoutCancel）：等待者放弃后生成继续
//     完成并落缓存，不留下半成品
type Cache struct {
	store core.KeyValueStore

	// TTL 结果有效期
	TTL time.Duration

	// WaitTimeout 等待在途生成的上限
	WaitTimeout time.Duration

	group singleflight.Group
	now   func() time.Time
}

// New 创建推荐结果缓存。
func New(store core.KeyValueStore) *Cache {
	return &Cache{
		store:       store,
		TTL:         DefaultTTL,
		WaitTimeout: DefaultWaitTimeout,
		now:         time.Now,
	}
}

func activeKey(studentID, filterSig string) string {
	return activeKeyPrefix + studentID + ":" + filterSig
}

func resultKey(resultID string) string {
	return resultKeyPrefix + resultID
}

func historyKey(studentID string) string {
	return historyKeyPrefix + studentID
}

// Get 返回学生在给定过滤条件下的活跃结果；不存在或已过期返回 ErrResultNotFound。
func (c *Cache) Get(ctx context.Context, studentID, filterSig string) (*core.RecommendationResult, error) {
	raw, err := c.store.Get(ctx, activeKey(studentID, filterSig))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}

	result, err := c.GetResult(ctx, string(raw))
	if err != nil {
		if core.IsNotFound(err) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}

	// 过期在读取时判定；指针随 TTL 自然淘汰，这里只提前摘除
	if result.ExpiredAt(c.now()) {
		_ = c.store.Delete(ctx, activeKey(studentID, filterSig))
		return nil, ErrResultNotFound
	}
	return result, nil
}

// GetOrGenerate 返回活跃结果；未命中时生成并写入缓存。
// 第二个返回值表示是否命中缓存。
func (c *Cache) GetOrGenerate(
	ctx context.Context,
	studentID, filterSig string,
	gen Generator,
) (*core.RecommendationResult, bool, error) {
	if result, err := c.Get(ctx, studentID, filterSig); err == nil {
		return result, true, nil
	} else if !core.IsNotFound(err) {
		return nil, false, err
	}

	result, err := c.generate(ctx, studentID, filterSig, gen)
	if err != nil {
		return nil, false, err
	}
	return result, false, nil
}

// Refresh 使当前活跃结果失效并立即生成新结果（force refresh）。
func (c *Cache) Refresh(
	ctx context.Context,
	studentID, filterSig string,
	gen Generator,
) (*core.RecommendationResult, error) {
	if err := c.Invalidate(ctx, studentID, filterSig); err != nil {
		return nil, err
	}
	return c.generate(ctx, studentID, filterSig, gen)
}

// Invalidate 摘除活跃指针；旧结果保留在历史中。
func (c *Cache) Invalidate(ctx context.Context, studentID, filterSig string) error {
	err := c.store.Delete(ctx, activeKey(studentID, filterSig))
	if err != nil && !core.IsStoreNotFound(err) {
		return err
	}
	return nil
}

// generate 经 singleflight 合并并发生成；同 key 同时只有一次生成在途。
func (c *Cache) generate(
	ctx context.Context,
	studentID, filterSig string,
	gen Generator,
) (*core.RecommendationResult, error) {
	key := studentID + ":" + filterSig

	ch := c.group.DoChan(key, func() (any, error) {
		// 生成与发起请求的生命周期解耦：等待者超时放弃后生成照常完成落缓存
		genCtx := context.WithoutCancel(ctx)

		result, err := gen(genCtx)
		if err != nil {
			return nil, err
		}
		if err := c.put(genCtx, studentID, filterSig, result); err != nil {
			return nil, err
		}
		return result, nil
	})

	waitTimeout := c.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	timer := time.NewTimer(waitTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*core.RecommendationResult), nil
	case <-ctx.Done():
		// 放弃等待与等待超时同属一类：生成仍在途，调用方可稍后取缓存
		return nil, core.NewDomainError(core.ModuleCache, core.ErrorCodeGenerationTimeout,
			"cache: waiting for in-flight generation canceled: "+ctx.Err().Error())
	case <-timer.C:
		return nil, ErrGenerationTimeout
	}
}

// put 持久化新结果并更新活跃指针与历史。
func (c *Cache) put(ctx context.Context, studentID, filterSig string, result *core.RecommendationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache: marshal result: %w", err)
	}

	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ttlSec := int(ttl / time.Second)

	if err := c.store.Set(ctx, resultKey(result.ID), data, ttlSec); err != nil {
		return fmt.Errorf("cache: store result: %w", err)
	}
	if err := c.store.Set(ctx, activeKey(studentID, filterSig), []byte(result.ID), ttlSec); err != nil {
		return fmt.Errorf("cache: store active pointer: %w", err)
	}
	if err := c.store.ZAdd(ctx, historyKey(studentID), float64(result.CreatedAt.UnixMilli()), result.ID); err != nil {
		return fmt.Errorf("cache: append history: %w", err)
	}
	return nil
}

// GetResult 按结果 ID 读取结果（供反馈/解释路径使用，不区分是否过期）。
func (c *Cache) GetResult(ctx context.Context, resultID string) (*core.RecommendationResult, error) {
	raw, err := c.store.Get(ctx, resultKey(resultID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.NewDomainError(core.ModuleCache, core.ErrorCodeNotFound,
				"cache: result not found: "+resultID)
		}
		return nil, err
	}

	var result core.RecommendationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("cache: unmarshal result %s: %w", resultID, err)
	}
	if result.ExpiredAt(c.now()) {
		result.Status = core.ResultExpired
	}
	return &result, nil
}

// SaveResult 回写结果（追加反馈后）。保持原有效期：TTL 按 ExpiresAt 剩余时间计算。
func (c *Cache) SaveResult(ctx context.Context, result *core.RecommendationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache: marshal result: %w", err)
	}

	remain := int(result.ExpiresAt.Sub(c.now()) / time.Second)
	if remain <= 0 {
		// 已过期的结果保留一段时间供历史读取
		remain = int(DefaultTTL / time.Second)
	}
	return c.store.Set(ctx, resultKey(result.ID), data, remain)
}

// History 返回学生的历史结果，按生成时间从新到旧。
// 已过期的结果以 expired 状态返回；结果体已被淘汰的条目跳过。
func (c *Cache) History(ctx context.Context, studentID string, limit int) ([]*core.RecommendationResult, error) {
	if limit <= 0 {
		limit = 10
	}
	ids, err := c.store.ZRange(ctx, historyKey(studentID), 0, int64(limit-1))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	results := make([]*core.RecommendationResult, 0, len(ids))
	for _, id := range ids {
		result, err := c.GetResult(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}
