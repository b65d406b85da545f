package vectorize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/projecthub/core"
)

// ProjectIndex 维护项目向量：按 项目ID + 内容hash 键控，内容或模型版本
// 变化时重算，批量计算容忍部分失败（缺失的向量为 nil，不中断整批）。
type ProjectIndex struct {
	// Embedder 向量服务
	Embedder core.Embedder

	// Cache 向量缓存（Hash: hashKey -> 项目ID -> EmbeddingVector），可为 nil
	Cache core.KeyValueStore

	// Indexer 向量检索库回填（"更多类似项目"用），可为 nil
	Indexer core.VectorIndexer

	// Collection 检索库集合名，默认 "projects"
	Collection string

	// ChunkSize 单次批量调用的文本数，默认 100（服务端上限）
	ChunkSize int

	// MaxConcurrent 并发批次数上限，默认 4
	MaxConcurrent int

	// Timeout 单个批次的超时时间，默认 5s
	Timeout time.Duration
}

// ProjectVector 是一个候选项目与它的向量；向量缺失时为 nil。
type ProjectVector struct {
	Candidate *core.ProjectCandidate
	Vector    []float64
}

func NewProjectIndex(embedder core.Embedder, cache core.KeyValueStore, indexer core.VectorIndexer) *ProjectIndex {
	return &ProjectIndex{
		Embedder:      embedder,
		Cache:         cache,
		Indexer:       indexer,
		Collection:    "projects",
		ChunkSize:     100,
		MaxConcurrent: 4,
		Timeout:       5 * time.Second,
	}
}

// ContentText 构建项目的向量化文本：标题 + 摘要 + 标签 + 技术栈。
func ContentText(c *core.ProjectCandidate) string {
	if c == nil {
		return ""
	}
	tags := append([]string{}, c.Tags...)
	tags = append(tags, c.TechStack...)
	for i := range tags {
		tags[i] = strings.ToLower(strings.TrimSpace(tags[i]))
	}
	sort.Strings(tags)

	parts := []string{c.Title, c.Abstract, strings.Join(tags, " "), c.Specialization}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// ContentHash 返回项目内容的 hash，内容变化即失效。
func ContentHash(c *core.ProjectCandidate) string {
	sum := sha256.Sum256([]byte(ContentText(c)))
	return hex.EncodeToString(sum[:16])
}

// BatchVectors 为一批候选项目取向量：优先读缓存，缺失的分批并发调用
// 向量服务；某个批次失败只影响该批次的条目（向量为 nil），整批继续。
func (x *ProjectIndex) BatchVectors(ctx context.Context, candidates []*core.ProjectCandidate) []ProjectVector {
	out := make([]ProjectVector, len(candidates))
	missing := make([]int, 0, len(candidates))

	for i, c := range candidates {
		out[i] = ProjectVector{Candidate: c}
		if c == nil || x.Embedder == nil {
			continue
		}
		if vec := x.cached(ctx, c); vec != nil {
			out[i].Vector = vec
			continue
		}
		missing = append(missing, i)
	}

	if len(missing) == 0 {
		return out
	}

	chunk := x.ChunkSize
	if chunk <= 0 {
		chunk = 100
	}
	maxConcurrent := x.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrent)

	for start := 0; start < len(missing); start += chunk {
		end := start + chunk
		if end > len(missing) {
			end = len(missing)
		}
		idxs := missing[start:end]

		eg.Go(func() error {
			texts := make([]string, len(idxs))
			for j, i := range idxs {
				texts[j] = ContentText(candidates[i])
			}

			callCtx := egCtx
			if x.Timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(egCtx, x.Timeout)
				defer cancel()
			}

			vectors, err := x.Embedder.EmbedTexts(callCtx, texts)
			if err != nil || len(vectors) != len(idxs) {
				// 部分失败：该批次条目保持 nil，交给上层统计降级比例
				return nil
			}

			mu.Lock()
			for j, i := range idxs {
				out[i].Vector = vectors[j]
			}
			mu.Unlock()

			for j, i := range idxs {
				x.commit(ctx, candidates[i], vectors[j])
			}
			return nil
		})
	}

	// Go 均返回 nil，Wait 只用于汇合
	_ = eg.Wait()
	return out
}

// cached 读缓存：项目内容或模型版本变化视为 miss。
func (x *ProjectIndex) cached(ctx context.Context, c *core.ProjectCandidate) []float64 {
	if x.Cache == nil {
		return nil
	}
	data, err := x.Cache.HGet(ctx, x.hashKey(), c.ID)
	if err != nil {
		return nil
	}
	var ev core.EmbeddingVector
	if json.Unmarshal(data, &ev) != nil {
		return nil
	}
	if ev.ContentHash != ContentHash(c) || ev.ModelVersion != x.Embedder.ModelVersion() {
		return nil
	}
	return ev.Values
}

// commit 把新算出的向量写回缓存和检索库；写失败只影响命中率，不影响结果。
func (x *ProjectIndex) commit(ctx context.Context, c *core.ProjectCandidate, vec []float64) {
	if x.Cache != nil {
		ev := core.EmbeddingVector{
			OwnerID:      c.ID,
			OwnerKind:    core.OwnerProject,
			ContentHash:  ContentHash(c),
			Values:       vec,
			ModelVersion: x.Embedder.ModelVersion(),
			ComputedAt:   time.Now(),
		}
		if data, err := json.Marshal(&ev); err == nil {
			_ = x.Cache.HSet(ctx, x.hashKey(), c.ID, data)
		}
	}
	if x.Indexer != nil {
		_ = x.Indexer.Upsert(ctx, x.collection(), c.ID, vec)
	}
}

func (x *ProjectIndex) collection() string {
	if x.Collection != "" {
		return x.Collection
	}
	return "projects"
}

func (x *ProjectIndex) hashKey() string {
	return "vec:project:" + x.Embedder.ModelVersion()
}
