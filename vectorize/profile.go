package vectorize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rushteam/projecthub/core"
)

// ProfileVectorizer 负责学生画像的向量化与缓存。
//
// 规范化文本：技能 + 兴趣 + 方向，小写、去重、排序 —— 与元素顺序无关，
// 因此同一画像内容总是命中同一缓存条目；高权重兴趣会重复出现以加重分量。
// 向量服务失败时返回 nil（不返回错误）：上层把"拿不到画像向量"
// 当作降级信号切换纯标签排序，而不是致命错误。
type ProfileVectorizer struct {
	// Embedder 向量服务
	Embedder core.Embedder

	// Cache 向量缓存（按规范化文本 hash 键控），可为 nil（不缓存）
	Cache core.Store

	// TTL 缓存有效期，默认 24h
	TTL time.Duration
}

func NewProfileVectorizer(embedder core.Embedder, cache core.Store) *ProfileVectorizer {
	return &ProfileVectorizer{
		Embedder: embedder,
		Cache:    cache,
		TTL:      24 * time.Hour,
	}
}

// emphasisWeight 兴趣权重达到该值时在规范化文本中重复一次，
// 提升其在语义向量中的分量。
const emphasisWeight = 0.5

// CanonicalText 构建画像的规范化文本表示。
// 特征侧兴趣权重高的词条会重复出现，因此权重变化会产生不同的
// 文本（即不同的缓存键），向量自然失效重算。
func CanonicalText(p *core.ProfileSnapshot) string {
	if p == nil {
		return ""
	}
	seen := make(map[string]bool)
	terms := make([]string, 0, len(p.Skills)+len(p.Interests)+len(p.Specializations))
	add := func(list []string) {
		for _, s := range list {
			t := strings.ToLower(strings.TrimSpace(s))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			terms = append(terms, t)
		}
	}
	add(p.Skills)
	add(p.Interests)
	add(p.Specializations)
	sort.Strings(terms)

	emphasized := make([]string, 0, len(p.InterestWeights))
	for name, w := range p.InterestWeights {
		t := strings.ToLower(strings.TrimSpace(name))
		if t == "" || w < emphasisWeight {
			continue
		}
		emphasized = append(emphasized, t)
	}
	sort.Strings(emphasized)
	terms = append(terms, emphasized...)

	return strings.Join(terms, " ")
}

// Vector 返回画像向量；缓存命中跳过网络调用，服务失败返回 nil。
func (v *ProfileVectorizer) Vector(ctx context.Context, p *core.ProfileSnapshot) []float64 {
	text := CanonicalText(p)
	if text == "" || v.Embedder == nil {
		return nil
	}

	key := v.cacheKey(text)
	if v.Cache != nil {
		if data, err := v.Cache.Get(ctx, key); err == nil {
			var ev core.EmbeddingVector
			if json.Unmarshal(data, &ev) == nil && ev.ModelVersion == v.Embedder.ModelVersion() {
				return ev.Values
			}
		}
	}

	vec, err := v.Embedder.EmbedText(ctx, text)
	if err != nil || len(vec) == 0 {
		// 向量服务不可用：交给上层降级，不透出错误
		return nil
	}

	if v.Cache != nil {
		ev := core.EmbeddingVector{
			OwnerID:      p.StudentID,
			OwnerKind:    core.OwnerProfile,
			ContentHash:  key,
			Values:       vec,
			ModelVersion: v.Embedder.ModelVersion(),
			ComputedAt:   time.Now(),
		}
		if data, err := json.Marshal(&ev); err == nil {
			ttl := int(v.ttl().Seconds())
			// 缓存写失败只影响下次命中，不影响本次结果
			_ = v.Cache.Set(ctx, key, data, ttl)
		}
	}
	return vec
}

func (v *ProfileVectorizer) ttl() time.Duration {
	if v.TTL > 0 {
		return v.TTL
	}
	return 24 * time.Hour
}

func (v *ProfileVectorizer) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(v.Embedder.ModelVersion() + "|" + text))
	return "vec:profile:" + hex.EncodeToString(sum[:16])
}
