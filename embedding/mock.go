package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"

	"github.com/rushteam/projecthub/core"
)

// Mock 是确定性的 Embedder 测试替身。
//
// 向量由文本分词后的 hash 投影生成：相同文本得到相同向量，
// 共享词越多的两段文本余弦相似度越高，足以驱动排序/降级/单飞等测试。
type Mock struct {
	// Dim 向量维度，默认 32
	Dim int

	// FailAll 为 true 时所有调用失败（模拟服务完全不可用）
	FailAll bool

	// FailTexts 命中这些子串的文本编码失败（模拟部分失败）
	FailTexts []string

	textCalls  atomic.Int64
	batchCalls atomic.Int64
}

func NewMock(dim int) *Mock {
	if dim <= 0 {
		dim = 32
	}
	return &Mock{Dim: dim}
}

func (m *Mock) Name() string         { return "embedding.mock" }
func (m *Mock) ModelVersion() string { return "mock-v1" }

func (m *Mock) Dimensions() int {
	if m.Dim <= 0 {
		return 32
	}
	return m.Dim
}

// TextCalls 返回 EmbedText 的调用次数。
func (m *Mock) TextCalls() int64 { return m.textCalls.Load() }

// BatchCalls 返回 EmbedTexts 的调用次数（单飞验证用）。
func (m *Mock) BatchCalls() int64 { return m.batchCalls.Load() }

func (m *Mock) EmbedText(ctx context.Context, text string) ([]float64, error) {
	m.textCalls.Add(1)
	if err := m.failure(text); err != nil {
		return nil, err
	}
	return m.encode(text), nil
}

func (m *Mock) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	m.batchCalls.Add(1)
	if m.FailAll {
		return nil, core.NewDomainError(core.ModuleEmbedding, core.ErrorCodeUnavailable, "embedding: mock failure")
	}
	out := make([][]float64, 0, len(texts))
	for _, t := range texts {
		if err := m.failure(t); err != nil {
			return nil, err
		}
		out = append(out, m.encode(t))
	}
	return out, nil
}

func (m *Mock) failure(text string) error {
	if m.FailAll {
		return core.NewDomainError(core.ModuleEmbedding, core.ErrorCodeUnavailable, "embedding: mock failure")
	}
	for _, frag := range m.FailTexts {
		if frag != "" && strings.Contains(text, frag) {
			return core.NewDomainError(core.ModuleEmbedding, core.ErrorCodeUnavailable, "embedding: mock failure for "+frag)
		}
	}
	return nil
}

// encode 把每个词 hash 到一个维度上累加，再做 L2 归一化。
func (m *Mock) encode(text string) []float64 {
	dim := m.Dimensions()
	vec := make([]float64, dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%dim] += 1
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func (m *Mock) Close() error { return nil }

var _ core.Embedder = (*Mock)(nil)
