package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/rushteam/projecthub/core"
)

// MemoryVectorStore 是内存实现的向量检索，平替 Milvus 等向量数据库。
// 项目目录通常在千级规模，进程内余弦检索足够支撑"更多类似项目"。
//
// 特点：
//   - 纯内存实现，进程重启后数据丢失（由向量索引在生成时回填）
//   - 余弦相似度检索，结果确定性排序（分数相同按 ID 升序）
//   - 线程安全
type MemoryVectorStore struct {
	mu          sync.RWMutex
	collections map[string]map[string][]float64 // collection -> id -> vector
}

func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{
		collections: make(map[string]map[string][]float64),
	}
}

func (m *MemoryVectorStore) Name() string { return "memory_vector" }

// Upsert 实现 core.VectorIndexer 接口。
func (m *MemoryVectorStore) Upsert(ctx context.Context, collection, id string, vector []float64) error {
	if collection == "" || id == "" || len(vector) == 0 {
		return core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector upsert: collection, id and vector are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[collection]
	if !ok {
		col = make(map[string][]float64)
		m.collections[collection] = col
	}
	cp := make([]float64, len(vector))
	copy(cp, vector)
	col[id] = cp
	return nil
}

// Remove 实现 core.VectorIndexer 接口。
func (m *MemoryVectorStore) Remove(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if col, ok := m.collections[collection]; ok {
		delete(col, id)
	}
	return nil
}

// Search 实现 core.VectorSearcher 接口。
func (m *MemoryVectorStore) Search(ctx context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	if req == nil || len(req.Vector) == 0 {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeInvalidInput, "vector search: query vector is required")
	}
	return m.search(req.Collection, req.Vector, "", req.TopK, req.MinScore), nil
}

// SimilarTo 实现 core.VectorSearcher 接口：按已入库的 ID 检索相似项，不含自身。
func (m *MemoryVectorStore) SimilarTo(ctx context.Context, collection, id string, topK int) (*core.VectorSearchResult, error) {
	m.mu.RLock()
	col, ok := m.collections[collection]
	var query []float64
	if ok {
		query = col[id]
	}
	m.mu.RUnlock()

	if len(query) == 0 {
		return nil, core.NewDomainError(core.ModuleVector, core.ErrorCodeNotFound, "vector search: id not indexed: "+id)
	}
	return m.search(collection, query, id, topK, 0), nil
}

func (m *MemoryVectorStore) search(collection string, query []float64, excludeID string, topK int, minScore float64) *core.VectorSearchResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[collection]
	if !ok {
		return &core.VectorSearchResult{Items: []core.VectorSearchItem{}}
	}

	items := make([]core.VectorSearchItem, 0, len(col))
	for id, vec := range col {
		if id == excludeID {
			continue
		}
		score := cosine(query, vec)
		if score < 0 {
			score = 0
		}
		if minScore > 0 && score < minScore {
			continue
		}
		items = append(items, core.VectorSearchItem{ID: id, Score: score})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})

	if topK > 0 && len(items) > topK {
		items = items[:topK]
	}
	return &core.VectorSearchResult{Items: items}
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ core.VectorSearcher = (*MemoryVectorStore)(nil)
var _ core.VectorIndexer = (*MemoryVectorStore)(nil)
