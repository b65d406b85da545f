package core

import "context"

// VectorSearcher 是向量检索的领域接口（"更多类似项目"场景专用）。
//
// 实现：
//   - store.MemoryVectorStore 实现此接口（进程内，项目规模通常在千级）
type VectorSearcher interface {
	// Search 向量搜索，结果按相似度降序。
	Search(ctx context.Context, req *VectorSearchRequest) (*VectorSearchResult, error)

	// SimilarTo 按已入库的项目 ID 检索相似项目（不含自身）。
	SimilarTo(ctx context.Context, collection, id string, topK int) (*VectorSearchResult, error)
}

// VectorIndexer 是向量入库接口，由项目向量索引在计算后回填。
type VectorIndexer interface {
	// Upsert 写入或覆盖一条向量。
	Upsert(ctx context.Context, collection, id string, vector []float64) error

	// Remove 删除一条向量。
	Remove(ctx context.Context, collection, id string) error
}

// VectorSearchRequest 向量搜索请求。
type VectorSearchRequest struct {
	// Collection 集合名称
	Collection string

	// Vector 查询向量
	Vector []float64

	// TopK 返回 TopK 个最相似的结果
	TopK int

	// MinScore 过滤低于该相似度的结果（0 表示不过滤）
	MinScore float64
}

// VectorSearchItem 单个向量搜索结果项。
type VectorSearchItem struct {
	ID    string
	Score float64
}

// VectorSearchResult 向量搜索结果。
type VectorSearchResult struct {
	Items []VectorSearchItem
}
