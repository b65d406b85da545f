package core

import (
	"context"
	"time"
)

// Embedder 是文本向量化服务的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（embedding）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//
// 使用场景：
//   - 画像向量化：学生技能/兴趣/方向 → 向量
//   - 项目向量化：标题/摘要/标签 → 向量
//
// 实现：
//   - embedding.HTTPEmbedder 调用外部 embedding 服务
//   - embedding.Mock 确定性测试实现
//
// 注意：调用可能超时或失败；上层必须把"拿不到向量"当作降级信号，
// 而不是致命错误（见 vectorize 包）。
type Embedder interface {
	// Name 返回实现名称（用于日志/解释）。
	Name() string

	// ModelVersion 返回底层模型版本，版本变化会使已缓存向量失效。
	ModelVersion() string

	// Dimensions 返回向量维度。
	Dimensions() int

	// EmbedText 将单个文本编码为向量。
	EmbedText(ctx context.Context, text string) ([]float64, error)

	// EmbedTexts 批量编码文本为向量，返回与输入等长的向量列表。
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)

	// Close 关闭连接/释放资源。
	Close() error
}

// OwnerKind 标识向量归属的实体类型。
type OwnerKind string

const (
	OwnerProfile OwnerKind = "profile"
	OwnerProject OwnerKind = "project"
)

// EmbeddingVector 是一条已计算的向量及其来源信息。
// 由创建它的 Vectorizer/Index 持有；底层文本或模型版本变化时重算。
type EmbeddingVector struct {
	OwnerID      string    `json:"owner_id"`
	OwnerKind    OwnerKind `json:"owner_kind"`
	ContentHash  string    `json:"content_hash"`
	Values       []float64 `json:"values"`
	ModelVersion string    `json:"model_version"`
	ComputedAt   time.Time `json:"computed_at"`
}
