package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rushteam/projecthub/core"
)

// HTTPEmbedder 是外部 embedding 服务的 HTTP 客户端。
//
// 服务协议（sentence-transformers 服务，all-MiniLM-L6-v2，384 维）：
//   - POST {endpoint}/embed  请求 {"texts": [...], "normalize": true}
//     响应 {"embeddings": [[...]], "model": "...", "dimensions": 384}
//   - GET  {endpoint}/health 响应 {"status": "healthy", "model": "...", "model_loaded": true}
//   - 单次请求最多 100 条文本，超出由客户端分批
//
// 工程特征：
//   - 每次调用带超时（默认 5s）
//   - 有限重试 + 指数退避（默认 2 次，200ms/400ms）
//   - 重试耗尽返回 UNAVAILABLE 领域错误；上层据此走降级路径，不向调用方抛错
type HTTPEmbedder struct {
	// Endpoint 服务端点，例如 "http://localhost:8001"
	Endpoint string

	// Model 模型标识（用于缓存失效），默认 "all-MiniLM-L6-v2"
	Model string

	// Dim 向量维度，默认 384
	Dim int

	// Normalize 是否由服务端归一化向量（推荐，余弦相似度场景）
	Normalize bool

	// Timeout 单次调用超时
	Timeout time.Duration

	// MaxRetries 失败后的重试次数
	MaxRetries int

	// RetryBackoff 首次重试的退避时间，之后指数增长
	RetryBackoff time.Duration

	// MaxBatchSize 单次请求的文本数上限（服务端限制 100）
	MaxBatchSize int

	httpClient *http.Client
}

// HTTPOption 配置选项。
type HTTPOption func(*HTTPEmbedder)

func WithTimeout(d time.Duration) HTTPOption {
	return func(e *HTTPEmbedder) { e.Timeout = d }
}

func WithRetries(n int, backoff time.Duration) HTTPOption {
	return func(e *HTTPEmbedder) {
		e.MaxRetries = n
		e.RetryBackoff = backoff
	}
}

func WithModel(model string, dim int) HTTPOption {
	return func(e *HTTPEmbedder) {
		e.Model = model
		e.Dim = dim
	}
}

func WithNormalize(normalize bool) HTTPOption {
	return func(e *HTTPEmbedder) { e.Normalize = normalize }
}

// NewHTTPEmbedder 创建 embedding 服务客户端。
func NewHTTPEmbedder(endpoint string, opts ...HTTPOption) *HTTPEmbedder {
	e := &HTTPEmbedder{
		Endpoint:     endpoint,
		Model:        "all-MiniLM-L6-v2",
		Dim:          384,
		Normalize:    true,
		Timeout:      5 * time.Second,
		MaxRetries:   2,
		RetryBackoff: 200 * time.Millisecond,
		MaxBatchSize: 100,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.httpClient = &http.Client{Timeout: e.Timeout}
	return e
}

func (e *HTTPEmbedder) Name() string         { return "embedding.http" }
func (e *HTTPEmbedder) ModelVersion() string { return e.Model }
func (e *HTTPEmbedder) Dimensions() int      { return e.Dim }

type embedRequest struct {
	Texts     []string `json:"texts"`
	Normalize bool     `json:"normalize"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Model      string      `json:"model"`
	Dimensions int         `json:"dimensions"`
}

// HealthStatus 是 /health 的响应。
type HealthStatus struct {
	Status      string `json:"status"`
	Model       string `json:"model"`
	ModelLoaded bool   `json:"model_loaded"`
}

// EmbedText 将单个文本编码为向量。
func (e *HTTPEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, core.NewDomainError(core.ModuleEmbedding, core.ErrorCodeUnavailable, "embedding: empty response")
	}
	return vectors[0], nil
}

// EmbedTexts 批量编码文本为向量。超出服务端批量上限时自动分批。
func (e *HTTPEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	batch := e.MaxBatchSize
	if batch <= 0 {
		batch = 100
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += batch {
		end := start + batch
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// embedBatch 调用一次 /embed，失败时按退避策略重试。
func (e *HTTPEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	var lastErr error
	backoff := e.RetryBackoff

	for attempt := 0; attempt <= e.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, core.NewDomainError(core.ModuleEmbedding, core.ErrorCodeUnavailable,
					fmt.Sprintf("embedding: cancelled while retrying: %v", ctx.Err()))
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		vectors, err := e.doEmbed(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
	}

	return nil, core.NewDomainError(core.ModuleEmbedding, core.ErrorCodeUnavailable,
		fmt.Sprintf("embedding: service unavailable after %d retries: %v", e.MaxRetries, lastErr))
}

func (e *HTTPEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(&embedRequest{Texts: texts, Normalize: e.Normalize})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	callCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, e.Endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("http status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var er embedResponse
	if err := json.Unmarshal(data, &er); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if len(er.Embeddings) != len(texts) {
		return nil, fmt.Errorf("vector count mismatch: expected %d, got %d", len(texts), len(er.Embeddings))
	}
	return er.Embeddings, nil
}

// Health 查询服务健康状态。
func (e *HTTPEmbedder) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.Endpoint+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleEmbedding, core.ErrorCodeUnavailable,
			fmt.Sprintf("embedding: health check failed: %v", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var hs HealthStatus
	if err := json.Unmarshal(data, &hs); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &hs, nil
}

func (e *HTTPEmbedder) Close() error { return nil }

var _ core.Embedder = (*HTTPEmbedder)(nil)
