package embedding

import (
	"fmt"
	"time"

	"github.com/rushteam/projecthub/core"
)

// Config 是 Embedder 的配置。
type Config struct {
	// Type 实现类型："http" / "mock"
	Type string `yaml:"type" json:"type"`

	// Endpoint HTTP 服务端点（type=http 时必填）
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// Model 模型标识，默认 all-MiniLM-L6-v2
	Model string `yaml:"model" json:"model"`

	// Dimensions 向量维度，默认 384
	Dimensions int `yaml:"dimensions" json:"dimensions"`

	// Normalize 是否归一化，默认 true
	Normalize *bool `yaml:"normalize" json:"normalize"`

	// TimeoutMs 单次调用超时（毫秒），默认 5000
	TimeoutMs int `yaml:"timeout_ms" json:"timeout_ms"`

	// MaxRetries 重试次数，默认 2
	MaxRetries *int `yaml:"max_retries" json:"max_retries"`

	// RetryBackoffMs 首次退避（毫秒），默认 200
	RetryBackoffMs int `yaml:"retry_backoff_ms" json:"retry_backoff_ms"`
}

// New 根据配置创建 Embedder。
func New(cfg *Config) (core.Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedding config is nil")
	}

	switch cfg.Type {
	case "mock":
		return NewMock(cfg.Dimensions), nil
	case "http", "":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("embedding endpoint is required for type=http")
		}
		opts := make([]HTTPOption, 0, 4)
		if cfg.Model != "" {
			dim := cfg.Dimensions
			if dim <= 0 {
				dim = 384
			}
			opts = append(opts, WithModel(cfg.Model, dim))
		}
		if cfg.Normalize != nil {
			opts = append(opts, WithNormalize(*cfg.Normalize))
		}
		if cfg.TimeoutMs > 0 {
			opts = append(opts, WithTimeout(time.Duration(cfg.TimeoutMs)*time.Millisecond))
		}
		if cfg.MaxRetries != nil {
			backoff := 200 * time.Millisecond
			if cfg.RetryBackoffMs > 0 {
				backoff = time.Duration(cfg.RetryBackoffMs) * time.Millisecond
			}
			opts = append(opts, WithRetries(*cfg.MaxRetries, backoff))
		}
		return NewHTTPEmbedder(cfg.Endpoint, opts...), nil
	default:
		return nil, fmt.Errorf("unknown embedder type: %s", cfg.Type)
	}
}
