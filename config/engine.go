package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/projecthub/cache"
	"github.com/rushteam/projecthub/core"
	"github.com/rushteam/projecthub/embedding"
	"github.com/rushteam/projecthub/engine"
	"github.com/rushteam/projecthub/explain"
	"github.com/rushteam/projecthub/feast"
	"github.com/rushteam/projecthub/feature"
	"github.com/rushteam/projecthub/feedback"
	"github.com/rushteam/projecthub/rank"
	"github.com/rushteam/projecthub/store"
	"github.com/rushteam/projecthub/vectorize"
)

// EngineConfig 是推荐引擎的完整配置（YAML）。
//
// 示例：
//
//	store:
//	  type: redis
//	  addr: localhost:6379
//	  db: 0
//	embedding:
//	  type: http
//	  endpoint: http://localhost:8001
//	cache:
//	  ttl_hours: 168
//	  wait_timeout_seconds: 10
//	weights:
//	  embedding: 0.7
//	  tag_overlap: 0.3
//	fallback_threshold: 0.5
//	diversity:
//	  step: 0.05
//	  cap: 0.10
//	feast:
//	  endpoint: localhost:6565
//	  project: projecthub
//	  features:
//	    - student_interests:machine-learning
type EngineConfig struct {
	Store struct {
		// Type 存储后端："memory" / "redis"
		Type string `yaml:"type"`
		Addr string `yaml:"addr"`
		DB   int    `yaml:"db"`
	} `yaml:"store"`

	Embedding embedding.Config `yaml:"embedding"`

	Cache struct {
		TTLHours           int `yaml:"ttl_hours"`
		WaitTimeoutSeconds int `yaml:"wait_timeout_seconds"`
	} `yaml:"cache"`

	Weights *rank.Weights `yaml:"weights"`

	// FallbackThreshold 项目向量缺失比例超过该值时整体降级，零值用默认
	FallbackThreshold float64 `yaml:"fallback_threshold"`

	Diversity struct {
		Step float64 `yaml:"step"`
		Cap  float64 `yaml:"cap"`
	} `yaml:"diversity"`

	Feast struct {
		Endpoint string   `yaml:"endpoint"`
		Project  string   `yaml:"project"`
		Features []string `yaml:"features"`
	} `yaml:"feast"`
}

// LoadEngineConfig 从 YAML 文件加载引擎配置。
func LoadEngineConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// BuildEngine 按配置组装推荐引擎。
// 画像与项目目录是调用方的数据源，由参数注入。
func (cfg *EngineConfig) BuildEngine(profiles core.ProfileSource, catalog core.CatalogSource) (*engine.Engine, error) {
	kv, err := cfg.buildStore()
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.New(&cfg.Embedding)
	if err != nil {
		return nil, err
	}

	resultCache := cache.New(kv)
	if cfg.Cache.TTLHours > 0 {
		resultCache.TTL = time.Duration(cfg.Cache.TTLHours) * time.Hour
	}
	if cfg.Cache.WaitTimeoutSeconds > 0 {
		resultCache.WaitTimeout = time.Duration(cfg.Cache.WaitTimeoutSeconds) * time.Second
	}

	vectorStore := store.NewMemoryVectorStore()

	e := engine.New(profiles, catalog, resultCache)
	e.Vectorizer = vectorize.NewProfileVectorizer(embedder, kv)
	e.Index = vectorize.NewProjectIndex(embedder, kv, vectorStore)
	e.Ledger = feedback.NewLedger(resultCache, kv)
	e.Explainer = explain.NewGenerator(resultCache, vectorStore)
	if cfg.Weights != nil {
		e.Weights = *cfg.Weights
	}
	e.FallbackThreshold = cfg.FallbackThreshold
	e.DiversityStep = cfg.Diversity.Step
	e.DiversityCap = cfg.Diversity.Cap

	if cfg.Feast.Endpoint != "" && len(cfg.Feast.Features) > 0 {
		client, err := feast.NewClient(cfg.Feast.Endpoint, cfg.Feast.Project)
		if err != nil {
			return nil, fmt.Errorf("feast client: %w", err)
		}
		e.Enricher = feature.NewProfileEnricher(client, cfg.Feast.Features)
	}

	return e, nil
}

func (cfg *EngineConfig) buildStore() (core.KeyValueStore, error) {
	switch cfg.Store.Type {
	case "redis":
		if cfg.Store.Addr == "" {
			return nil, fmt.Errorf("store: redis addr is required")
		}
		return store.NewRedisStore(cfg.Store.Addr, cfg.Store.DB)
	case "memory", "":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("store: unknown type %q", cfg.Store.Type)
	}
}
