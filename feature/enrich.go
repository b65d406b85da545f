package feature

import (
	"context"
	"strings"
	"time"

	"github.com/rushteam/projecthub/core"
	"github.com/rushteam/projecthub/feast"
	"github.com/rushteam/projecthub/pkg/utils"
)

// ProfileEnricher 在生成前用 Feature Store 的在线特征回填画像快照。
//
// 画像快照来自门户数据库（技能、兴趣、偏好方向），行为类特征
// （兴趣权重）由离线任务写入 Feast，这里在快照上叠加。
//
// 失败语义：特征服务不可用时不阻断生成，仅在请求上下文打
// feature_enrich=failed 标签，快照按原样使用。
type ProfileEnricher struct {
	client feast.Client

	// Features 要取的特征列表；特征名中冒号后的部分作为兴趣名，
	// 例如 "student_interests:machine-learning" -> 兴趣 "machine-learning"。
	Features []string

	// EntityKey 实体键名（默认 "student_id"）
	EntityKey string

	// Timeout 单次取特征的超时（默认 500ms）
	Timeout time.Duration
}

// NewProfileEnricher 创建画像特征回填器。
func NewProfileEnricher(client feast.Client, features []string) *ProfileEnricher {
	return &ProfileEnricher{
		client:    client,
		Features:  features,
		EntityKey: "student_id",
		Timeout:   500 * time.Millisecond,
	}
}

// Enrich 把在线特征合入画像快照的 InterestWeights；软失败。
func (e *ProfileEnricher) Enrich(ctx context.Context, rctx *core.RecommendContext, profile *core.ProfileSnapshot) {
	if e.client == nil || len(e.Features) == 0 || profile == nil {
		return
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entityKey := e.EntityKey
	if entityKey == "" {
		entityKey = "student_id"
	}

	resp, err := e.client.GetOnlineFeatures(ctx, &feast.GetOnlineFeaturesRequest{
		Features:   e.Features,
		EntityRows: []map[string]interface{}{{entityKey: profile.StudentID}},
	})
	if err != nil || len(resp.FeatureVectors) == 0 {
		if rctx != nil {
			rctx.PutLabel("feature_enrich", utils.Label{Value: "failed", Source: "feature"})
		}
		return
	}

	weights := profile.InterestWeights
	if weights == nil {
		weights = make(map[string]float64)
	}
	for name, value := range resp.FeatureVectors[0].Values {
		w, ok := value.(float64)
		if !ok || w < 0 || w > 1 {
			continue
		}
		weights[interestName(name)] = w
	}
	if len(weights) > 0 {
		profile.InterestWeights = weights
		if rctx != nil {
			rctx.PutLabel("feature_enrich", utils.Label{Value: "ok", Source: "feature"})
		}
	}
}

// interestName 取特征名中冒号后的部分作为兴趣名。
func interestName(feature string) string {
	if _, name, ok := strings.Cut(feature, ":"); ok {
		return name
	}
	return feature
}
