package core

import "time"

// Difficulty 是项目/学生偏好的难度等级。
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Level 返回难度的序数（beginner=1 … advanced=3），未知难度返回 0。
func (d Difficulty) Level() int {
	switch d {
	case DifficultyBeginner:
		return 1
	case DifficultyIntermediate:
		return 2
	case DifficultyAdvanced:
		return 3
	default:
		return 0
	}
}

// Valid 检查难度取值是否合法（空值视为"未设置"，也是合法的）。
func (d Difficulty) Valid() bool {
	switch d {
	case "", DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// ExceedsBy 返回 d 超出 pref 的等级数；pref 未设置时返回 0（不惩罚）。
func (d Difficulty) ExceedsBy(pref Difficulty) int {
	if pref.Level() == 0 || d.Level() == 0 {
		return 0
	}
	n := d.Level() - pref.Level()
	if n < 0 {
		return 0
	}
	return n
}

// ProfileSnapshot 是学生画像在一次推荐生成时刻的不可变快照。
// 每次生成都重新获取快照；已生成的结果持有当时的快照用于解释。
type ProfileSnapshot struct {
	StudentID           string     `json:"student_id"`
	Skills              []string   `json:"skills"`
	Interests           []string   `json:"interests"`
	Specializations     []string   `json:"specializations"`
	PreferredDifficulty Difficulty `json:"preferred_difficulty,omitempty"`

	// InterestWeights 是可选的加权兴趣（特征库回填），key 为兴趣名，value 为权重 0-1。
	InterestWeights map[string]float64 `json:"interest_weights,omitempty"`

	// Completeness 画像完整度 [0,1]，由引擎在快照时计算。
	Completeness float64   `json:"completeness"`
	SnapshotAt   time.Time `json:"snapshot_at"`
}

// HasSpecialization 检查快照中是否包含某个偏好方向。
func (p *ProfileSnapshot) HasSpecialization(spec string) bool {
	for _, s := range p.Specializations {
		if s == spec {
			return true
		}
	}
	return false
}
