package core

import "time"

// FeedbackType 是反馈类型。
type FeedbackType string

const (
	FeedbackLike     FeedbackType = "like"
	FeedbackDislike  FeedbackType = "dislike"
	FeedbackBookmark FeedbackType = "bookmark"
	FeedbackRating   FeedbackType = "rating"
)

// Feedback 是针对某条推荐的用户反馈，只追加不修改。
type Feedback struct {
	ID               string       `json:"id"`
	RecommendationID string       `json:"recommendation_id"`
	ProjectID        string       `json:"project_id"`
	Type             FeedbackType `json:"type"`

	// Rating 仅在 Type=rating 时有效，取值 [1,5]。
	Rating    *float64  `json:"rating,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Warning 非空表示反馈已接受但持久化降级（仅进程内记账）。
	Warning string `json:"warning,omitempty"`
}

// Validate 校验反馈输入；非法输入返回 INVALID_INPUT 领域错误。
func (f *Feedback) Validate() error {
	switch f.Type {
	case FeedbackLike, FeedbackDislike, FeedbackBookmark:
		return nil
	case FeedbackRating:
		if f.Rating == nil {
			return NewDomainError(ModuleFeedback, ErrorCodeInvalidInput, "feedback: rating value is required for type=rating")
		}
		if *f.Rating < 1 || *f.Rating > 5 {
			return NewDomainError(ModuleFeedback, ErrorCodeInvalidInput, "feedback: rating must be within [1,5]")
		}
		return nil
	default:
		return NewDomainError(ModuleFeedback, ErrorCodeInvalidInput, "feedback: unknown type "+string(f.Type))
	}
}
