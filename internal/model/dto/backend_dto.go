package dto

import "encoding/json"

// 后端任务状态字符串（与 HTTP 契约一致，区别于本地 JobStatus）
const (
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// SubmitTaskResponse 提交任务的响应，两类提交接口都会返回 task_id
type SubmitTaskResponse struct {
	TaskID      string   `json:"task_id"`
	Status      string   `json:"status,omitempty"`
	Progress    *float64 `json:"progress,omitempty"`
	ProductName string   `json:"product_name,omitempty"`
	UserID      string   `json:"user_id,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// TaskStatus 轮询接口的响应
//
// 视频分析接口用 results 携带结果，数据集上传接口用 result，
// 这里同时保留两个字段，取值时用 Payload。
type TaskStatus struct {
	TaskID   string          `json:"task_id,omitempty"`
	Status   string          `json:"status"`
	Progress *float64        `json:"progress,omitempty"`
	Results  json.RawMessage `json:"results,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// Payload 返回结果载荷（completed 时有效）
func (t *TaskStatus) Payload() json.RawMessage {
	if len(t.Results) > 0 {
		return t.Results
	}
	return t.Result
}

// CommentAnalysisRequest 评论分析请求（同步接口）
type CommentAnalysisRequest struct {
	URL          string `json:"url"`
	ResultsLimit int    `json:"results_limit"`
}

// KeywordCount 关键词及出现次数
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// AnalyzedComment 单条评论的分析结果
type AnalyzedComment struct {
	Text          string  `json:"text"`
	OwnerUsername string  `json:"ownerUsername"`
	LikesCount    int     `json:"likesCount,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
	Emotion       string  `json:"emotion,omitempty"`
}

// CommentAnalysisResult 评论分析结果
type CommentAnalysisResult struct {
	OverallSentiment       string             `json:"overall_sentiment"`
	TotalComments          int                `json:"total_comments"`
	PositiveComments       int                `json:"positive_comments"`
	NegativeComments       int                `json:"negative_comments"`
	PositivePercentage     float64            `json:"positive_percentage"`
	NegativePercentage     float64            `json:"negative_percentage"`
	EmotionStats           map[string]float64 `json:"emotion_stats"`
	TopKeywords            []KeywordCount     `json:"top_keywords"`
	MostLikedComment       *AnalyzedComment   `json:"most_liked_comment,omitempty"`
	NegativeCommentsSample []AnalyzedComment  `json:"negative_comments_sample"`
}

// Product 产品数据集概要
type Product struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	ThumbnailURL string `json:"thumbnail_url"`
	ImageCount   int    `json:"image_count"`
}

// ProductListResponse 产品列表响应
type ProductListResponse struct {
	Products []Product `json:"products"`
}

// ProductImage 产品图片详情
type ProductImage struct {
	Key          string `json:"key"`
	URL          string `json:"url"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified"`
	Filename     string `json:"filename"`
}

// ProductImagesResponse 单个产品的图片列表响应
type ProductImagesResponse struct {
	Images []ProductImage `json:"images"`
}

// AnalysisSummary 历史分析概要
type AnalysisSummary struct {
	AnalysisID   string  `json:"analysis_id"`
	Timestamp    string  `json:"timestamp"`
	OverallScore float64 `json:"overall_score"`
}

// AnalysisListResponse 历史分析列表响应
type AnalysisListResponse struct {
	Analyses []AnalysisSummary `json:"analyses"`
}
