package dto

// AnalyzeCommentsRequest 网关评论分析请求
type AnalyzeCommentsRequest struct {
	URL          string `json:"url" binding:"required"`
	ResultsLimit int    `json:"results_limit"`
}

// SubmitJobResponse 提交任务后的确认
type SubmitJobResponse struct {
	TaskID string `json:"task_id"`
	Kind   string `json:"kind"`
}
