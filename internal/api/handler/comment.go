package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/insight_go_client/internal/backend"
	"github.com/qs3c/insight_go_client/internal/jobs"
	"github.com/qs3c/insight_go_client/internal/model/dto"
	"github.com/qs3c/insight_go_client/internal/pkg/response"
)

type CommentHandler struct {
	jobService *jobs.Service
}

func NewCommentHandler(jobService *jobs.Service) *CommentHandler {
	return &CommentHandler{jobService: jobService}
}

// Analyze 评论分析（同步透传，无轮询）
// POST /api/v1/comments/analyze
func (h *CommentHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzeCommentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "Post URL is required")
		return
	}

	result, err := h.jobService.AnalyzeComments(c.Request.Context(), &req)
	if err != nil {
		var subErr *backend.SubmissionError
		if errors.As(err, &subErr) {
			response.UpstreamError(c, subErr.Error())
		} else {
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, result)
}
