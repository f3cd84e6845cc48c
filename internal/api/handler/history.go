package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/insight_go_client/internal/backend"
	"github.com/qs3c/insight_go_client/internal/jobs"
	"github.com/qs3c/insight_go_client/internal/pkg/response"
)

type HistoryHandler struct {
	jobService *jobs.Service
	client     *backend.Client
}

func NewHistoryHandler(jobService *jobs.Service, client *backend.Client) *HistoryHandler {
	return &HistoryHandler{
		jobService: jobService,
		client:     client,
	}
}

// List 后端存储的历史分析列表
// GET /api/v1/history
func (h *HistoryHandler) List(c *gin.Context) {
	result, err := h.client.ListAnalyses(c.Request.Context())
	if err != nil {
		response.UpstreamError(c, err.Error())
		return
	}
	response.Success(c, result)
}

// Get 单次分析的完整结果
// GET /api/v1/history/:id
func (h *HistoryHandler) Get(c *gin.Context) {
	result, err := h.client.GetAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.UpstreamError(c, err.Error())
		return
	}
	response.Success(c, result)
}

// Records 本地终态任务记录
// GET /api/v1/records?limit=
func (h *HistoryHandler) Records(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := h.jobService.Records(limit)
	if err != nil {
		response.ServerError(c, "Failed to load job records")
		return
	}
	response.Success(c, records)
}
