package handler

import (
	"errors"
	"io"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/insight_go_client/config"
	"github.com/qs3c/insight_go_client/internal/backend"
	"github.com/qs3c/insight_go_client/internal/jobs"
	"github.com/qs3c/insight_go_client/internal/model/dto"
	"github.com/qs3c/insight_go_client/internal/pkg/response"
)

type VideoHandler struct {
	jobService *jobs.Service
	cfg        *config.Config
}

func NewVideoHandler(jobService *jobs.Service, cfg *config.Config) *VideoHandler {
	return &VideoHandler{
		jobService: jobService,
		cfg:        cfg,
	}
}

// Submit 提交视频分析
// POST /api/v1/videos
func (h *VideoHandler) Submit(c *gin.Context) {
	file, header, err := c.Request.FormFile("video")
	if err != nil {
		response.ParamError(c, "Please upload a video file")
		return
	}
	defer file.Close()

	// 客户端校验先于任何网络调用
	if err := h.jobService.ValidateVideo(header.Size, header.Header.Get("Content-Type")); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	// 先落盘到临时文件，避免把未校验完的流直接推给后端
	tempFile, err := os.CreateTemp(h.cfg.Upload.TempDir, "video-*")
	if err != nil {
		response.ServerError(c, "Failed to save uploaded file")
		return
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	if _, err := io.Copy(tempFile, file); err != nil {
		response.ServerError(c, "Failed to save uploaded file")
		return
	}
	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		response.ServerError(c, "Failed to save uploaded file")
		return
	}

	job, err := h.jobService.SubmitVideo(c.Request.Context(), header.Filename, tempFile)
	if err != nil {
		var subErr *backend.SubmissionError
		if errors.As(err, &subErr) {
			response.UpstreamError(c, subErr.Error())
		} else {
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, dto.SubmitJobResponse{
		TaskID: job.TaskID,
		Kind:   string(job.Kind),
	})
}

// Status 查询在途任务快照
// GET /api/v1/jobs/:task_id
func (h *VideoHandler) Status(c *gin.Context) {
	taskID := c.Param("task_id")

	job, ok := h.jobService.Job(taskID)
	if !ok {
		response.NotFoundError(c, "Task not found")
		return
	}

	response.Success(c, job)
}
