package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/insight_go_client/config"
	"github.com/qs3c/insight_go_client/internal/backend"
	"github.com/qs3c/insight_go_client/internal/jobs"
	"github.com/qs3c/insight_go_client/internal/model"
	"github.com/qs3c/insight_go_client/internal/model/dto"
	"github.com/qs3c/insight_go_client/internal/pkg/response"
)

type ProductHandler struct {
	jobService *jobs.Service
	client     *backend.Client
	cfg        *config.Config
}

func NewProductHandler(jobService *jobs.Service, client *backend.Client, cfg *config.Config) *ProductHandler {
	return &ProductHandler{
		jobService: jobService,
		client:     client,
		cfg:        cfg,
	}
}

// Upload 上传产品数据集
// POST /api/v1/products
func (h *ProductHandler) Upload(c *gin.Context) {
	productName := c.PostForm("product_name")

	form, err := c.MultipartForm()
	if err != nil {
		response.ParamError(c, "Invalid upload form")
		return
	}
	files := form.File["files"]

	batch := &model.UploadBatch{ProductName: productName}
	if len(files) > 0 {
		// 先整体校验，再落盘
		for _, fh := range files {
			if fh.Size > h.cfg.Upload.MaxImageSize {
				response.ParamError(c, fmt.Sprintf("Image %s exceeds the 10MB limit", fh.Filename))
				return
			}
		}
	}

	// 校验通过前不碰网络；名称和文件数由服务侧校验
	if err := h.jobService.ValidateBatch(&model.UploadBatch{ProductName: productName, Files: make([]model.UploadFile, len(files))}); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	// 落盘到临时批次目录，提交后即删，崩溃残留由定时清理兜底
	batchDir, err := os.MkdirTemp(h.cfg.Upload.TempDir, "batch-*")
	if err != nil {
		response.ServerError(c, "Failed to save uploaded files")
		return
	}
	defer os.RemoveAll(batchDir)

	for _, fh := range files {
		dest := filepath.Join(batchDir, filepath.Base(fh.Filename))
		if err := saveUploadedFile(fh, dest); err != nil {
			response.ServerError(c, "Failed to save uploaded files")
			return
		}
		batch.Files = append(batch.Files, model.UploadFile{
			Name: fh.Filename,
			Path: dest,
			Size: fh.Size,
		})
	}

	job, err := h.jobService.SubmitDataset(c.Request.Context(), batch)
	if err != nil {
		var subErr *backend.SubmissionError
		if errors.As(err, &subErr) {
			response.UpstreamError(c, subErr.Error())
		} else {
			response.ParamError(c, err.Error())
		}
		return
	}

	response.Success(c, dto.SubmitJobResponse{
		TaskID: job.TaskID,
		Kind:   string(job.Kind),
	})
}

// List 产品列表
// GET /api/v1/products
func (h *ProductHandler) List(c *gin.Context) {
	result, err := h.client.ListProducts(c.Request.Context())
	if err != nil {
		response.UpstreamError(c, err.Error())
		return
	}
	response.Success(c, result)
}

// Get 单个产品的图片列表
// GET /api/v1/products/:name
func (h *ProductHandler) Get(c *gin.Context) {
	result, err := h.client.GetProduct(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.UpstreamError(c, err.Error())
		return
	}
	response.Success(c, result)
}

// Delete 删除产品
// DELETE /api/v1/products/:name
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.client.DeleteProduct(c.Request.Context(), c.Param("name")); err != nil {
		response.UpstreamError(c, err.Error())
		return
	}
	response.Success(c, nil)
}

func saveUploadedFile(fh *multipart.FileHeader, dest string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
