package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/qs3c/insight_go_client/config"
	"github.com/qs3c/insight_go_client/internal/model"
	"github.com/qs3c/insight_go_client/internal/model/dto"
)

// Client 分析后端的 HTTP 客户端，所有出站调用都经过这里
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

func NewClient(cfg *config.BackendConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		userID:  cfg.UserID,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// SubmitVideo 提交视频分析任务，返回 task_id
// POST /analyze-video
func (c *Client) SubmitVideo(ctx context.Context, filename string, video io.Reader) (string, error) {
	parts := []filePart{{field: "video", filename: filename, reader: video}}
	resp, err := c.submitMultipart(ctx, c.baseURL+"/analyze-video", nil, parts)
	if err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		return "", &SubmissionError{Err: fmt.Errorf("malformed response: missing task_id")}
	}
	return resp.TaskID, nil
}

// VideoStatus 查询视频分析任务状态
// GET /analysis-status/{task_id}
func (c *Client) VideoStatus(ctx context.Context, taskID string) (*dto.TaskStatus, error) {
	var status dto.TaskStatus
	if err := c.getStatus(ctx, "/analysis-status/"+url.PathEscape(taskID), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// AnalyzeComments 评论分析（同步接口，无轮询）
// POST /analyze
func (c *Client) AnalyzeComments(ctx context.Context, req *dto.CommentAnalysisRequest) (*dto.CommentAnalysisResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &SubmissionError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, &SubmissionError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &SubmissionError{Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SubmissionError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result dto.CommentAnalysisResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &SubmissionError{Err: fmt.Errorf("malformed response: %w", err)}
	}
	return &result, nil
}

// SubmitDataset 提交产品数据集上传任务
// POST /upload
func (c *Client) SubmitDataset(ctx context.Context, batch *model.UploadBatch) (*dto.SubmitTaskResponse, error) {
	fields := map[string]string{
		"product_name": batch.ProductName,
		"user_id":      c.userID,
	}

	parts := make([]filePart, 0, len(batch.Files))
	closers := make([]io.Closer, 0, len(batch.Files))
	defer func() {
		for _, cl := range closers {
			cl.Close()
		}
	}()

	for _, f := range batch.Files {
		file, err := os.Open(f.Path)
		if err != nil {
			return nil, &SubmissionError{Err: fmt.Errorf("failed to open %s: %w", f.Name, err)}
		}
		closers = append(closers, file)
		parts = append(parts, filePart{field: "files", filename: f.Name, reader: file})
	}

	resp, err := c.submitMultipart(ctx, c.baseURL+"/upload", fields, parts)
	if err != nil {
		return nil, err
	}
	if resp.TaskID == "" {
		return nil, &SubmissionError{Err: fmt.Errorf("malformed response: missing task_id")}
	}
	return resp, nil
}

// UploadStatus 查询数据集上传任务状态
// GET /upload/status/{task_id}
func (c *Client) UploadStatus(ctx context.Context, taskID string) (*dto.TaskStatus, error) {
	var status dto.TaskStatus
	if err := c.getStatus(ctx, "/upload/status/"+url.PathEscape(taskID), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListProducts 获取产品列表
// GET /products?user_id=
func (c *Client) ListProducts(ctx context.Context) (*dto.ProductListResponse, error) {
	var result dto.ProductListResponse
	if err := c.getJSON(ctx, "/products", c.userQuery(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetProduct 获取单个产品的图片列表
// GET /products/{name}?user_id=
func (c *Client) GetProduct(ctx context.Context, name string) (*dto.ProductImagesResponse, error) {
	var result dto.ProductImagesResponse
	if err := c.getJSON(ctx, "/products/"+url.PathEscape(name), c.userQuery(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteProduct 删除产品及其数据集
// DELETE /products/{name}?user_id=
func (c *Client) DeleteProduct(ctx context.Context, name string) error {
	u := c.baseURL + "/products/" + url.PathEscape(name) + "?user_id=" + url.QueryEscape(c.userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to delete product: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// ListAnalyses 获取历史分析列表
// GET /storage/analyses
func (c *Client) ListAnalyses(ctx context.Context) (*dto.AnalysisListResponse, error) {
	var result dto.AnalysisListResponse
	if err := c.getJSON(ctx, "/storage/analyses", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAnalysis 获取单次分析的完整结果
// GET /storage/analysis/{id}
func (c *Client) GetAnalysis(ctx context.Context, id string) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.getJSON(ctx, "/storage/analysis/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

type filePart struct {
	field    string
	filename string
	reader   io.Reader
}

// submitMultipart 以 multipart 形式提交，流式写入避免大文件驻留内存
func (c *Client) submitMultipart(ctx context.Context, url string, fields map[string]string, parts []filePart) (*dto.SubmitTaskResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		for key, value := range fields {
			if err := mw.WriteField(key, value); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		for _, part := range parts {
			fw, err := mw.CreateFormFile(part.field, part.filename)
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			if _, err := io.Copy(fw, part.reader); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return nil, &SubmissionError{Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SubmissionError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SubmissionError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result dto.SubmitTaskResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &SubmissionError{Err: fmt.Errorf("malformed response: %w", err)}
	}
	return &result, nil
}

// getStatus 状态查询，失败统一包装为 PollError
func (c *Client) getStatus(ctx context.Context, path string, out *dto.TaskStatus) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &PollError{Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &PollError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &PollError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &PollError{Err: fmt.Errorf("malformed response: %w", err)}
	}
	return nil
}

func (c *Client) userQuery() url.Values {
	return url.Values{"user_id": []string{c.userID}}
}

// getJSON 普通读取接口
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to get %s: HTTP %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
