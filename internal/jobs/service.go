package jobs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/qs3c/insight_go_client/config"
	"github.com/qs3c/insight_go_client/internal/backend"
	"github.com/qs3c/insight_go_client/internal/model"
	"github.com/qs3c/insight_go_client/internal/model/dto"
	"github.com/qs3c/insight_go_client/internal/pkg/queue"
	"github.com/qs3c/insight_go_client/internal/repository"
)

// 客户端校验错误，任何一个命中都不会发起网络调用
var (
	ErrVideoTooLarge       = fmt.Errorf("File size exceeds the 100MB limit")
	ErrNotVideo            = fmt.Errorf("Please upload a video file (MP4, MOV)")
	ErrProductNameRequired = fmt.Errorf("Product name is required")
	ErrNoFiles             = fmt.Errorf("At least one image file is required")
)

// Service 任务提交服务
//
// 负责客户端校验、向后端提交、把跟踪任务推入队列，并维护取消注册表：
// 同类任务再次提交时取消上一个任务的轮询，而不是让旧循环默默跑完。
type Service struct {
	client  *backend.Client
	queue   *queue.Queue
	store   *Store
	records *repository.JobRecordRepository
	cfg     *config.Config

	mu       sync.Mutex
	cancels  map[model.JobKind]context.CancelFunc
	live     map[model.JobKind]string
	contexts map[string]context.Context
}

func NewService(
	client *backend.Client,
	trackQueue *queue.Queue,
	store *Store,
	records *repository.JobRecordRepository,
	cfg *config.Config,
) *Service {
	return &Service{
		client:   client,
		queue:    trackQueue,
		store:    store,
		records:  records,
		cfg:      cfg,
		cancels:  make(map[model.JobKind]context.CancelFunc),
		live:     make(map[model.JobKind]string),
		contexts: make(map[string]context.Context),
	}
}

// ValidateVideo 视频提交前的客户端校验
func (s *Service) ValidateVideo(size int64, contentType string) error {
	if size > s.cfg.Upload.MaxVideoSize {
		return ErrVideoTooLarge
	}
	if !strings.Contains(contentType, "video") {
		return ErrNotVideo
	}
	return nil
}

// ValidateBatch 数据集提交前的客户端校验
func (s *Service) ValidateBatch(batch *model.UploadBatch) error {
	if strings.TrimSpace(batch.ProductName) == "" {
		return ErrProductNameRequired
	}
	if len(batch.Files) == 0 {
		return ErrNoFiles
	}
	return nil
}

// SubmitVideo 提交视频分析任务并开始跟踪
func (s *Service) SubmitVideo(ctx context.Context, filename string, video io.Reader) (*model.Job, error) {
	job := model.NewJob(model.KindVideoAnalysis)

	taskID, err := s.client.SubmitVideo(ctx, filename, video)
	if err != nil {
		s.recordSubmitFailure(job, err)
		return nil, err
	}

	job.TaskID = taskID
	return job, s.beginTracking(ctx, job, "")
}

// SubmitDataset 提交产品数据集上传任务并开始跟踪
func (s *Service) SubmitDataset(ctx context.Context, batch *model.UploadBatch) (*model.Job, error) {
	if err := s.ValidateBatch(batch); err != nil {
		return nil, err
	}

	job := model.NewJob(model.KindDatasetUpload)

	resp, err := s.client.SubmitDataset(ctx, batch)
	if err != nil {
		s.recordSubmitFailure(job, err)
		return nil, err
	}

	job.TaskID = resp.TaskID
	return job, s.beginTracking(ctx, job, batch.ProductName)
}

// AnalyzeComments 评论分析：同步接口，没有轮询阶段
//
// 仍然产出一条任务记录，保证三类入口共用同一份历史。
func (s *Service) AnalyzeComments(ctx context.Context, req *dto.AnalyzeCommentsRequest) (*dto.CommentAnalysisResult, error) {
	limit := req.ResultsLimit
	if limit <= 0 {
		limit = 100
	}

	job := model.NewJob(model.KindCommentAnalysis)
	job.TaskID = localTaskID()

	result, err := s.client.AnalyzeComments(ctx, &dto.CommentAnalysisRequest{
		URL:          req.URL,
		ResultsLimit: limit,
	})
	if err != nil {
		job.Status = model.StatusFailed
		job.ErrorMessage = err.Error()
		s.saveRecord(job, "")
		return nil, err
	}

	job.Status = model.StatusCompleted
	job.Progress = 100
	s.saveRecord(job, "")
	return result, nil
}

// Job 读取在途任务快照
func (s *Service) Job(taskID string) (model.Job, bool) {
	return s.store.Get(taskID)
}

// Records 最近的终态任务记录
func (s *Service) Records(limit int) ([]*model.JobRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.records.List(limit)
}

// TrackingContext 跟踪器取任务对应的轮询上下文
func (s *Service) TrackingContext(taskID string) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx, ok := s.contexts[taskID]; ok {
		return ctx
	}
	return context.Background()
}

// EndTracking 任务到达终态后清理注册表
func (s *Service) EndTracking(kind model.JobKind, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.contexts, taskID)
	if s.live[kind] == taskID {
		delete(s.live, kind)
		delete(s.cancels, kind)
	}
}

// beginTracking 注册取消令牌并把任务推入跟踪队列
//
// 同类任务已有在途轮询时先取消它，再登记新任务。
func (s *Service) beginTracking(ctx context.Context, job *model.Job, productName string) error {
	s.mu.Lock()
	if cancel, ok := s.cancels[job.Kind]; ok {
		log.Printf("Job %s: superseded by new %s submission", s.live[job.Kind], job.Kind)
		cancel()
	}
	trackCtx, cancel := context.WithCancel(context.Background())
	s.cancels[job.Kind] = cancel
	s.live[job.Kind] = job.TaskID
	s.contexts[job.TaskID] = trackCtx
	s.mu.Unlock()

	job.Status = model.StatusProcessing
	s.store.Put(job.Snapshot())

	err := s.queue.Push(ctx, &queue.TrackMessage{
		TaskID:      job.TaskID,
		Kind:        string(job.Kind),
		ProductName: productName,
	})
	if err != nil {
		s.EndTracking(job.Kind, job.TaskID)
		cancel()
		s.store.Delete(job.TaskID)
		return fmt.Errorf("failed to enqueue tracking task: %w", err)
	}
	return nil
}

// recordSubmitFailure 提交即失败的任务也进历史
func (s *Service) recordSubmitFailure(job *model.Job, err error) {
	job.TaskID = localTaskID()
	job.Status = model.StatusFailed
	job.ErrorMessage = err.Error()
	s.saveRecord(job, "")
}

func (s *Service) saveRecord(job *model.Job, productName string) {
	record := &model.JobRecord{
		TaskID:       job.TaskID,
		Kind:         string(job.Kind),
		Status:       string(job.Status),
		Progress:     job.Progress,
		Attempts:     job.Attempts,
		ErrorMessage: job.ErrorMessage,
		ProductName:  productName,
		CreatedAt:    job.CreatedAt,
		FinishedAt:   time.Now(),
	}
	if err := s.records.Create(record); err != nil {
		log.Printf("Failed to save job record %s: %v", job.TaskID, err)
	}
}

func localTaskID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("local-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
