package tracker

import (
	"context"
	"log"
	"time"

	"github.com/qs3c/insight_go_client/config"
	"github.com/qs3c/insight_go_client/internal/backend"
	"github.com/qs3c/insight_go_client/internal/engine"
	"github.com/qs3c/insight_go_client/internal/jobs"
	"github.com/qs3c/insight_go_client/internal/model"
	"github.com/qs3c/insight_go_client/internal/pkg/pubsub"
	"github.com/qs3c/insight_go_client/internal/pkg/queue"
	"github.com/qs3c/insight_go_client/internal/repository"
)

// ContextRegistry 按任务取轮询上下文；提交服务持有取消端
type ContextRegistry interface {
	TrackingContext(taskID string) context.Context
	EndTracking(kind model.JobKind, taskID string)
}

// CompleteFunc 任务完成后的回调（数据集上传完成后刷新产品列表等）
type CompleteFunc func(job model.Job, productName string)

// Pool 跟踪工作池
//
// 从队列取出已提交的任务，驱动轮询引擎到终态，沿途发布进度，
// 终态落库。一个任务自始至终只在一个 worker 里处理。
type Pool struct {
	queue      *queue.Queue
	store      *jobs.Store
	records    *repository.JobRecordRepository
	publisher  *pubsub.Publisher
	registry   ContextRegistry
	engines    map[model.JobKind]*engine.Engine
	maxWorkers int
	onComplete CompleteFunc
}

func NewPool(
	client *backend.Client,
	trackQueue *queue.Queue,
	store *jobs.Store,
	records *repository.JobRecordRepository,
	publisher *pubsub.Publisher,
	registry ContextRegistry,
	cfg *config.Config,
) *Pool {
	maxAttempts := cfg.Tracking.MaxAttempts
	interval := cfg.Tracking.PollInterval()

	engines := map[model.JobKind]*engine.Engine{
		model.KindVideoAnalysis: engine.New(client.VideoStatus, engine.Options{
			MaxAttempts:   maxAttempts,
			PollInterval:  interval,
			Phases:        engine.VideoPhases,
			FailedMessage: "Analysis failed",
		}),
		model.KindDatasetUpload: engine.New(client.UploadStatus, engine.Options{
			MaxAttempts:   maxAttempts,
			PollInterval:  interval,
			Phases:        engine.DatasetPhases,
			FailedMessage: "Dataset upload failed",
		}),
	}

	return &Pool{
		queue:      trackQueue,
		store:      store,
		records:    records,
		publisher:  publisher,
		registry:   registry,
		engines:    engines,
		maxWorkers: cfg.Tracking.MaxWorkers,
	}
}

// SetOnComplete 注册完成回调
func (p *Pool) SetOnComplete(fn CompleteFunc) {
	p.onComplete = fn
}

// Run 启动 worker 循环，阻塞直到 ctx 取消
func (p *Pool) Run(ctx context.Context) {
	log.Printf("Tracker pool started, max workers: %d", p.maxWorkers)

	for i := 0; i < p.maxWorkers; i++ {
		go func(workerID int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("Tracker %d shutting down", workerID)
					return
				default:
					msg, err := p.queue.Pop(ctx, 5*time.Second)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						log.Printf("Tracker %d: failed to pop task: %v", workerID, err)
						continue
					}

					if msg == nil {
						continue // 超时，继续等待
					}

					log.Printf("Tracker %d: tracking task %s (%s)", workerID, msg.TaskID, msg.Kind)
					p.track(ctx, msg)
				}
			}
		}(i)
	}

	<-ctx.Done()
	log.Println("Tracker pool shutdown complete")
}

// track 驱动一个任务到终态
func (p *Pool) track(ctx context.Context, msg *queue.TrackMessage) {
	kind := model.JobKind(msg.Kind)
	eng, ok := p.engines[kind]
	if !ok {
		log.Printf("Tracker: unknown job kind %q for task %s", msg.Kind, msg.TaskID)
		return
	}

	job := model.NewJob(kind)
	job.TaskID = msg.TaskID

	trackCtx := p.registry.TrackingContext(msg.TaskID)

	final := eng.Track(trackCtx, job, func(snapshot model.Job) {
		p.store.Put(snapshot)
		p.publish(ctx, snapshot)
	})

	p.store.Put(final.Snapshot())
	p.publish(ctx, final.Snapshot())
	p.saveRecord(final, msg.ProductName)

	if final.Status == model.StatusCompleted && p.onComplete != nil {
		p.onComplete(final.Snapshot(), msg.ProductName)
	}

	p.registry.EndTracking(kind, msg.TaskID)

	log.Printf("Task %s finished: status=%s, attempts=%d", final.TaskID, final.Status, final.Attempts)
}

func (p *Pool) publish(ctx context.Context, snapshot model.Job) {
	err := p.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
		TaskID:   snapshot.TaskID,
		Kind:     string(snapshot.Kind),
		Status:   string(snapshot.Status),
		Progress: snapshot.Progress,
		Phase:    snapshot.PhaseLabel,
		Error:    snapshot.ErrorMessage,
	})
	if err != nil {
		log.Printf("Failed to publish progress for task %s: %v", snapshot.TaskID, err)
	}
}

func (p *Pool) saveRecord(job *model.Job, productName string) {
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
	if err := p.records.Create(record); err != nil {
		log.Printf("Failed to save job record %s: %v", job.TaskID, err)
	}
}
