package engine

import (
	"context"
	"time"

	"github.com/qs3c/insight_go_client/internal/model"
	"github.com/qs3c/insight_go_client/internal/model/dto"
)

const (
	DefaultMaxAttempts  = 60
	DefaultPollInterval = 5 * time.Second

	TimeoutMessage   = "Analysis timed out"
	CancelledMessage = "Task tracking cancelled"
)

// StatusFunc 查询一次任务状态，失败时返回 *backend.PollError
type StatusFunc func(ctx context.Context, taskID string) (*dto.TaskStatus, error)

// ProgressFunc 进度观察回调，收到的是只读快照
type ProgressFunc func(snapshot model.Job)

// Options 单类任务的轮询配置
type Options struct {
	MaxAttempts   int
	PollInterval  time.Duration
	Phases        PhaseTable
	FailedMessage string // 服务端未给 message 时的兜底文案
}

// Engine 任务轮询引擎
//
// 驱动一个 Job 从 processing 走到终态。引擎只响应服务端报告的状态，
// 不做任何本地推断；失败一律落在 Job 的终态字段上，不跨越观察者边界抛出。
type Engine struct {
	status StatusFunc
	opts   Options
}

func New(status StatusFunc, opts Options) *Engine {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.FailedMessage == "" {
		opts.FailedMessage = "Analysis failed"
	}
	return &Engine{status: status, opts: opts}
}

// Track 轮询直到终态，返回传入的 Job（已处于终态）
//
// 进度回调经由带缓冲的分发通道投递，慢观察者不会阻塞轮询；
// 返回前会把已产生的事件全部送达，事件保持产生顺序。
// ctx 取消在每次等待点生效，任务记为 failed 并停止后续请求。
func (e *Engine) Track(ctx context.Context, job *model.Job, onProgress ProgressFunc) *model.Job {
	job.Status = model.StatusProcessing

	events := make(chan model.Job, e.opts.MaxAttempts+1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for snapshot := range events {
			if onProgress != nil {
				onProgress(snapshot)
			}
		}
	}()
	defer func() {
		close(events)
		<-done
	}()

	notify := func() {
		select {
		case events <- job.Snapshot():
		default:
			// 缓冲按最大尝试次数预留，正常不会走到这里
		}
	}

	timer := time.NewTimer(e.opts.PollInterval)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for job.Attempts < e.opts.MaxAttempts {
		if ctx.Err() != nil {
			e.fail(job, CancelledMessage)
			return job
		}

		job.Attempts++

		st, err := e.status(ctx, job.TaskID)
		if err != nil {
			// 查询本身失败立即终止，不重试
			e.fail(job, err.Error())
			return job
		}

		if st.Progress != nil {
			// 进度钳制为历史最大值，阶段不回退
			if *st.Progress > job.Progress {
				job.Progress = *st.Progress
				job.PhaseLabel = e.opts.Phases.Label(job.Progress)
			}
			notify()
		}

		switch st.Status {
		case dto.TaskStatusCompleted:
			job.Status = model.StatusCompleted
			job.Result = st.Payload()
			return job
		case dto.TaskStatusFailed:
			message := st.Message
			if message == "" {
				message = e.opts.FailedMessage
			}
			e.fail(job, message)
			return job
		}

		// 非终态，等待下一轮；最后一次尝试后不再等待
		if job.Attempts == e.opts.MaxAttempts {
			break
		}

		timer.Reset(e.opts.PollInterval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			e.fail(job, CancelledMessage)
			return job
		case <-timer.C:
		}
	}

	job.Status = model.StatusTimedOut
	job.ErrorMessage = TimeoutMessage
	return job
}

func (e *Engine) fail(job *model.Job, message string) {
	job.Status = model.StatusFailed
	job.ErrorMessage = message
	job.Result = nil
}
