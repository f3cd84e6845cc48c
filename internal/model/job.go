package model

import (
	"encoding/json"
	"time"
)

// JobKind 任务类型
type JobKind string

const (
	KindVideoAnalysis   JobKind = "video_analysis"
	KindCommentAnalysis JobKind = "comment_analysis"
	KindDatasetUpload   JobKind = "dataset_upload"
)

// JobStatus 任务状态，单向流转，终态不再变化
type JobStatus string

const (
	StatusSubmitting JobStatus = "submitting"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusTimedOut   JobStatus = "timed_out"
)

// Terminal 是否为终态
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimedOut
}

// Job 一次已提交的异步分析任务
//
// 不变式：终态时 Result 与 ErrorMessage 恰好有一个被填充；
// 非终态时两者都为空。Progress 只增不减（服务端回退会被钳制）。
type Job struct {
	Kind         JobKind         `json:"kind"`
	TaskID       string          `json:"task_id"`
	Status       JobStatus       `json:"status"`
	Progress     float64         `json:"progress"`
	PhaseLabel   string          `json:"phase_label,omitempty"`
	Attempts     int             `json:"attempts"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewJob 创建初始状态的任务
func NewJob(kind JobKind) *Job {
	return &Job{
		Kind:      kind,
		Status:    StatusSubmitting,
		CreatedAt: time.Now(),
	}
}

// Snapshot 返回只读副本，供观察者使用
func (j *Job) Snapshot() Job {
	cp := *j
	if j.Result != nil {
		cp.Result = append(json.RawMessage(nil), j.Result...)
	}
	return cp
}

// UploadBatch 数据集上传任务：一个产品名加一组图片文件
type UploadBatch struct {
	ProductName string
	Files       []UploadFile
}

// UploadFile 待上传的单个文件（已落盘到临时目录）
type UploadFile struct {
	Name string
	Path string
	Size int64
}

// JobRecord 终态任务的本地记录，用于本地历史查询
type JobRecord struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	TaskID       string    `gorm:"size:64;not null;uniqueIndex" json:"task_id"`
	Kind         string    `gorm:"size:32;not null;index" json:"kind"`
	Status       string    `gorm:"size:20;not null" json:"status"`
	Progress     float64   `json:"progress"`
	Attempts     int       `json:"attempts"`
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`
	ProductName  string    `gorm:"size:200" json:"product_name,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

func (JobRecord) TableName() string {
	return "job_records"
}
