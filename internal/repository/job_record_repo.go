package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/insight_go_client/internal/model"
)

type JobRecordRepository struct {
	db *gorm.DB
}

func NewJobRecordRepository(db *gorm.DB) *JobRecordRepository {
	return &JobRecordRepository{db: db}
}

func (r *JobRecordRepository) Create(record *model.JobRecord) error {
	return r.db.Create(record).Error
}

func (r *JobRecordRepository) GetByTaskID(taskID string) (*model.JobRecord, error) {
	var record model.JobRecord
	err := r.db.Where("task_id = ?", taskID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List 按创建时间倒序返回最近的记录
func (r *JobRecordRepository) List(limit int) ([]*model.JobRecord, error) {
	var records []*model.JobRecord
	err := r.db.Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// ListByKind 按任务类型过滤
func (r *JobRecordRepository) ListByKind(kind string, limit int) ([]*model.JobRecord, error) {
	var records []*model.JobRecord
	err := r.db.Where("kind = ?", kind).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
