package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/insight_go_client/internal/model"
)

var fixtureSeq int

// TestRecord 创建一条终态任务记录
func TestRecord(t *testing.T, db *gorm.DB, kind, status string) *model.JobRecord {
	t.Helper()

	fixtureSeq++
	record := &model.JobRecord{
		TaskID:     fmt.Sprintf("task-%d", fixtureSeq),
		Kind:       kind,
		Status:     status,
		Progress:   100,
		Attempts:   5,
		CreatedAt:  time.Now().Add(time.Duration(fixtureSeq) * time.Millisecond),
		FinishedAt: time.Now(),
	}
	if status == string(model.StatusFailed) {
		record.ErrorMessage = "Analysis failed"
		record.Progress = 40
	}

	if err := db.Create(record).Error; err != nil {
		t.Fatalf("Failed to create test record: %v", err)
	}
	return record
}
