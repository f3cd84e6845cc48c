package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/insight_go_client/config"
	"github.com/qs3c/insight_go_client/internal/backend"
	"github.com/qs3c/insight_go_client/internal/model"
	"github.com/qs3c/insight_go_client/internal/model/dto"
	"github.com/qs3c/insight_go_client/internal/pkg/queue"
	"github.com/qs3c/insight_go_client/internal/repository"
	"github.com/qs3c/insight_go_client/internal/testutil"
)

func setupService(t *testing.T, backendURL string) (*Service, *queue.Queue, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	trackQueue := queue.NewQueue(rdb, "track_queue")

	db := testutil.SetupTestDB(t)
	records := repository.NewJobRecordRepository(db)

	cfg := &config.Config{}
	cfg.Upload.MaxVideoSize = 100 * 1024 * 1024
	cfg.Upload.MaxImageSize = 10 * 1024 * 1024

	client := backend.NewClient(&config.BackendConfig{
		BaseURL:        backendURL,
		UserID:         "test-user",
		TimeoutSeconds: 5,
	})

	svc := NewService(client, trackQueue, NewStore(), records, cfg)

	cleanup := func() {
		rdb.Close()
		mr.Close()
		testutil.CleanupTestDB(t, db)
	}
	return svc, trackQueue, cleanup
}

func submitBackend(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dto.SubmitTaskResponse{TaskID: "task-1"})
	}))
}

func TestValidateVideo(t *testing.T) {
	svc, _, cleanup := setupService(t, "http://unused")
	defer cleanup()

	assert.NoError(t, svc.ValidateVideo(50*1024*1024, "video/mp4"))
	assert.ErrorIs(t, svc.ValidateVideo(200*1024*1024, "video/mp4"), ErrVideoTooLarge)
	assert.ErrorIs(t, svc.ValidateVideo(1024, "image/png"), ErrNotVideo)
}

func TestValidateBatch(t *testing.T) {
	svc, _, cleanup := setupService(t, "http://unused")
	defer cleanup()

	assert.ErrorIs(t, svc.ValidateBatch(&model.UploadBatch{ProductName: "  "}), ErrProductNameRequired)
	assert.ErrorIs(t, svc.ValidateBatch(&model.UploadBatch{ProductName: "x"}), ErrNoFiles)
	assert.NoError(t, svc.ValidateBatch(&model.UploadBatch{
		ProductName: "x",
		Files:       []model.UploadFile{{Name: "a.jpg"}},
	}))
}

func TestSubmitVideo(t *testing.T) {
	server := submitBackend(t)
	defer server.Close()

	svc, trackQueue, cleanup := setupService(t, server.URL)
	defer cleanup()

	job, err := svc.SubmitVideo(context.Background(), "demo.mp4", strings.NewReader("bytes"))
	require.NoError(t, err)
	assert.Equal(t, "task-1", job.TaskID)
	assert.Equal(t, model.StatusProcessing, job.Status)

	// 快照进入在途存储
	snapshot, ok := svc.Job("task-1")
	require.True(t, ok)
	assert.Equal(t, model.StatusProcessing, snapshot.Status)

	// 跟踪任务已入队
	msg, err := trackQueue.Pop(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "task-1", msg.TaskID)
	assert.Equal(t, string(model.KindVideoAnalysis), msg.Kind)
}

func TestSubmitVideo_BackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail": "unsupported codec"}`))
	}))
	defer server.Close()

	svc, trackQueue, cleanup := setupService(t, server.URL)
	defer cleanup()

	_, err := svc.SubmitVideo(context.Background(), "demo.mp4", strings.NewReader("bytes"))
	require.Error(t, err)
	assert.Equal(t, `{"detail": "unsupported codec"}`, err.Error())

	// 提交失败也要进历史
	records, rerr := svc.Records(10)
	require.NoError(t, rerr)
	require.Len(t, records, 1)
	assert.Equal(t, string(model.StatusFailed), records[0].Status)
	assert.Equal(t, string(model.KindVideoAnalysis), records[0].Kind)

	// 队列里不应有任务
	length, _ := trackQueue.Length(context.Background())
	assert.Equal(t, int64(0), length)
}

func TestSubmitVideo_SupersedesPrevious(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(dto.SubmitTaskResponse{TaskID: "task-" + string(rune('0'+calls))})
	}))
	defer server.Close()

	svc, _, cleanup := setupService(t, server.URL)
	defer cleanup()

	job1, err := svc.SubmitVideo(context.Background(), "a.mp4", strings.NewReader("x"))
	require.NoError(t, err)
	ctx1 := svc.TrackingContext(job1.TaskID)
	require.NoError(t, ctx1.Err())

	// 同类任务再次提交，取消上一个的轮询上下文
	_, err = svc.SubmitVideo(context.Background(), "b.mp4", strings.NewReader("y"))
	require.NoError(t, err)

	select {
	case <-ctx1.Done():
	case <-time.After(time.Second):
		t.Fatal("Previous tracking context was not cancelled")
	}
}

func TestTrackingContext_Unknown(t *testing.T) {
	svc, _, cleanup := setupService(t, "http://unused")
	defer cleanup()

	ctx := svc.TrackingContext("ghost")
	assert.NoError(t, ctx.Err())
}

func TestEndTracking(t *testing.T) {
	server := submitBackend(t)
	defer server.Close()

	svc, _, cleanup := setupService(t, server.URL)
	defer cleanup()

	job, err := svc.SubmitVideo(context.Background(), "demo.mp4", strings.NewReader("x"))
	require.NoError(t, err)

	svc.EndTracking(job.Kind, job.TaskID)

	// 注册表已清理，后续同类提交不会再取消它
	ctx := svc.TrackingContext(job.TaskID)
	assert.NoError(t, ctx.Err())
}

func TestSubmitDataset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "sneaker-x", r.FormValue("product_name"))
		json.NewEncoder(w).Encode(dto.SubmitTaskResponse{TaskID: "upload-1"})
	}))
	defer server.Close()

	svc, trackQueue, cleanup := setupService(t, server.URL)
	defer cleanup()

	dir := t.TempDir()
	img := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(img, []byte("image-bytes"), 0644))

	job, err := svc.SubmitDataset(context.Background(), &model.UploadBatch{
		ProductName: "sneaker-x",
		Files:       []model.UploadFile{{Name: "a.jpg", Path: img, Size: 11}},
	})
	require.NoError(t, err)
	assert.Equal(t, "upload-1", job.TaskID)

	msg, err := trackQueue.Pop(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, string(model.KindDatasetUpload), msg.Kind)
	assert.Equal(t, "sneaker-x", msg.ProductName)
}

func TestSubmitDataset_ValidationFails(t *testing.T) {
	svc, _, cleanup := setupService(t, "http://unused")
	defer cleanup()

	_, err := svc.SubmitDataset(context.Background(), &model.UploadBatch{ProductName: ""})
	assert.ErrorIs(t, err, ErrProductNameRequired)
}

func TestAnalyzeComments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req dto.CommentAnalysisRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 100, req.ResultsLimit) // 默认条数

		json.NewEncoder(w).Encode(dto.CommentAnalysisResult{
			OverallSentiment: "positive",
			TotalComments:    50,
		})
	}))
	defer server.Close()

	svc, _, cleanup := setupService(t, server.URL)
	defer cleanup()

	result, err := svc.AnalyzeComments(context.Background(), &dto.AnalyzeCommentsRequest{
		URL: "https://example.com/p/xyz",
	})
	require.NoError(t, err)
	assert.Equal(t, "positive", result.OverallSentiment)

	// 同步接口也产出终态记录
	records, rerr := svc.Records(10)
	require.NoError(t, rerr)
	require.Len(t, records, 1)
	assert.Equal(t, string(model.StatusCompleted), records[0].Status)
	assert.Equal(t, string(model.KindCommentAnalysis), records[0].Kind)
	assert.Equal(t, float64(100), records[0].Progress)
}

func TestAnalyzeComments_BackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail": "invalid post url"}`))
	}))
	defer server.Close()

	svc, _, cleanup := setupService(t, server.URL)
	defer cleanup()

	_, err := svc.AnalyzeComments(context.Background(), &dto.AnalyzeCommentsRequest{URL: "bad"})
	require.Error(t, err)

	records, rerr := svc.Records(10)
	require.NoError(t, rerr)
	require.Len(t, records, 1)
	assert.Equal(t, string(model.StatusFailed), records[0].Status)
	assert.Equal(t, `{"detail": "invalid post url"}`, records[0].ErrorMessage)
}

func TestRecords_DefaultLimit(t *testing.T) {
	svc, _, cleanup := setupService(t, "http://unused")
	defer cleanup()

	records, err := svc.Records(0)
	require.NoError(t, err)
	assert.Empty(t, records)
}
