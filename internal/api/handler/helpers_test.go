package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/insight_go_client/config"
	"github.com/qs3c/insight_go_client/internal/backend"
	"github.com/qs3c/insight_go_client/internal/jobs"
	"github.com/qs3c/insight_go_client/internal/pkg/queue"
	"github.com/qs3c/insight_go_client/internal/pkg/response"
	"github.com/qs3c/insight_go_client/internal/repository"
	"github.com/qs3c/insight_go_client/internal/testutil"
)

type handlerFixture struct {
	svc     *jobs.Service
	client  *backend.Client
	store   *jobs.Store
	cfg     *config.Config
	cleanup func()
}

func setupHandlerTest(t *testing.T, backendURL string) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	trackQueue := queue.NewQueue(rdb, "track_queue")

	db := testutil.SetupTestDB(t)
	records := repository.NewJobRecordRepository(db)

	cfg := &config.Config{}
	cfg.Upload.MaxVideoSize = 100 * 1024 * 1024
	cfg.Upload.MaxImageSize = 10 * 1024 * 1024
	cfg.Upload.TempDir = t.TempDir()

	client := backend.NewClient(&config.BackendConfig{
		BaseURL:        backendURL,
		UserID:         "test-user",
		TimeoutSeconds: 5,
	})

	store := jobs.NewStore()
	svc := jobs.NewService(client, trackQueue, store, records, cfg)

	return &handlerFixture{
		svc:    svc,
		client: client,
		store:  store,
		cfg:    cfg,
		cleanup: func() {
			rdb.Close()
			mr.Close()
			testutil.CleanupTestDB(t, db)
		},
	}
}

// multipartFile 一个待写入 multipart 请求的文件分片
type multipartFile struct {
	field       string
	filename    string
	contentType string
	content     []byte
}

func newMultipartRequest(t *testing.T, url string, fields map[string]string, files []multipartFile) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for key, value := range fields {
		require.NoError(t, mw.WriteField(key, value))
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.filename))
		if f.contentType != "" {
			header.Set("Content-Type", f.contentType)
		}
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func performJSON(t *testing.T, handler gin.HandlerFunc, req *http.Request) *response.Response {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	handler(c)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}
