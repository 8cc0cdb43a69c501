package api_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/chunkvault/pkg/api"
	"github.com/yeisme/chunkvault/pkg/configs"
	"github.com/yeisme/chunkvault/pkg/internal/model"
	"github.com/yeisme/chunkvault/pkg/internal/service"
	"github.com/yeisme/chunkvault/pkg/internal/types"
	"github.com/yeisme/chunkvault/pkg/log"
	"github.com/yeisme/chunkvault/pkg/middleware"
	"github.com/yeisme/chunkvault/pkg/scheduler"
)

func init() {
	// log 的懒初始化会把 gin 切到 release 模式，先触发它再设置测试模式.
	log.Init()
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	initiate service.InitiateInput
	record   service.RecordChunkInput
	complete service.CompleteInput
	abort    service.AbortInput

	err    error
	status *service.UploadStatus
}

func (f *fakeService) Initiate(_ context.Context, in service.InitiateInput) (*service.InitiateResult, error) {
	f.initiate = in
	if f.err != nil {
		return nil, f.err
	}

	return &service.InitiateResult{
		UploadID:      "up-1",
		ObjectKey:     "owner/2025/03/" + in.FileID + "/" + in.FileName,
		PartSize:      5,
		PartCount:     2,
		PresignedURLs: []string{"https://s3/p1", "https://s3/p2"},
	}, nil
}

func (f *fakeService) RecordChunk(_ context.Context, in service.RecordChunkInput) error {
	f.record = in
	return f.err
}

func (f *fakeService) Complete(_ context.Context, in service.CompleteInput) error {
	f.complete = in
	return f.err
}

func (f *fakeService) Abort(_ context.Context, in service.AbortInput) error {
	f.abort = in
	return f.err
}

func (f *fakeService) Status(_ context.Context, fileID string) (*service.UploadStatus, error) {
	if f.err != nil {
		return nil, f.err
	}

	if f.status == nil || f.status.File.FileID != fileID {
		return nil, fmt.Errorf("%w: file %s", service.ErrNotFound, fileID)
	}

	return f.status, nil
}

func (f *fakeService) DownloadURL(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	return "https://s3/" + key + "?signed", nil
}

func newEngine(svc *fakeService) *gin.Engine {
	return api.NewEngine(&configs.AppConfig{}, api.Deps{Uploads: svc})
}

func do(t *testing.T, e *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer

	if body != nil {
		data, err := sonic.Marshal(body)
		require.NoError(t, err)
		buf.Write(data)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &out))

	return out
}

func TestInitiate(t *testing.T) {
	svc := &fakeService{}
	e := newEngine(svc)

	w := do(t, e, http.MethodPost, "/api/v1/uploads/initiate", types.InitiateUploadRequest{
		FileID: "f1", FileName: "a.bin", FileType: "application/zip", FileSize: 10,
	}, "X-User", "alice@example.com")

	require.Equal(t, http.StatusOK, w.Code)

	res := decode[types.InitiateUploadResponse](t, w)
	assert.True(t, res.Success)
	assert.Equal(t, "up-1", res.UploadID)
	assert.Len(t, res.PresignedURLs, 2)
	assert.Equal(t, int64(5), res.PartSize)

	assert.Equal(t, "alice@example.com", svc.initiate.OwnerID)
	assert.Equal(t, "application/zip", svc.initiate.MimeType)
	assert.Equal(t, int64(10), svc.initiate.Size)
}

func TestInitiateUsesDevOwner(t *testing.T) {
	svc := &fakeService{}

	w := do(t, newEngine(svc), http.MethodPost, "/api/v1/uploads/initiate", types.InitiateUploadRequest{
		FileID: "f1", FileName: "a.bin", FileSize: 10,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, middleware.DevOwner, svc.initiate.OwnerID)
}

func TestRequestValidation(t *testing.T) {
	e := newEngine(&fakeService{})

	cases := []struct {
		name string
		path string
		body any
	}{
		{"initiate without name", "/api/v1/uploads/initiate", types.InitiateUploadRequest{FileID: "f", FileSize: 1}},
		{"initiate zero size", "/api/v1/uploads/initiate", types.InitiateUploadRequest{FileID: "f", FileName: "a"}},
		{"chunk without index", "/api/v1/uploads/chunk", map[string]any{"file_id": "f", "etag": "e"}},
		{"chunk without etag", "/api/v1/uploads/chunk", map[string]any{"file_id": "f", "chunk_index": 0}},
		{"complete without parts", "/api/v1/uploads/complete", types.CompleteUploadRequest{UploadID: "u", FileID: "f"}},
		{"complete with bad part", "/api/v1/uploads/complete", types.CompleteUploadRequest{
			UploadID: "u", FileID: "f", Parts: []types.CompletedPart{{PartNumber: 0, ETag: "e"}},
		}},
		{"abort without upload id", "/api/v1/uploads/abort", types.AbortUploadRequest{FileID: "f"}},
		{"download without key", "/api/v1/files/download-url", types.DownloadURLRequest{}},
		{"malformed json", "/api/v1/uploads/initiate", "not an object"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, e, http.MethodPost, tc.path, tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			res := decode[types.Response](t, w)
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestRecordCompleteAbort(t *testing.T) {
	svc := &fakeService{}
	e := newEngine(svc)

	w := do(t, e, http.MethodPost, "/api/v1/uploads/chunk", map[string]any{
		"file_id": "f1", "chunk_index": 0, "size": 5, "etag": `"abc"`,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.RecordChunkInput{FileID: "f1", ChunkIndex: 0, Size: 5, ETag: `"abc"`}, svc.record)

	w = do(t, e, http.MethodPost, "/api/v1/uploads/complete", map[string]any{
		"uploadId": "up-1",
		"fileId":   "f1",
		"parts":    []map[string]any{{"PartNumber": 2, "ETag": "b"}, {"PartNumber": 1, "ETag": "a"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[types.Response](t, w).Success)
	require.Len(t, svc.complete.Parts, 2)
	assert.Equal(t, 2, svc.complete.Parts[0].PartNumber)

	w = do(t, e, http.MethodPost, "/api/v1/uploads/abort", types.AbortUploadRequest{UploadID: "up-1", FileID: "f1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.AbortInput{UploadID: "up-1", FileID: "f1"}, svc.abort)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err     error
		code    int
		message string
	}{
		{fmt.Errorf("%w: size", service.ErrValidation), http.StatusBadRequest, ""},
		{fmt.Errorf("%w: chunk 3", service.ErrNotFound), http.StatusNotFound, ""},
		{fmt.Errorf("%w: up-1", service.ErrSessionExpired), http.StatusNotFound, ""},
		{fmt.Errorf("%w: %w", service.ErrInitFailed, fmt.Errorf("dial tcp: refused")), http.StatusInternalServerError, "failed to initiate upload"},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			e := newEngine(&fakeService{err: tc.err})

			w := do(t, e, http.MethodPost, "/api/v1/uploads/initiate", types.InitiateUploadRequest{
				FileID: "f1", FileName: "a.bin", FileSize: 10,
			})
			require.Equal(t, tc.code, w.Code)

			res := decode[types.Response](t, w)
			assert.False(t, res.Success)

			if tc.message != "" {
				assert.Equal(t, tc.message, res.Error)
			}
		})
	}
}

func TestStatusETag(t *testing.T) {
	size := int64(12)
	svc := &fakeService{status: &service.UploadStatus{
		File: &model.FileMetadata{
			FileID:    "f1",
			FileName:  "a.bin",
			Size:      &size,
			ObjectKey: "k",
			Status:    model.FileStatusUploading,
			CreatedAt: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		Chunks: service.ChunkSummary{Total: 3, Completed: 1, Pending: 2},
	}}
	e := newEngine(svc)

	w := do(t, e, http.MethodGet, "/api/v1/uploads/f1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	res := decode[types.UploadStatusResponse](t, w)
	assert.True(t, res.Success)
	assert.Equal(t, "UPLOADING", res.File.Status)
	assert.Equal(t, types.ChunkProgress{Total: 3, Completed: 1, Pending: 2}, res.Chunks)

	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w = do(t, e, http.MethodGet, "/api/v1/uploads/f1", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	svc.status.Chunks = service.ChunkSummary{Total: 3, Completed: 2, Pending: 1}

	w = do(t, e, http.MethodGet, "/api/v1/uploads/f1", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, etag, w.Header().Get("ETag"))

	w = do(t, e, http.MethodGet, "/api/v1/uploads/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadURL(t *testing.T) {
	e := newEngine(&fakeService{})

	w := do(t, e, http.MethodPost, "/api/v1/files/download-url", types.DownloadURLRequest{S3Key: "a/b.bin"})
	require.Equal(t, http.StatusOK, w.Code)

	res := decode[types.DownloadURLResponse](t, w)
	assert.True(t, res.Success)
	assert.Equal(t, "https://s3/a/b.bin?signed", res.URL)
}

func TestHealthWithoutManager(t *testing.T) {
	e := newEngine(&fakeService{})

	for _, c := range []string{"db", "s3", "kv"} {
		w := do(t, e, http.MethodGet, "/api/v1/health/"+c, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, c)
	}

	w := do(t, e, http.MethodGet, "/api/v1/health/mq", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "disabled")

	w = do(t, e, http.MethodGet, "/api/v1/scheduler/jobs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSchedulerRoutes(t *testing.T) {
	sched, err := scheduler.NewScheduler()
	require.NoError(t, err)

	sched.Start()
	t.Cleanup(func() { _ = sched.Shutdown() })

	require.NoError(t, sched.AddCron(context.Background(), "expire-stale-uploads", "0 * * * *",
		func(context.Context) error { return nil }))

	e := api.NewEngine(&configs.AppConfig{}, api.Deps{Uploads: &fakeService{}, Scheduler: sched})

	w := do(t, e, http.MethodGet, "/api/v1/scheduler/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Success bool                `json:"success"`
		Jobs    []scheduler.JobInfo `json:"jobs"`
	}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Jobs, 1)
	assert.Equal(t, "expire-stale-uploads", list.Jobs[0].Name)

	w = do(t, e, http.MethodDelete, "/api/v1/scheduler/jobs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, e, http.MethodDelete, "/api/v1/scheduler/jobs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, e, http.MethodDelete, "/api/v1/scheduler/jobs/"+list.Jobs[0].ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sched.GetJobInfos())

	w = do(t, e, http.MethodGet, "/api/v1/scheduler/queue/waiting", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"waiting":0`)
}
