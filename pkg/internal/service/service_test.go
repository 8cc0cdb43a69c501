package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/chunkvault/pkg/configs"
	"github.com/yeisme/chunkvault/pkg/internal/model"
	"github.com/yeisme/chunkvault/pkg/internal/service"
	"github.com/yeisme/chunkvault/pkg/internal/storage/db"
	"github.com/yeisme/chunkvault/pkg/internal/storage/kv"
	"github.com/yeisme/chunkvault/pkg/internal/storage/s3"
	"github.com/yeisme/chunkvault/pkg/internal/store"
)

const mib = 1024 * 1024

// fakeObjects 内存中的分段上传.
type fakeObjects struct {
	mu        sync.Mutex
	seq       int
	uploads   map[string]string // uploadId -> key
	completed map[string][]s3.CompletedPart
	aborts    int

	failOpen    error
	failPresign error
	failAbort   error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{
		uploads:   map[string]string{},
		completed: map[string][]s3.CompletedPart{},
	}
}

func (f *fakeObjects) Bucket() string { return "test-bucket" }

func (f *fakeObjects) NewMultipartUpload(_ context.Context, _, key, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failOpen != nil {
		return "", f.failOpen
	}

	f.seq++
	id := fmt.Sprintf("upload-%d", f.seq)
	f.uploads[id] = key

	return id, nil
}

func (f *fakeObjects) PresignUploadPart(_ context.Context, bucket, key, uploadID string, partNumber int, _ time.Duration) (string, error) {
	if f.failPresign != nil {
		return "", f.failPresign
	}

	return fmt.Sprintf("https://objects.test/%s/%s?uploadId=%s&partNumber=%d", bucket, key, uploadID, partNumber), nil
}

func (f *fakeObjects) CompleteMultipartUpload(_ context.Context, _, _, uploadID string, parts []s3.CompletedPart) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.uploads[uploadID]; !ok {
		return "", s3.ErrNoSuchUpload
	}

	delete(f.uploads, uploadID)
	f.completed[uploadID] = parts

	return "\"final-etag\"", nil
}

func (f *fakeObjects) AbortMultipartUpload(_ context.Context, _, _, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.aborts++

	if f.failAbort != nil {
		return f.failAbort
	}

	if _, ok := f.uploads[uploadID]; !ok {
		return s3.ErrNoSuchUpload
	}

	delete(f.uploads, uploadID)

	return nil
}

func (f *fakeObjects) PresignGetObject(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://objects.test/" + bucket + "/" + key, nil
}

func (f *fakeObjects) EnsureBucket(context.Context, string) error { return nil }
func (f *fakeObjects) HealthCheck(context.Context) error          { return nil }
func (f *fakeObjects) Close() error                               { return nil }

func (f *fakeObjects) open() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.uploads)
}

type fixture struct {
	svc      *service.UploadService
	objects  *fakeObjects
	meta     *store.MetadataStore
	sessions *store.SessionStore
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	client, err := db.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), false)
	require.NoError(t, err)

	sqlDB, err := client.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = client.Close() })

	meta := store.NewMetadataStore(client)
	require.NoError(t, meta.AutoMigrate(context.Background()))

	memKV, err := kv.NewMemoryKVWithCapacity(1024)
	require.NoError(t, err)

	f := &fixture{
		objects:  newFakeObjects(),
		meta:     meta,
		sessions: store.NewSessionStore(memKV),
		now:      time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}

	f.svc = service.NewUploadService(f.objects, meta, f.sessions, configs.UploadConfig{
		PartSize:    5 * mib,
		MaxFileSize: 100 * mib,
		SessionTTL:  24 * time.Hour,
	}, service.WithClock(func() time.Time { return f.now }))

	return f
}

func (f *fixture) initiate(t *testing.T, fileID string, size int64) *service.InitiateResult {
	t.Helper()

	res, err := f.svc.Initiate(context.Background(), service.InitiateInput{
		FileID:   fileID,
		FileName: "report.pdf",
		MimeType: "application/pdf",
		Size:     size,
		OwnerID:  "alice@example.com",
	})
	require.NoError(t, err)

	return res
}

func TestInitiateCreatesPlaceholders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.initiate(t, "f-12mb", 12*mib)

	assert.Len(t, res.PresignedURLs, 3)
	assert.Equal(t, 3, res.PartCount)
	assert.Equal(t, int64(5*mib), res.PartSize)
	assert.Equal(t, "alice@example.com/2025/03/f-12mb/report.pdf", res.ObjectKey)
	assert.Contains(t, res.PresignedURLs[2], "partNumber=3")

	file, err := f.meta.GetFile(ctx, "f-12mb")
	require.NoError(t, err)
	assert.Equal(t, model.FileStatusUploading, file.Status)
	assert.Nil(t, file.Size)

	chunks, err := f.meta.ListChunks(ctx, "f-12mb")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for _, c := range chunks {
		assert.Equal(t, model.ChunkStatusPending, c.Status)
	}

	assert.Equal(t, int64(2*mib), chunks[2].Size)

	session, err := f.sessions.Get(ctx, res.UploadID)
	require.NoError(t, err)
	assert.Equal(t, "test-bucket", session.Bucket)
	assert.Equal(t, res.ObjectKey, session.ObjectKey)
}

func TestInitiateValidation(t *testing.T) {
	f := newFixture(t)

	cases := []service.InitiateInput{
		{FileID: "", FileName: "a", Size: 1},
		{FileID: "a/b", FileName: "a", Size: 1},
		{FileID: "x", FileName: "", Size: 1},
		{FileID: "x", FileName: "a", Size: 0},
		{FileID: "x", FileName: "a", Size: 101 * mib},
	}

	for _, in := range cases {
		_, err := f.svc.Initiate(context.Background(), in)
		require.ErrorIs(t, err, service.ErrValidation, "%+v", in)
	}

	assert.Zero(t, f.objects.open())
}

func TestInitiateFailureCleansUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.initiate(t, "dup", mib)
	require.Equal(t, 1, f.objects.open())

	// 重复 fileId 使事务失败，新打开的分段上传必须被中止
	_, err := f.svc.Initiate(ctx, service.InitiateInput{FileID: "dup", FileName: "b.bin", Size: mib})
	require.ErrorIs(t, err, service.ErrInitFailed)
	assert.Equal(t, 1, f.objects.open())

	keys, err := f.sessions.List(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	f.objects.failPresign = errors.New("signer down")
	_, err = f.svc.Initiate(ctx, service.InitiateInput{FileID: "p", FileName: "b.bin", Size: mib})
	require.ErrorIs(t, err, service.ErrInitFailed)
	assert.Equal(t, 1, f.objects.open())

	_, err = f.meta.GetFile(ctx, "p")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordChunk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.initiate(t, "rc", 12*mib)

	in := service.RecordChunkInput{FileID: "rc", ChunkIndex: 1, Size: 5 * mib, ETag: "\"etag-1\""}
	require.NoError(t, f.svc.RecordChunk(ctx, in))
	require.NoError(t, f.svc.RecordChunk(ctx, in))

	in.ETag = "\"etag-1b\""
	require.NoError(t, f.svc.RecordChunk(ctx, in))

	chunks, err := f.meta.ListChunks(ctx, "rc")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, model.ChunkStatusCompleted, chunks[1].Status)
	assert.Equal(t, "\"etag-1b\"", chunks[1].Checksum)

	err = f.svc.RecordChunk(ctx, service.RecordChunkInput{FileID: "rc", ChunkIndex: 3, ETag: "x"})
	require.ErrorIs(t, err, service.ErrNotFound)

	err = f.svc.RecordChunk(ctx, service.RecordChunkInput{FileID: "rc", ChunkIndex: 0})
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestCompleteTrustsPartsAndMarksUploaded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.initiate(t, "c1", 12*mib)

	// 只提交部分分片也会被接受
	err := f.svc.Complete(ctx, service.CompleteInput{
		UploadID: res.UploadID,
		FileID:   "c1",
		Parts: []s3.CompletedPart{
			{PartNumber: 2, ETag: "\"b\""},
			{PartNumber: 1, ETag: "\"a\""},
		},
	})
	require.NoError(t, err)

	parts := f.objects.completed[res.UploadID]
	require.Len(t, parts, 2)
	assert.Equal(t, 1, parts[0].PartNumber)

	file, err := f.meta.GetFile(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, model.FileStatusUploaded, file.Status)

	_, err = f.sessions.Get(ctx, res.UploadID)
	require.ErrorIs(t, err, store.ErrSessionNotFound)

	err = f.svc.Complete(ctx, service.CompleteInput{
		UploadID: res.UploadID,
		FileID:   "c1",
		Parts:    []s3.CompletedPart{{PartNumber: 1, ETag: "\"a\""}},
	})
	require.ErrorIs(t, err, service.ErrSessionExpired)
}

func TestCompleteValidation(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Complete(context.Background(), service.CompleteInput{UploadID: "u", FileID: "f"})
	require.ErrorIs(t, err, service.ErrValidation)

	err = f.svc.Complete(context.Background(), service.CompleteInput{
		UploadID: "u", FileID: "f",
		Parts: []s3.CompletedPart{{PartNumber: 0, ETag: "x"}},
	})
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestAbortTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.initiate(t, "ab", 12*mib)
	require.NoError(t, f.svc.RecordChunk(ctx, service.RecordChunkInput{FileID: "ab", ChunkIndex: 0, ETag: "e"}))

	in := service.AbortInput{UploadID: res.UploadID, FileID: "ab"}
	require.NoError(t, f.svc.Abort(ctx, in))
	require.NoError(t, f.svc.Abort(ctx, in))

	_, err := f.meta.GetFile(ctx, "ab")
	require.ErrorIs(t, err, store.ErrNotFound)

	chunks, err := f.meta.ListChunks(ctx, "ab")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	_, err = f.sessions.Get(ctx, res.UploadID)
	require.ErrorIs(t, err, store.ErrSessionNotFound)

	assert.Zero(t, f.objects.open())

	// abort 之后迟到的 recordChunk 得到干净的 NotFound
	err = f.svc.RecordChunk(ctx, service.RecordChunkInput{FileID: "ab", ChunkIndex: 1, ETag: "e"})
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestAbortSurfacesUnexpectedStoreError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.initiate(t, "ab2", mib)
	f.objects.failAbort = errors.New("connection reset")

	err := f.svc.Abort(ctx, service.AbortInput{UploadID: res.UploadID, FileID: "ab2"})
	require.Error(t, err)
	require.NotErrorIs(t, err, service.ErrNotFound)
}

func TestStatusAndDownloadURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.initiate(t, "st", 12*mib)
	require.NoError(t, f.svc.RecordChunk(ctx, service.RecordChunkInput{FileID: "st", ChunkIndex: 2, ETag: "e"}))

	st, err := f.svc.Status(ctx, "st")
	require.NoError(t, err)
	assert.Equal(t, service.ChunkSummary{Total: 3, Completed: 1, Pending: 2}, st.Chunks)

	_, err = f.svc.Status(ctx, "missing")
	require.ErrorIs(t, err, service.ErrNotFound)

	url, err := f.svc.DownloadURL(ctx, res.ObjectKey)
	require.NoError(t, err)
	assert.Contains(t, url, res.ObjectKey)

	_, err = f.svc.DownloadURL(ctx, "")
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.initiate(t, "old", mib)
	res := f.initiate(t, "done", mib)
	require.NoError(t, f.svc.Complete(ctx, service.CompleteInput{
		UploadID: res.UploadID, FileID: "done",
		Parts: []s3.CompletedPart{{PartNumber: 1, ETag: "e"}},
	}))

	f.now = f.now.Add(25 * time.Hour)
	f.initiate(t, "fresh", mib)

	n, err := f.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	old, err := f.meta.GetFile(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, model.FileStatusFailed, old.Status)

	fresh, err := f.meta.GetFile(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, model.FileStatusUploading, fresh.Status)
}
