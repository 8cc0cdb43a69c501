// Package uploader 实现分片上传客户端：按批次并行上传分片，记录每个分片，最后合并.
//
// 一次上传是一个状态机：
//
//	IDLE -> INITIATING -> UPLOADING -> COMPLETING -> {DONE, FAILED, CANCELLED}
//
// 批次之间严格顺序执行，批内最多 K 个分片并行.任何失败（包括取消）都会且只会调用一次 abort.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/chunkvault/pkg/chunk"
	"github.com/yeisme/chunkvault/pkg/configs"
	"github.com/yeisme/chunkvault/pkg/internal/types"
	nlog "github.com/yeisme/chunkvault/pkg/log"
)

// State 上传状态.
type State string

const (
	StateIdle       State = "IDLE"
	StateInitiating State = "INITIATING"
	StateUploading  State = "UPLOADING"
	StateCompleting State = "COMPLETING"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
	StateCancelled  State = "CANCELLED"
)

// Terminal 是否为终态.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

var (
	// ErrCancelled 上传被取消.
	ErrCancelled = errors.New("upload cancelled")
	// ErrMissingETag 对象存储响应没有 ETag，即使状态码成功也视为失败.
	ErrMissingETag = errors.New("object store response has no ETag")
	// ErrAlreadyStarted Run 只能调用一次.
	ErrAlreadyStarted = errors.New("upload already started")
)

// Coordinator 上传用到的协调器操作，APIClient 满足该接口.
type Coordinator interface {
	Initiate(ctx context.Context, req types.InitiateUploadRequest) (*types.InitiateUploadResponse, error)
	RecordChunk(ctx context.Context, req types.RecordChunkRequest) error
	Complete(ctx context.Context, req types.CompleteUploadRequest) error
	Abort(ctx context.Context, req types.AbortUploadRequest) error
}

// File 待上传的文件.
type File struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
	Reader   io.ReaderAt
}

// Progress 已记录分片数与百分比，百分比在一次上传内单调不减.
type Progress struct {
	Completed int
	Total     int
	Percent   int
}

// Options 上传选项.
type Options struct {
	// Concurrency 批大小 K，默认 3
	Concurrency int
	// HTTPClient 用于分片 PUT，不做重试
	HTTPClient *http.Client
	// OnProgress 每次 recordChunk 成功后调用，调用是串行的
	OnProgress func(Progress)
}

// Upload 一次上传尝试.配置在创建后不可变，状态由 mu 保护.
type Upload struct {
	coord  Coordinator
	file   File
	opts   Options
	logger zerolog.Logger

	mu       sync.Mutex
	state    State
	uploadID string
	err      error

	progressMu sync.Mutex
	completed  int
	total      int

	cancelOnce sync.Once
	cancelCh   chan struct{}
	abortOnce  sync.Once
}

// New 创建上传.
func New(coord Coordinator, file File, opts Options) *Upload {
	if opts.Concurrency <= 0 {
		opts.Concurrency = configs.DefaultClientConcurrency
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Upload{
		coord:    coord,
		file:     file,
		opts:     opts,
		logger:   nlog.Component("uploader").With().Str("file_id", file.ID).Logger(),
		state:    StateIdle,
		cancelCh: make(chan struct{}),
	}
}

// State 当前状态.
func (u *Upload) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.state
}

// UploadID initiate 返回的 uploadId，之前为空.
func (u *Upload) UploadID() string {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.uploadID
}

// Err 终态为 FAILED 时的错误.
func (u *Upload) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.err
}

// Progress 当前进度.
func (u *Upload) Progress() Progress {
	u.progressMu.Lock()
	defer u.progressMu.Unlock()

	return u.progressLocked()
}

// Cancel 请求取消，可以从任意 goroutine 调用多次.
// 进行中的网络请求会被中断，随后调用一次 abort.
func (u *Upload) Cancel() {
	u.cancelOnce.Do(func() { close(u.cancelCh) })
}

func (u *Upload) cancelled() bool {
	select {
	case <-u.cancelCh:
		return true
	default:
		return false
	}
}

func (u *Upload) setState(s State) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.state = s
}

// Run 执行上传直到终态，返回 nil 表示 DONE.
func (u *Upload) Run(ctx context.Context) error {
	u.mu.Lock()
	if u.state != StateIdle {
		u.mu.Unlock()
		return ErrAlreadyStarted
	}

	u.state = StateInitiating
	u.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 取消信号中断所有绑定在 ctx 上的请求
	go func() {
		select {
		case <-u.cancelCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := u.coord.Initiate(ctx, types.InitiateUploadRequest{
		FileID:   u.file.ID,
		FileName: u.file.Name,
		FileType: u.file.MimeType,
		FileSize: u.file.Size,
	})
	if err != nil {
		// 还没有 uploadId，无需清理
		return u.finish(fmt.Errorf("initiate: %w", err))
	}

	u.mu.Lock()
	u.uploadID = res.UploadID
	u.mu.Unlock()

	log := u.logger.With().Str("upload_id", res.UploadID).Logger()

	partSize := res.PartSize
	if partSize <= 0 {
		partSize = configs.DefaultPartSize
	}

	ranges, err := chunk.Split(u.file.Size, partSize)
	if err != nil {
		return u.stop(ctx, err)
	}

	if len(ranges) != len(res.PresignedURLs) {
		return u.stop(ctx, fmt.Errorf("server returned %d part urls for %d parts", len(res.PresignedURLs), len(ranges)))
	}

	u.progressMu.Lock()
	u.total = len(ranges)
	u.progressMu.Unlock()

	u.setState(StateUploading)

	etags := make([]string, len(ranges))

	for _, batch := range chunk.Batches(ranges, u.opts.Concurrency) {
		if u.cancelled() {
			return u.stop(ctx, ErrCancelled)
		}

		g, gctx := errgroup.WithContext(ctx)

		for _, r := range batch {
			g.Go(func() error {
				etag, err := u.uploadPart(gctx, r, res.PresignedURLs[r.Index])
				if err != nil {
					return fmt.Errorf("part %d: %w", r.PartNumber(), err)
				}

				etags[r.Index] = etag

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return u.stop(ctx, err)
		}
	}

	if u.cancelled() {
		return u.stop(ctx, ErrCancelled)
	}

	u.setState(StateCompleting)

	parts := make([]types.CompletedPart, len(ranges))
	for i, r := range ranges {
		parts[i] = types.CompletedPart{PartNumber: r.PartNumber(), ETag: etags[i]}
	}

	err = u.coord.Complete(ctx, types.CompleteUploadRequest{
		UploadID: res.UploadID,
		FileID:   u.file.ID,
		Parts:    parts,
	})
	if err != nil {
		return u.stop(ctx, fmt.Errorf("complete: %w", err))
	}

	log.Info().Int("parts", len(parts)).Msg("upload done")

	return u.finish(nil)
}

// uploadPart PUT 分片字节并记录 ETag.
func (u *Upload) uploadPart(ctx context.Context, r chunk.Range, url string) (string, error) {
	body := io.NewSectionReader(u.file.Reader, r.Start, r.Len())

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", err
	}

	req.ContentLength = r.Len()
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := u.opts.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("object store returned %d", resp.StatusCode)
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return "", ErrMissingETag
	}

	// 已拿到 ETag 的分片允许在取消后完成记录
	idx := r.Index

	err = u.coord.RecordChunk(context.WithoutCancel(ctx), types.RecordChunkRequest{
		FileID:     u.file.ID,
		ChunkIndex: &idx,
		Size:       r.Len(),
		ETag:       etag,
	})
	if err != nil {
		return "", fmt.Errorf("record chunk: %w", err)
	}

	u.reportProgress()

	return etag, nil
}

func (u *Upload) reportProgress() {
	u.progressMu.Lock()
	defer u.progressMu.Unlock()

	u.completed++

	if u.opts.OnProgress != nil {
		u.opts.OnProgress(u.progressLocked())
	}
}

func (u *Upload) progressLocked() Progress {
	p := Progress{Completed: u.completed, Total: u.total}
	if u.total > 0 {
		p.Percent = int(math.Round(100 * float64(u.completed) / float64(u.total)))
	}

	return p
}

// stop 失败或取消路径：调用一次 abort 后进入终态.
func (u *Upload) stop(ctx context.Context, cause error) error {
	u.abort(context.WithoutCancel(ctx))

	return u.finish(cause)
}

// abort 每次上传最多调用一次.
func (u *Upload) abort(ctx context.Context) {
	uploadID := u.UploadID()
	if uploadID == "" {
		return
	}

	u.abortOnce.Do(func() {
		err := u.coord.Abort(ctx, types.AbortUploadRequest{UploadID: uploadID, FileID: u.file.ID})
		if err != nil {
			u.logger.Warn().Err(err).Str("upload_id", uploadID).Msg("abort failed")
			return
		}

		u.logger.Info().Str("upload_id", uploadID).Msg("upload aborted")
	})
}

// finish 进入终态.取消优先于其他失败原因.
func (u *Upload) finish(cause error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch {
	case cause == nil:
		u.state = StateDone
	case u.cancelled():
		u.state = StateCancelled
		u.err = ErrCancelled
	default:
		u.state = StateFailed
		u.err = cause
	}

	return u.err
}
