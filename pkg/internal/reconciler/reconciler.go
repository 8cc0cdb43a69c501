// Package reconciler 消费对象存储的“对象已创建”通知，把对应的上传标记为 UPLOADED.
//
// 通知可能来自多种信封格式，由有序的识别器列表规范化.
// 单条消息处理失败只影响该消息，依赖队列重投；拉取失败时固定延迟后重试，循环不会退出.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/chunkvault/pkg/configs"
	"github.com/yeisme/chunkvault/pkg/internal/model"
	"github.com/yeisme/chunkvault/pkg/internal/store"
	nlog "github.com/yeisme/chunkvault/pkg/log"
	"github.com/yeisme/chunkvault/pkg/metrics"
	"github.com/yeisme/chunkvault/pkg/queue"
	"github.com/yeisme/chunkvault/pkg/tracing"
)

// Message 从队列取到的一条消息.
type Message struct {
	ID   string
	Body []byte
	// Receipt 由来源私有的确认句柄
	Receipt any
}

// Source 通知来源.
type Source interface {
	// Receive 最多取 limit 条消息，没有消息时可以返回空切片.
	Receive(ctx context.Context, limit int) ([]Message, error)
	// Delete 确认消息已处理.
	Delete(ctx context.Context, msg Message) error
}

// Releaser 可选接口，把处理失败的消息立即放回队列.
type Releaser interface {
	Release(ctx context.Context, msg Message) error
}

// MetadataStore 对账器用到的元数据操作.
type MetadataStore interface {
	FindByObjectKey(ctx context.Context, objectKey string) (*model.FileMetadata, error)
	ConfirmUploaded(ctx context.Context, fileID string, size *int64) (bool, error)
}

// Reconciler 轮询通知并幂等地更新元数据.
type Reconciler struct {
	source      Source
	meta        MetadataStore
	events      *queue.Publisher
	recognizers []Recognizer
	cfg         configs.ReconcilerConfig
	sleep       func(ctx context.Context, d time.Duration) error
	logger      zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option 可选配置.
type Option func(*Reconciler)

// WithEvents 确认后发布 cv.object.confirmed.
func WithEvents(p *queue.Publisher) Option {
	return func(r *Reconciler) { r.events = p }
}

// WithRecognizers 替换识别器列表.
func WithRecognizers(rs ...Recognizer) Option {
	return func(r *Reconciler) { r.recognizers = rs }
}

// WithSleep 替换等待函数，测试用.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Reconciler) { r.sleep = fn }
}

// New 创建对账器.
func New(source Source, meta MetadataStore, cfg configs.ReconcilerConfig, opts ...Option) *Reconciler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = configs.DefaultReconcilerBatchSize
	}

	if cfg.ErrorDelay <= 0 {
		cfg.ErrorDelay = configs.DefaultReconcilerErrorDelay
	}

	r := &Reconciler{
		source:      source,
		meta:        meta,
		recognizers: DefaultRecognizers(),
		cfg:         cfg,
		sleep:       sleepContext,
		logger:      nlog.Component("reconciler"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start 启动轮询 goroutine，重复调用无效.
func (r *Reconciler) Start(parent context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		r.pollLoop(ctx)
	}()

	r.logger.Info().
		Str("source", string(r.cfg.Source)).
		Int("batch_size", r.cfg.BatchSize).
		Dur("poll_interval", r.cfg.PollInterval).
		Msg("reconciler started")
}

// Shutdown 停止轮询并等待当前批次结束，受 ctx 限制.
func (r *Reconciler) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()

	done := make(chan struct{})

	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info().Msg("reconciler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reconciler) pollLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		delay := r.cfg.PollInterval

		if _, err := r.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}

			r.logger.Error().Err(err).Dur("retry_in", r.cfg.ErrorDelay).Msg("poll failed")
			delay = r.cfg.ErrorDelay
		}

		if err := r.sleep(ctx, delay); err != nil {
			return
		}
	}
}

// PollOnce 拉取一批消息并逐条处理，返回拉到的消息数.
// 只有拉取本身失败才返回错误.
func (r *Reconciler) PollOnce(ctx context.Context) (int, error) {
	msgs, err := r.source.Receive(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("receive: %w", err)
	}

	for _, msg := range msgs {
		r.handle(ctx, msg)
	}

	return len(msgs), nil
}

// handle 处理单条消息：成功或无法识别时删除，处理出错时保留等待重投.
func (r *Reconciler) handle(ctx context.Context, msg Message) {
	ctx, span := tracing.StartSpan(ctx, "reconciler.message")

	log := r.logger.With().Str("message_id", msg.ID).Logger()

	events, ok := Recognize(r.recognizers, msg.Body)
	if !ok {
		log.Info().Int("bytes", len(msg.Body)).Msg("unrecognized message dropped")
		metrics.ReconcilerMessages.WithLabelValues(metrics.OutcomeUnrecognized).Inc()
		r.delete(ctx, log, msg)
		tracing.EndSpan(span, nil)

		return
	}

	err := r.apply(ctx, log, events)
	tracing.EndSpan(span, err)

	if err != nil {
		log.Error().Err(err).Msg("processing failed, message kept for redelivery")
		metrics.ReconcilerMessages.WithLabelValues(metrics.OutcomeFailed).Inc()

		if rel, ok := r.source.(Releaser); ok {
			if rerr := rel.Release(ctx, msg); rerr != nil {
				log.Warn().Err(rerr).Msg("release message failed")
			}
		}

		return
	}

	r.delete(ctx, log, msg)
}

func (r *Reconciler) apply(ctx context.Context, log zerolog.Logger, events []ObjectCreated) error {
	for _, ev := range events {
		file, err := r.meta.FindByObjectKey(ctx, ev.Key)
		if errors.Is(err, store.ErrNotFound) {
			// abort 在对象写入之后删除了元数据
			log.Warn().Str("object_key", ev.Key).Msg("no metadata for object, skipped")
			metrics.ReconcilerMessages.WithLabelValues(metrics.OutcomeOrphan).Inc()

			continue
		}

		if err != nil {
			return err
		}

		updated, err := r.meta.ConfirmUploaded(ctx, file.FileID, ev.Size)
		if err != nil {
			return err
		}

		log.Info().
			Str("file_id", file.FileID).
			Str("object_key", ev.Key).
			Str("recognizer", ev.Source).
			Bool("updated", updated).
			Msg("object confirmed")
		metrics.ReconcilerMessages.WithLabelValues(metrics.OutcomeApplied).Inc()

		if !updated {
			continue
		}

		ref := queue.ObjectRef{Bucket: ev.Bucket, ObjectKey: ev.Key}
		if ev.Size != nil {
			ref.Size = *ev.Size
		}

		r.events.ObjectConfirmed(ctx, queue.ObjectConfirmedPayload{
			Object: ref,
			FileID: file.FileID,
			Source: ev.Source,
		})
	}

	return nil
}

func (r *Reconciler) delete(ctx context.Context, log zerolog.Logger, msg Message) {
	if err := r.source.Delete(ctx, msg); err != nil {
		log.Warn().Err(err).Msg("delete message failed")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
