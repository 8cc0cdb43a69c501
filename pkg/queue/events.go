package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/chunkvault/pkg/configs"
	nlog "github.com/yeisme/chunkvault/pkg/log"
)

// Sink 发布消息的最小接口，storage/mq.Client 满足该接口.
type Sink interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// Publisher 按事件开关发布上传生命周期事件.
// sink 为 nil 时所有方法都是空操作.
type Publisher struct {
	sink Sink
	cfg  configs.EventsConfig
}

// NewPublisher 创建事件发布器，cfg.Enabled 为 false 时不发布任何事件.
func NewPublisher(sink Sink, cfg configs.EventsConfig) *Publisher {
	if !cfg.Enabled {
		sink = nil
	}

	return &Publisher{sink: sink, cfg: cfg}
}

// UploadInitiated 发布 cv.upload.initiated.
func (p *Publisher) UploadInitiated(ctx context.Context, payload UploadInitiatedPayload) {
	if p == nil || !p.cfg.Upload.Initiated {
		return
	}

	publish(ctx, p.sink, TopicUploadInitiated, payload)
}

// UploadCompleted 发布 cv.upload.completed.
func (p *Publisher) UploadCompleted(ctx context.Context, payload UploadCompletedPayload) {
	if p == nil || !p.cfg.Upload.Completed {
		return
	}

	publish(ctx, p.sink, TopicUploadCompleted, payload)
}

// UploadAborted 发布 cv.upload.aborted.
func (p *Publisher) UploadAborted(ctx context.Context, payload UploadAbortedPayload) {
	if p == nil || !p.cfg.Upload.Aborted {
		return
	}

	publish(ctx, p.sink, TopicUploadAborted, payload)
}

// ObjectConfirmed 发布 cv.object.confirmed.
func (p *Publisher) ObjectConfirmed(ctx context.Context, payload ObjectConfirmedPayload) {
	if p == nil || !p.cfg.Upload.Confirmed {
		return
	}

	publish(ctx, p.sink, TopicObjectConfirmed, payload)
}

// publish 失败只记录日志.
func publish[T any](ctx context.Context, sink Sink, topic string, payload T) {
	if sink == nil {
		return
	}

	opts := []HeaderOption{WithProducer("chunkvault")}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		opts = append(opts, WithTraceID(sc.TraceID().String()))
	}

	msg, err := NewMessage(topic, payload, opts...)
	logger := nlog.Component("events")
	if err != nil {
		logger.Warn().Err(err).Str("topic", topic).Msg("encode event failed")
		return
	}

	msg.SetContext(context.WithoutCancel(ctx))

	if err := sink.Publish(ctx, topic, msg); err != nil {
		logger.Warn().Err(err).Str("topic", topic).Str("message_id", msg.UUID).Msg("publish event failed")
	}
}

// ParseUploadCompleted 解码 cv.upload.completed 消息.
func ParseUploadCompleted(msg *message.Message) (Message[UploadCompletedPayload], error) {
	return Parse[UploadCompletedPayload](msg)
}
