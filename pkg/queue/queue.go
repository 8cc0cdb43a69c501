// Package queue 定义上传生命周期事件，通过消息队列通知下游.
//
// 事件只做通知，发布失败不影响上传本身.每条消息都是 JSON 信封：
//
//	{
//	  "header": {"topic": "cv.upload.completed", "producer": "chunkvault",
//	             "trace_id": "...", "occurred_at": "2025-01-02T03:04:05Z", "version": "v1"},
//	  "payload": { ... }
//	}
//
// header 同时写入 watermill 元数据，消费者不解码负载也能路由.
// 同一事件可能因重试被投递多次，消费者按 file_id 幂等处理.
package queue

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
)

const PayloadVersionV1 = "v1"

// HeaderOption 修改事件头.
type HeaderOption func(*EventHeader)

func WithTraceID(id string) HeaderOption { return func(h *EventHeader) { h.TraceID = id } }

func WithProducer(p string) HeaderOption { return func(h *EventHeader) { h.Producer = p } }

// NewMessage 把负载封装进信封并生成 watermill 消息，消息 ID 为 ULID.
func NewMessage[T any](topic string, payload T, opts ...HeaderOption) (*message.Message, error) {
	env := Message[T]{
		Header:  EventHeader{Topic: topic, OccurredAt: time.Now().UTC(), Version: PayloadVersionV1},
		Payload: payload,
	}
	for _, opt := range opts {
		opt(&env.Header)
	}

	data, err := sonic.Marshal(env)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewULID(), data)

	h := env.Header
	for k, v := range map[string]string{
		"topic":       h.Topic,
		"trace_id":    h.TraceID,
		"producer":    h.Producer,
		"version":     h.Version,
		"occurred_at": h.OccurredAt.Format(time.RFC3339Nano),
	} {
		if v != "" {
			msg.Metadata.Set(k, v)
		}
	}

	return msg, nil
}

// Parse 解码 watermill 消息中的信封.
func Parse[T any](msg *message.Message) (Message[T], error) {
	var m Message[T]
	err := sonic.Unmarshal(msg.Payload, &m)

	return m, err
}
