package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Subscriber MQSource 用到的订阅能力，storage/mq.Client 满足该接口.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// MQSource 通过 watermill 订阅对象存储推送到 MQ 的通知.
// Delete 对应 Ack，Release 对应 Nack.
type MQSource struct {
	ch      <-chan *message.Message
	maxWait time.Duration
}

// NewMQSource 订阅 topic，ctx 结束时订阅关闭.
func NewMQSource(ctx context.Context, sub Subscriber, topic string, maxWait time.Duration) (*MQSource, error) {
	if topic == "" {
		return nil, fmt.Errorf("reconciler.topic is required for mq source")
	}

	ch, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	if maxWait <= 0 {
		maxWait = time.Second
	}

	return &MQSource{ch: ch, maxWait: maxWait}, nil
}

// Receive 最多等待 maxWait 取第一条消息，再取走当前已到达的消息，总数不超过 limit.
func (s *MQSource) Receive(ctx context.Context, limit int) ([]Message, error) {
	timer := time.NewTimer(s.maxWait)
	defer timer.Stop()

	var msgs []Message

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case m, ok := <-s.ch:
		if !ok {
			return nil, fmt.Errorf("mq subscription closed")
		}

		msgs = append(msgs, wrap(m))
	}

	for len(msgs) < limit {
		select {
		case m, ok := <-s.ch:
			if !ok {
				return msgs, nil
			}

			msgs = append(msgs, wrap(m))
		default:
			return msgs, nil
		}
	}

	return msgs, nil
}

// Delete Ack.
func (s *MQSource) Delete(_ context.Context, msg Message) error {
	m, ok := msg.Receipt.(*message.Message)
	if !ok {
		return fmt.Errorf("message %s is not a watermill message", msg.ID)
	}

	m.Ack()

	return nil
}

// Release Nack，消息立即重投.
func (s *MQSource) Release(_ context.Context, msg Message) error {
	m, ok := msg.Receipt.(*message.Message)
	if !ok {
		return fmt.Errorf("message %s is not a watermill message", msg.ID)
	}

	m.Nack()

	return nil
}

func wrap(m *message.Message) Message {
	return Message{ID: m.UUID, Body: m.Payload, Receipt: m}
}
