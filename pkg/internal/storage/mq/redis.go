package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/chunkvault/pkg/configs"
)

// redisChannelSize 每个订阅的本地缓冲.
const redisChannelSize = 100

var errSubscriberClosed = errors.New("redis subscriber closed")

func init() {
	RegisterFactory(configs.MQTypeRedis, redisFactory)
}

// redisFactory 基于 Redis Pub/Sub.消息不持久化，只发送 payload，
// Ack/Nack 没有重投语义，适合单实例或对丢失不敏感的生命周期事件.
func redisFactory(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}

	shared := &redisConn{client: rdb}

	return &redisPublisher{conn: shared}, &redisSubscriber{conn: shared, logger: logger, done: make(chan struct{})}, nil
}

// redisConn 发布端与订阅端共用一个客户端，两端都关闭后才释放.
type redisConn struct {
	client   *redis.Client
	mu       sync.Mutex
	released int
}

func (c *redisConn) release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.released++
	if c.released != 2 {
		return nil
	}

	return c.client.Close()
}

type redisPublisher struct {
	conn *redisConn
	once sync.Once
}

func (p *redisPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		if err := p.conn.client.Publish(msg.Context(), topic, msg.Payload).Err(); err != nil {
			return fmt.Errorf("redis publish %s: %w", topic, err)
		}
	}

	return nil
}

func (p *redisPublisher) Close() error {
	var err error

	p.once.Do(func() { err = p.conn.release() })

	return err
}

type redisSubscriber struct {
	conn   *redisConn
	logger watermill.LoggerAdapter

	mu     sync.Mutex
	subs   []*redis.PubSub
	wg     sync.WaitGroup
	done   chan struct{}
	closed bool
}

// Subscribe 订阅 topic，ctx 结束或 Close 后输出通道关闭.
func (s *redisSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errSubscriberClosed
	}

	ps := s.conn.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	s.subs = append(s.subs, ps)

	out := make(chan *message.Message, redisChannelSize)
	in := ps.Channel(redis.WithChannelSize(redisChannelSize))

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer close(out)

		for {
			select {
			case <-s.done:
				return
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					return
				}

				msg := message.NewMessage(watermill.NewUUID(), []byte(m.Payload))
				msg.SetContext(ctx)

				select {
				case out <- msg:
				case <-s.done:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	s.logger.Debug("redis subscribed", watermill.LogFields{"topic": topic})

	return out, nil
}

func (s *redisSubscriber) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	close(s.done)

	errs := make([]error, 0, len(s.subs)+1)
	for _, ps := range s.subs {
		errs = append(errs, ps.Close())
	}
	s.mu.Unlock()

	s.wg.Wait()

	return errors.Join(append(errs, s.conn.release())...)
}
