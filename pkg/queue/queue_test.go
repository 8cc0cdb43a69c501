package queue_test

import (
	"context"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/chunkvault/pkg/configs"
	"github.com/yeisme/chunkvault/pkg/queue"
)

type recordingSink struct {
	mu     sync.Mutex
	topics []string
	msgs   []*message.Message
}

func (s *recordingSink) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range msgs {
		s.topics = append(s.topics, topic)
		s.msgs = append(s.msgs, m)
	}

	return nil
}

func enabledEvents() configs.EventsConfig {
	return configs.EventsConfig{
		Enabled: true,
		Upload: configs.UploadEventsConfig{
			Initiated: true, Completed: true, Aborted: true, Confirmed: true,
		},
	}
}

func TestPublisherEnvelope(t *testing.T) {
	sink := &recordingSink{}
	p := queue.NewPublisher(sink, enabledEvents())

	p.UploadCompleted(context.Background(), queue.UploadCompletedPayload{
		Object:   queue.ObjectRef{Bucket: "b", ObjectKey: "k"},
		FileID:   "f1",
		UploadID: "u1",
		Parts:    3,
	})

	require.Len(t, sink.msgs, 1)
	assert.Equal(t, queue.TopicUploadCompleted, sink.topics[0])

	env, err := queue.ParseUploadCompleted(sink.msgs[0])
	require.NoError(t, err)
	assert.Equal(t, queue.TopicUploadCompleted, env.Header.Topic)
	assert.Equal(t, "chunkvault", env.Header.Producer)
	assert.Equal(t, queue.PayloadVersionV1, env.Header.Version)
	assert.Equal(t, "f1", env.Payload.FileID)
	assert.Equal(t, 3, env.Payload.Parts)
}

func TestPublisherSwitches(t *testing.T) {
	sink := &recordingSink{}

	cfg := enabledEvents()
	cfg.Upload.Aborted = false
	p := queue.NewPublisher(sink, cfg)

	p.UploadAborted(context.Background(), queue.UploadAbortedPayload{FileID: "f1"})
	p.ObjectConfirmed(context.Background(), queue.ObjectConfirmedPayload{FileID: "f1"})
	assert.Equal(t, []string{queue.TopicObjectConfirmed}, sink.topics)

	cfg.Enabled = false
	disabled := queue.NewPublisher(sink, cfg)
	disabled.UploadInitiated(context.Background(), queue.UploadInitiatedPayload{FileID: "f2"})
	assert.Len(t, sink.topics, 1)

	var nilPub *queue.Publisher
	nilPub.UploadCompleted(context.Background(), queue.UploadCompletedPayload{})
}

func TestNewMessageMetadata(t *testing.T) {
	msg, err := queue.NewMessage(queue.TopicObjectConfirmed,
		queue.ObjectConfirmedPayload{FileID: "f1", Source: "records"},
		queue.WithTraceID("abc"))
	require.NoError(t, err)

	assert.NotEmpty(t, msg.UUID)
	assert.Equal(t, queue.TopicObjectConfirmed, msg.Metadata.Get("topic"))
	assert.Equal(t, "abc", msg.Metadata.Get("trace_id"))
	assert.Empty(t, msg.Metadata.Get("producer"))

	env, err := queue.Parse[queue.ObjectConfirmedPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, "records", env.Payload.Source)
	assert.Equal(t, "abc", env.Header.TraceID)
}
