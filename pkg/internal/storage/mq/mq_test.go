package mq_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/chunkvault/pkg/configs"
	"github.com/yeisme/chunkvault/pkg/internal/storage/mq"
)

func TestRegisteredTypes(t *testing.T) {
	assert.Equal(t, []configs.MQType{configs.MQTypeNATS, configs.MQTypeRedis}, mq.GetRegisteredMQTypes())
}

func TestNewUnsupportedType(t *testing.T) {
	_, err := mq.New(context.Background(), &configs.MQConfig{Type: "kafka"}, mq.Options{})
	assert.ErrorContains(t, err, "unsupported mq type")
}

func TestClientRoundTrip(t *testing.T) {
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 4}, watermill.NopLogger{})
	client := mq.NewClient(configs.MQTypeNATS, ps, ps)

	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := client.Subscribe(ctx, "cv.upload.completed")
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, "cv.upload.completed", message.NewMessage("m-1", []byte(`{"file_id":"f1"}`))))

	select {
	case msg := <-ch:
		assert.Equal(t, "m-1", msg.UUID)
		assert.JSONEq(t, `{"file_id":"f1"}`, string(msg.Payload))
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}

	assert.Equal(t, configs.MQTypeNATS, client.Type())
}

func TestNilClient(t *testing.T) {
	var client *mq.Client

	assert.Error(t, client.Publish(context.Background(), "t"))

	_, err := client.Subscribe(context.Background(), "t")
	assert.Error(t, err)
}

func TestNewWithMetrics(t *testing.T) {
	const inproc configs.MQType = "inproc"

	mq.RegisterFactory(inproc, func(_ context.Context, _ *configs.MQConfig, l watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
		ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1}, l)
		return ps, ps, nil
	})

	client, err := mq.New(context.Background(), &configs.MQConfig{Type: inproc}, mq.Options{Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, inproc, client.Type())
	assert.Contains(t, mq.GetRegisteredMQTypes(), inproc)
}
