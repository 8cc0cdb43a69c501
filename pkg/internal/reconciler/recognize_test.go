package reconciler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/chunkvault/pkg/internal/reconciler"
)

const minioRecords = `{
  "EventName": "s3:ObjectCreated:CompleteMultipartUpload",
  "Key": "uploads/alice/2025/03/f1/my+report.pdf",
  "Records": [{
    "eventVersion": "2.0",
    "eventSource": "minio:s3",
    "eventName": "s3:ObjectCreated:CompleteMultipartUpload",
    "s3": {
      "bucket": {"name": "uploads"},
      "object": {"key": "alice%2F2025%2F03%2Ff1%2Fmy+report.pdf", "size": 12582912}
    }
  }]
}`

func TestRecognizeRecords(t *testing.T) {
	events, ok := reconciler.Recognize(reconciler.DefaultRecognizers(), []byte(minioRecords))
	require.True(t, ok)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "uploads", ev.Bucket)
	assert.Equal(t, "alice/2025/03/f1/my report.pdf", ev.Key)
	require.NotNil(t, ev.Size)
	assert.Equal(t, int64(12582912), *ev.Size)
	assert.Equal(t, "records", ev.Source)
}

func TestRecognizeSkipsNonCreateRecords(t *testing.T) {
	body := `{"Records":[{"eventName":"ObjectRemoved:Delete","s3":{"bucket":{"name":"b"},"object":{"key":"k"}}}]}`

	_, ok := reconciler.Recognize(reconciler.DefaultRecognizers(), []byte(body))
	assert.False(t, ok)

	body = `{"Records":[{"s3":{"bucket":{"name":"b"},"object":{"key":"no-event-name"}}}]}`

	events, ok := reconciler.Recognize(reconciler.DefaultRecognizers(), []byte(body))
	require.True(t, ok)
	assert.Equal(t, "no-event-name", events[0].Key)
	assert.Nil(t, events[0].Size)
}

func TestRecognizeWrapped(t *testing.T) {
	body := `{
  "Type": "Notification",
  "MessageId": "6f1e",
  "Message": "{\"Records\":[{\"eventName\":\"ObjectCreated:Put\",\"s3\":{\"bucket\":{\"name\":\"b\"},\"object\":{\"key\":\"a%20b.txt\",\"size\":3}}}]}"
}`

	events, ok := reconciler.Recognize(reconciler.DefaultRecognizers(), []byte(body))
	require.True(t, ok)
	assert.Equal(t, "a b.txt", events[0].Key)
	assert.Equal(t, "wrapped", events[0].Source)
}

func TestRecognizeAudit(t *testing.T) {
	body := `{
  "version": "0",
  "detail-type": "Object Created",
  "source": "aws.s3",
  "detail": {"bucket": {"name": "b"}, "object": {"key": "x/y.bin", "size": 10}}
}`

	events, ok := reconciler.Recognize(reconciler.DefaultRecognizers(), []byte(body))
	require.True(t, ok)
	assert.Equal(t, "x/y.bin", events[0].Key)
	assert.Equal(t, "audit", events[0].Source)
}

func TestRecognizeUnrecognized(t *testing.T) {
	bodies := []string{
		`{"Service":"Amazon S3","Event":"s3:TestEvent","Time":"2025-03-14T10:00:00.000Z","Bucket":"b"}`,
		`{"Type":"Notification","Message":"{\"Event\":\"s3:TestEvent\"}"}`,
		`{"Message":"not json"}`,
		`not json at all`,
		`[]`,
		``,
	}

	for _, body := range bodies {
		_, ok := reconciler.Recognize(reconciler.DefaultRecognizers(), []byte(body))
		assert.False(t, ok, body)
	}
}
