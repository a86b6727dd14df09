package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/solar-feasibility-service/internal/config"
	"github.com/couchcryptid/solar-feasibility-service/internal/domain"
)

func TestMapMessageToRawMessage(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("req-1"),
		Value:     []byte(`{"kind":"impact"}`),
		Topic:     "solar-assessment-requests",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("portal")},
		},
	}

	raw := mapMessageToRawMessage(msg)

	assert.Equal(t, []byte("req-1"), raw.Key)
	assert.JSONEq(t, `{"kind":"impact"}`, string(raw.Value))
	assert.Equal(t, "solar-assessment-requests", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "portal", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestToKafkaMessage(t *testing.T) {
	msg := toKafkaMessage(domain.OutputMessage{
		Key:   []byte("req-1"),
		Value: []byte(`{"request_id":"req-1"}`),
		Headers: map[string]string{
			"processed_at":    "2024-07-01T09:30:00Z",
			"assessment_kind": "impact",
		},
	})

	assert.Equal(t, []byte("req-1"), msg.Key)
	assert.JSONEq(t, `{"request_id":"req-1"}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "assessment_kind", msg.Headers[0].Key)
	assert.Equal(t, []byte("impact"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2024-07-01T09:30:00Z"), msg.Headers[1].Value)
}

func TestWriter_LoadBatchEmpty(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:1"}, KafkaSinkTopic: "sink"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	assert.NoError(t, w.LoadBatch(context.Background(), nil))
}
