package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDLQProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	d := &DLQProducer{writer: w, logger: testLogger()}

	orig := kafka.Message{
		Topic:     "ecommerce.product.updated",
		Partition: 2,
		Offset:    41,
		Key:       []byte("7"),
		Value:     []byte(`{"event_type":"product.updated"}`),
		Headers:   []kafka.Header{{Key: "event_type", Value: []byte("product.updated")}},
	}
	require.NoError(t, d.Publish(context.Background(), orig, errors.New("index unavailable"), "productsearch-indexer"))

	require.Len(t, w.messages, 1)
	got := w.messages[0]
	assert.Equal(t, "ecommerce.dlq.ecommerce.product.updated", got.Topic)
	assert.Equal(t, orig.Key, got.Key)
	assert.Equal(t, orig.Value, got.Value)

	carrier := headerCarrier{headers: &got.Headers}
	assert.Equal(t, "product.updated", carrier.Get("event_type"))
	assert.Equal(t, "ecommerce.product.updated", carrier.Get("dlq.original_topic"))
	assert.Equal(t, "2", carrier.Get("dlq.original_partition"))
	assert.Equal(t, "41", carrier.Get("dlq.original_offset"))
	assert.Equal(t, "productsearch-indexer", carrier.Get("dlq.consumer_group"))
	assert.Equal(t, "index unavailable", carrier.Get("dlq.error"))
}

func TestDLQProducer_Publish_WriteError(t *testing.T) {
	d := &DLQProducer{writer: &fakeWriter{err: errors.New("broker down")}, logger: testLogger()}

	err := d.Publish(context.Background(), kafka.Message{Topic: "t"}, nil, "g")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ecommerce.dlq.t")
}
