package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// fakeReader serves a fixed list of messages, then blocks until cancelled
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedOffsets(partition int) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int64
	for _, m := range r.committed {
		if m.Partition == partition {
			out = append(out, m.Offset)
		}
	}
	return out
}

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func TestConsumer_CommitsInPartitionOrder(t *testing.T) {
	reader := &fakeReader{}
	for offset := int64(0); offset < 10; offset++ {
		for partition := 0; partition < 3; partition++ {
			reader.messages = append(reader.messages, kafka.Message{Topic: "news", Partition: partition, Offset: offset})
		}
	}

	consumer := NewConsumerWithReader(reader, ConsumerConfig{Topic: "news", Workers: 2}, testLogger())
	require.NoError(t, consumer.Start(context.Background(), func(_ context.Context, _ kafka.Message) error {
		return nil
	}))

	require.Eventually(t, func() bool { return reader.committedCount() == 30 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, consumer.Stop())
	assert.True(t, reader.closed)

	for partition := 0; partition < 3; partition++ {
		assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, reader.committedOffsets(partition))
	}
}

func TestConsumer_SkipsUnprocessable(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{{Offset: 0}, {Offset: 1}}}

	consumer := NewConsumerWithReader(reader, ConsumerConfig{Workers: 1}, testLogger())
	require.NoError(t, consumer.Start(context.Background(), func(_ context.Context, msg kafka.Message) error {
		if msg.Offset == 0 {
			return ErrUnprocessable
		}
		return nil
	}))

	require.Eventually(t, func() bool { return reader.committedCount() == 2 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, consumer.Stop())
}

func TestConsumer_RetriesUntilSuccess(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{{Offset: 7}}}

	var mu sync.Mutex
	attempts := 0
	consumer := NewConsumerWithReader(reader, ConsumerConfig{Workers: 1, RetryBackoff: 10 * time.Millisecond}, testLogger())
	require.NoError(t, consumer.Start(context.Background(), func(_ context.Context, _ kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("broker unavailable")
		}
		return nil
	}))

	require.Eventually(t, func() bool { return reader.committedCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, consumer.Stop())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestConsumer_NeverCommitsFailingMessage(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{{Offset: 1}}}

	consumer := NewConsumerWithReader(reader, ConsumerConfig{Workers: 1, RetryBackoff: 5 * time.Millisecond}, testLogger())
	require.NoError(t, consumer.Start(context.Background(), func(_ context.Context, _ kafka.Message) error {
		return errors.New("still failing")
	}))

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, consumer.Stop())
	assert.Zero(t, reader.committedCount())
}

func TestNewConsumer_Validation(t *testing.T) {
	_, err := NewConsumer(ConsumerConfig{Topic: "news", GroupID: "g"}, testLogger())
	assert.Error(t, err)
	_, err = NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9092"}, GroupID: "g"}, testLogger())
	assert.Error(t, err)
	_, err = NewConsumer(ConsumerConfig{Brokers: []string{"localhost:9092"}, Topic: "news"}, testLogger())
	assert.Error(t, err)
}
