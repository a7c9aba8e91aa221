package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	appctx "github.com/TomMcIver/Stock-Port/pkg/context"
	"github.com/TomMcIver/Stock-Port/pkg/metrics"
	"github.com/TomMcIver/Stock-Port/pkg/tracing"
)

// ErrUnprocessable marks a message that can never succeed. The consumer
// commits it and moves on instead of retrying.
var ErrUnprocessable = errors.New("unprocessable message")

// MessageHandler is called for each message received from Kafka
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// MessageReader is the subset of *kafka.Reader the consumer uses
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer fetches messages and fans them out to a fixed pool of workers.
// Each partition is pinned to one worker so offsets are committed in order.
type Consumer struct {
	reader  MessageReader
	logger  ectologger.Logger
	config  ConsumerConfig
	handler MessageHandler
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running bool
	mu      sync.Mutex
}

// NewConsumer creates a consumer backed by a kafka-go group reader
func NewConsumer(config ConsumerConfig, logger ectologger.Logger) (*Consumer, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if config.GroupID == "" {
		return nil, fmt.Errorf("group ID is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.GroupID,
		MinBytes:       config.MinBytes,
		MaxBytes:       config.MaxBytes,
		MaxWait:        config.MaxWait,
		StartOffset:    config.StartOffset,
		SessionTimeout: config.SessionTimeout,
	})

	return NewConsumerWithReader(reader, config, logger), nil
}

// NewConsumerWithReader creates a consumer over an existing reader
func NewConsumerWithReader(reader MessageReader, config ConsumerConfig, logger ectologger.Logger) *Consumer {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 5 * time.Second
	}
	return &Consumer{
		reader: reader,
		logger: logger,
		config: config,
	}
}

// Start begins consuming messages in the background
func (c *Consumer) Start(ctx context.Context, handler MessageHandler) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer is already running")
	}
	c.running = true
	c.handler = handler
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	queues := make([]chan kafka.Message, c.config.Workers)
	for i := range queues {
		queues[i] = make(chan kafka.Message, 1)
		c.wg.Add(1)
		go c.work(ctx, queues[i])
	}

	c.wg.Add(1)
	go c.fetchLoop(ctx, queues)

	c.logger.WithFields(map[string]any{
		"topic":   c.config.Topic,
		"group":   c.config.GroupID,
		"workers": c.config.Workers,
	}).Info("Kafka consumer started")
	return nil
}

// Stop cancels the loops, waits for in-flight messages and closes the reader
func (c *Consumer) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("failed to close reader: %w", err)
	}

	c.logger.Info("Kafka consumer stopped")
	return nil
}

func (c *Consumer) fetchLoop(ctx context.Context, queues []chan kafka.Message) {
	defer c.wg.Done()
	defer func() {
		for _, q := range queues {
			close(q)
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.WithError(err).Error("Failed to fetch message")
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}

		select {
		case queues[msg.Partition%len(queues)] <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) work(ctx context.Context, queue <-chan kafka.Message) {
	defer c.wg.Done()
	for msg := range queue {
		if !c.process(ctx, msg) {
			return
		}
	}
}

// process handles msg until it succeeds, is unprocessable or ctx ends, and
// commits it in the first two cases. It reports whether to keep going.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	msgCtx := messageContext(ctx, msg)
	log := c.logger.WithContext(msgCtx).WithFields(map[string]any{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	backoff := 100 * time.Millisecond
	for {
		err := c.handler(msgCtx, msg)
		if err == nil {
			metrics.RecordKafkaMessage(msg.Topic, "processed")
			break
		}
		if errors.Is(err, ErrUnprocessable) {
			log.WithError(err).Warn("Skipping unprocessable message")
			metrics.RecordKafkaMessage(msg.Topic, "skipped")
			break
		}

		log.WithError(err).Error("Handler failed, retrying")
		metrics.RecordKafkaMessage(msg.Topic, "retry")
		if !sleep(ctx, backoff) {
			return false
		}
		backoff = min(backoff*2, c.config.RetryBackoff)
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.WithError(err).Error("Failed to commit message")
	}
	return true
}

// messageContext carries the producer's trace into ctx
func messageContext(ctx context.Context, msg kafka.Message) context.Context {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	ctx = tracing.ExtractHeaders(ctx, headers)
	return appctx.SetOrigin(ctx, appctx.OriginKafka)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
