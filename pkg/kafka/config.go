package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// ConsumerConfig holds article consumer configuration
type ConsumerConfig struct {
	Brokers        []string
	Topic          string
	GroupID        string
	Workers        int
	MinBytes       int
	MaxBytes       int
	MaxWait        time.Duration
	StartOffset    int64
	SessionTimeout time.Duration
	// RetryBackoff caps the delay between handler retries
	RetryBackoff time.Duration
}

// DefaultConsumerConfig returns consumer defaults for the given brokers
func DefaultConsumerConfig(brokers []string, topic, groupID string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		Workers:        4,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.FirstOffset,
		SessionTimeout: 30 * time.Second,
		RetryBackoff:   5 * time.Second,
	}
}

// ProducerConfig holds tag event producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
	WriteTimeout time.Duration
}
