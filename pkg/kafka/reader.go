package kafka

import (
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewReader builds a consumer-group reader. Offsets are committed explicitly
// by the caller via CommitMessages after a fetched message is handed off.
func NewReader(opts ...ReaderOption) (*kafka.Reader, error) {
	cfg := &ReaderConfig{
		GroupID:         "default",
		AutoOffsetReset: "earliest",
		MinBytes:        1,
		MaxBytes:        10e6, // 10MB
		MaxWait:         500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	startOffset := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: startOffset,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
	}), nil
}
