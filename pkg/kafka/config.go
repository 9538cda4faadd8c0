package kafka

import "time"

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds producer configuration.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration
	Async        bool
	HashByKey    bool
}

// WithBrokers sets Kafka brokers.
func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Brokers = brokers
	}
}

// WithCompression sets compression type.
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) {
		c.Compression = compression
	}
}

// WithRequiredAcks sets required acknowledgements (-1 = all).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
	}
}

// WithBatchSize sets batch size.
func WithBatchSize(size int) ProducerOption {
	return func(c *ProducerConfig) {
		c.BatchSize = size
	}
}

// WithBatchTimeout sets batch timeout.
func WithBatchTimeout(timeout time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.BatchTimeout = timeout
	}
}

// WithTimeouts sets writer read/write timeouts.
func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.WriteTimeout = write
		c.ReadTimeout = read
	}
}

// WithAsync toggles async writes (fire-and-forget).
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.Async = async
	}
}

// WithHashByKey sets hash balancer for per-key (pair) ordering.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) {
		c.HashByKey = hash
	}
}

// ReaderOption configures Reader construction.
type ReaderOption func(*ReaderConfig)

// ReaderConfig holds reader configuration.
type ReaderConfig struct {
	Brokers         []string
	Topic           string
	GroupID         string
	AutoOffsetReset string
	MinBytes        int
	MaxBytes        int
	MaxWait         time.Duration
}

// WithReaderBrokers sets Kafka brokers.
func WithReaderBrokers(brokers []string) ReaderOption {
	return func(c *ReaderConfig) {
		c.Brokers = brokers
	}
}

// WithReaderTopic sets the topic to consume.
func WithReaderTopic(topic string) ReaderOption {
	return func(c *ReaderConfig) {
		c.Topic = topic
	}
}

// WithReaderGroupID sets consumer group ID.
func WithReaderGroupID(groupID string) ReaderOption {
	return func(c *ReaderConfig) {
		c.GroupID = groupID
	}
}

// WithReaderAutoOffsetReset sets offset reset strategy (earliest or latest).
func WithReaderAutoOffsetReset(reset string) ReaderOption {
	return func(c *ReaderConfig) {
		c.AutoOffsetReset = reset
	}
}

// WithReaderFetch sets fetch min/max bytes.
func WithReaderFetch(minBytes, maxBytes int) ReaderOption {
	return func(c *ReaderConfig) {
		c.MinBytes = minBytes
		c.MaxBytes = maxBytes
	}
}

// WithReaderMaxWait caps how long a fetch blocks waiting for MinBytes.
func WithReaderMaxWait(d time.Duration) ReaderOption {
	return func(c *ReaderConfig) {
		c.MaxWait = d
	}
}
