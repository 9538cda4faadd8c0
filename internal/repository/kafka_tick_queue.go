package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	pkgkafka "PairFlow/pkg/kafka"
	applogger "PairFlow/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// tickMessage is the Kafka wire shape of a tick.
type tickMessage struct {
	Pair       string  `json:"pair"`
	Price      float64 `json:"price"`
	Size       float64 `json:"size"`
	EventTime  int64   `json:"event_time"` // us
	SequenceID uint64  `json:"seq"`
}

func decodeTickMessage(b []byte) (*models.Tick, error) {
	var m tickMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode tick: %w", err)
	}
	return &models.Tick{
		Pair:       m.Pair,
		Price:      m.Price,
		Size:       m.Size,
		EventTime:  m.EventTime,
		SequenceID: m.SequenceID,
	}, nil
}

// KafkaTickPublisher fans ticks out to a single Kafka topic keyed by pair, so
// a hash balancer keeps per-pair ordering across partitions.
type KafkaTickPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaTickPublisher(producer *pkgkafka.Producer, topic string) *KafkaTickPublisher {
	return &KafkaTickPublisher{producer: producer, topic: topic}
}

func (p *KafkaTickPublisher) Publish(ctx context.Context, t *models.Tick) error {
	msg := tickMessage{
		Pair:       t.Pair,
		Price:      t.Price,
		Size:       t.Size,
		EventTime:  t.EventTime,
		SequenceID: t.SequenceID,
	}
	return p.producer.Publish(ctx, p.topic, []byte(t.Pair), msg)
}

func (p *KafkaTickPublisher) Close() error { return p.producer.Close() }

var _ domrepo.TickPublisher = (*KafkaTickPublisher)(nil)

// KafkaTickSource consumes ticks from a Kafka topic through a consumer group.
// Offsets are committed after handoff; a crash replays at-least-once and the
// buffer's sequence dedup absorbs the duplicates.
type KafkaTickSource struct {
	newReader func() (*kafka.Reader, error)
	log       *applogger.Logger

	reader    *kafka.Reader
	connected bool
}

func NewKafkaTickSource(brokers []string, topic, groupID string, log *applogger.Logger) domrepo.TickSource {
	return &KafkaTickSource{
		newReader: func() (*kafka.Reader, error) {
			return pkgkafka.NewReader(
				pkgkafka.WithReaderBrokers(brokers),
				pkgkafka.WithReaderTopic(topic),
				pkgkafka.WithReaderGroupID(groupID),
				pkgkafka.WithReaderAutoOffsetReset("latest"),
			)
		},
		log: log,
	}
}

func (s *KafkaTickSource) Connect(context.Context) error {
	r, err := s.newReader()
	if err != nil {
		return fmt.Errorf("kafka reader: %w", err)
	}
	s.reader = r
	s.connected = true
	return nil
}

// Subscribe only validates state; the reader already carries its topic and
// consumer group.
func (s *KafkaTickSource) Subscribe(context.Context) error {
	if s.reader == nil || !s.connected {
		return fmt.Errorf("kafka tick source not connected")
	}
	return nil
}

func (s *KafkaTickSource) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	ticks := make(chan *models.Tick, 1024)
	errs := make(chan error, 1)

	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			if s.reader == nil {
				errs <- fmt.Errorf("kafka reader nil")
				return
			}
			msg, err := s.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				errs <- fmt.Errorf("kafka fetch: %w", err)
				return
			}

			tick, err := decodeTickMessage(msg.Value)
			if err != nil {
				s.log.Warn("kafka tick skipped",
					applogger.String("topic", msg.Topic),
					applogger.Int64("offset", msg.Offset),
					applogger.Error(err))
			} else {
				select {
				case ticks <- tick:
				case <-ctx.Done():
					return
				}
			}

			if err := s.reader.CommitMessages(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warn("kafka commit failed",
					applogger.String("topic", msg.Topic),
					applogger.Int64("offset", msg.Offset),
					applogger.Error(err))
			}
		}
	}()

	return ticks, errs
}

func (s *KafkaTickSource) Reconnect(ctx context.Context) error {
	_ = s.Close()
	return s.Connect(ctx)
}

func (s *KafkaTickSource) Close() error {
	s.connected = false
	if s.reader != nil {
		return s.reader.Close()
	}
	return nil
}

func (s *KafkaTickSource) IsConnected() bool { return s.connected }
