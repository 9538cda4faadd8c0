package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	applogger "PairFlow/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	tickStreamMaxLen = 100_000
	tickReadBlock    = 500 * time.Millisecond
	tickReadCount    = 500
)

// tickStreamKey returns the per-pair stream name, e.g. ticks:btcusdt.
func tickStreamKey(pair string) string {
	return "ticks:" + strings.ToLower(pair)
}

// RedisTickPublisher fans ticks out to per-pair Redis Streams. Streams are
// capped approximately so an absent consumer never grows memory unbounded.
type RedisTickPublisher struct {
	client *redis.Client
	log    *applogger.Logger
}

func NewRedisTickPublisher(client *redis.Client, log *applogger.Logger) *RedisTickPublisher {
	return &RedisTickPublisher{client: client, log: log}
}

func (p *RedisTickPublisher) Publish(ctx context.Context, t *models.Tick) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: tickStreamKey(t.Pair),
		MaxLen: tickStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"pair":       t.Pair,
			"price":      strconv.FormatFloat(t.Price, 'f', -1, 64),
			"size":       strconv.FormatFloat(t.Size, 'f', -1, 64),
			"event_time": strconv.FormatInt(t.EventTime, 10),
			"seq":        strconv.FormatUint(t.SequenceID, 10),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", tickStreamKey(t.Pair), err)
	}
	return nil
}

func (p *RedisTickPublisher) Close() error { return nil }

var _ domrepo.TickPublisher = (*RedisTickPublisher)(nil)

// RedisTickSource consumes ticks from per-pair Redis Streams through a
// consumer group, so multiple pipeline instances share the load and restarts
// resume from the pending entries list.
type RedisTickSource struct {
	client   *redis.Client
	group    string
	consumer string
	pairs    []string
	log      *applogger.Logger

	connected bool
}

func NewRedisTickSource(client *redis.Client, group string, pairs []string, log *applogger.Logger) domrepo.TickSource {
	return &RedisTickSource{
		client:   client,
		group:    group,
		consumer: "pairflow-" + uuid.NewString()[:8],
		pairs:    pairs,
		log:      log,
	}
}

func (s *RedisTickSource) Connect(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	s.connected = true
	return nil
}

// Subscribe creates the consumer group on every pair stream. An existing
// group is fine; the stream is created empty if the publisher has not written
// yet.
func (s *RedisTickSource) Subscribe(ctx context.Context) error {
	if !s.connected {
		return fmt.Errorf("redis tick source not connected")
	}
	for _, pair := range s.pairs {
		stream := tickStreamKey(pair)
		err := s.client.XGroupCreateMkStream(ctx, stream, s.group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("create group %s on %s: %w", s.group, stream, err)
		}
		s.log.Info("redis stream subscribed",
			applogger.String("stream", stream),
			applogger.String("group", s.group),
			applogger.String("consumer", s.consumer))
	}
	return nil
}

func (s *RedisTickSource) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	ticks := make(chan *models.Tick, 1024)
	errs := make(chan error, 1)

	streams := make([]string, 0, len(s.pairs)*2)
	for _, pair := range s.pairs {
		streams = append(streams, tickStreamKey(pair))
	}
	for range s.pairs {
		streams = append(streams, ">")
	}

	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			res, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    s.group,
				Consumer: s.consumer,
				Streams:  streams,
				Count:    tickReadCount,
				Block:    tickReadBlock,
			}).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue // block timeout, nothing pending
				}
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				errs <- fmt.Errorf("xreadgroup: %w", err)
				return
			}

			for _, stream := range res {
				for _, msg := range stream.Messages {
					tick, err := tickFromStreamValues(msg.Values)
					if err != nil {
						s.log.Warn("redis stream entry skipped",
							applogger.String("stream", stream.Stream),
							applogger.String("id", msg.ID),
							applogger.Error(err))
					} else {
						select {
						case ticks <- tick:
						case <-ctx.Done():
							return
						}
					}
					if err := s.client.XAck(ctx, stream.Stream, s.group, msg.ID).Err(); err != nil && !errors.Is(err, context.Canceled) {
						s.log.Warn("xack failed",
							applogger.String("stream", stream.Stream),
							applogger.String("id", msg.ID),
							applogger.Error(err))
					}
				}
			}
		}
	}()

	return ticks, errs
}

func tickFromStreamValues(values map[string]interface{}) (*models.Tick, error) {
	get := func(key string) (string, error) {
		v, ok := values[key]
		if !ok {
			return "", fmt.Errorf("missing field %q", key)
		}
		str, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("field %q is %T, want string", key, v)
		}
		return str, nil
	}

	pair, err := get("pair")
	if err != nil {
		return nil, err
	}
	priceStr, err := get("price")
	if err != nil {
		return nil, err
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", priceStr, err)
	}
	sizeStr, err := get("size")
	if err != nil {
		return nil, err
	}
	size, err := strconv.ParseFloat(sizeStr, 64)
	if err != nil {
		return nil, fmt.Errorf("parse size %q: %w", sizeStr, err)
	}
	etStr, err := get("event_time")
	if err != nil {
		return nil, err
	}
	eventTime, err := strconv.ParseInt(etStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse event_time %q: %w", etStr, err)
	}
	seqStr, err := get("seq")
	if err != nil {
		return nil, err
	}
	seq, err := strconv.ParseUint(seqStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse seq %q: %w", seqStr, err)
	}

	return &models.Tick{
		Pair:       pair,
		Price:      price,
		Size:       size,
		EventTime:  eventTime,
		SequenceID: seq,
	}, nil
}

func (s *RedisTickSource) Reconnect(ctx context.Context) error {
	s.connected = false
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

func (s *RedisTickSource) Close() error {
	s.connected = false
	return nil
}

func (s *RedisTickSource) IsConnected() bool { return s.connected }
