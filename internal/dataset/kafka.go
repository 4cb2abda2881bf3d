// v0
// internal/dataset/kafka.go
package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tidwall/gjson"

	"github.com/jacobtread/Committers/internal/circuitbreaker"
)

// ErrNoSnapshot is returned when the snapshot topic holds no message yet.
var ErrNoSnapshot = errors.New("snapshot topic is empty")

// KafkaConfig captures the settings needed to read the snapshot topic.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	Partition   int
	PollTimeout time.Duration
}

// messageReader is the subset of kafka.Reader used by KafkaSource.
type messageReader interface {
	SetOffset(offset int64) error
	FetchMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// offsetReader resolves the first and next-to-write offsets of a partition.
type offsetReader interface {
	Offsets(ctx context.Context) (first, last int64, err error)
}

// leaderOffsets asks the partition leader for its offset range.
type leaderOffsets struct {
	brokers   []string
	topic     string
	partition int
}

func (l leaderOffsets) Offsets(ctx context.Context) (int64, int64, error) {
	var lastErr error
	for _, broker := range l.brokers {
		conn, err := kafka.DialLeader(ctx, "tcp", broker, l.topic, l.partition)
		if err != nil {
			lastErr = err
			continue
		}
		first, last, err := conn.ReadOffsets()
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return first, last, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no brokers configured")
	}
	return 0, 0, fmt.Errorf("read offsets: %w", lastErr)
}

// KafkaSource reads the most recent snapshot published on a topic. It only
// consumes; the upstream collector owns publishing.
type KafkaSource struct {
	cfg     KafkaConfig
	reader  messageReader
	offsets offsetReader
	breaker *circuitbreaker.Breaker
	log     *slog.Logger
}

// NewKafkaSource builds a partition reader for the snapshot topic. The
// breaker is optional.
func NewKafkaSource(cfg KafkaConfig, breaker *circuitbreaker.Breaker, log *slog.Logger) (*KafkaSource, error) {
	if log == nil {
		return nil, errors.New("logger must not be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("snapshot topic must not be empty")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   cfg.Brokers,
		Topic:     cfg.Topic,
		Partition: cfg.Partition,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	offsets := leaderOffsets{brokers: cfg.Brokers, topic: cfg.Topic, partition: cfg.Partition}
	return newKafkaSource(cfg, reader, offsets, breaker, log), nil
}

func newKafkaSource(cfg KafkaConfig, reader messageReader, offsets offsetReader, breaker *circuitbreaker.Breaker, log *slog.Logger) *KafkaSource {
	return &KafkaSource{cfg: cfg, reader: reader, offsets: offsets, breaker: breaker, log: log}
}

// Load implements Loader by fetching the last message on the partition.
func (s *KafkaSource) Load(ctx context.Context) (Snapshot, error) {
	var msg kafka.Message
	fetch := func(ctx context.Context) error {
		first, last, err := s.offsets.Offsets(ctx)
		if err != nil {
			return err
		}
		if last <= first {
			return ErrNoSnapshot
		}
		if err := s.reader.SetOffset(last - 1); err != nil {
			return fmt.Errorf("seek snapshot offset: %w", err)
		}
		fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.PollTimeout)
		defer cancel()
		msg, err = s.reader.FetchMessage(fetchCtx)
		if err != nil {
			return fmt.Errorf("fetch snapshot: %w", err)
		}
		return nil
	}

	var err error
	if s.breaker != nil {
		err = s.breaker.Execute(ctx, fetch)
	} else {
		err = fetch(ctx)
	}
	if err != nil {
		s.log.Error("dataset_kafka_fetch_failed", slog.String("topic", s.cfg.Topic), slog.Any("err", err))
		return Snapshot{}, err
	}

	snap, err := DecodeJSON(msg.Value)
	if err != nil {
		s.log.Warn("dataset_kafka_decode_error",
			slog.Int64("offset", msg.Offset),
			slog.String("title", gjson.GetBytes(msg.Value, "title").String()),
			slog.Any("err", err),
		)
		return Snapshot{}, err
	}

	s.log.Info("dataset_kafka_loaded",
		slog.String("topic", s.cfg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
		slog.String("title", snap.Title),
		slog.Int("users", len(snap.Users)),
		slog.Time("generated_at", snap.GeneratedAt),
	)
	return snap, nil
}

// Close shuts down the underlying Kafka reader.
func (s *KafkaSource) Close() error {
	if s == nil || s.reader == nil {
		return nil
	}
	return s.reader.Close()
}
