// v0
// internal/dataset/kafka_test.go
package dataset

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobtread/Committers/internal/circuitbreaker"
)

type stubReader struct {
	offsets  []int64
	messages map[int64]kafka.Message
	fetchErr error
	closed   bool
	current  int64
}

func (s *stubReader) SetOffset(offset int64) error {
	s.offsets = append(s.offsets, offset)
	s.current = offset
	return nil
}

func (s *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if s.fetchErr != nil {
		return kafka.Message{}, s.fetchErr
	}
	msg, ok := s.messages[s.current]
	if !ok {
		return kafka.Message{}, io.EOF
	}
	return msg, nil
}

func (s *stubReader) Close() error {
	s.closed = true
	return nil
}

type stubOffsets struct {
	first, last int64
	err         error
	calls       int
}

func (s *stubOffsets) Offsets(context.Context) (int64, int64, error) {
	s.calls++
	return s.first, s.last, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKafkaSourceReadsLatestMessage(t *testing.T) {
	reader := &stubReader{messages: map[int64]kafka.Message{
		4: {Offset: 4, Value: []byte(`{"title":"old","users":[]}`)},
		5: {Offset: 5, Value: []byte(sampleJSON)},
	}}
	offsets := &stubOffsets{first: 0, last: 6}
	src := newKafkaSource(KafkaConfig{Topic: "leaderboard.snapshots", PollTimeout: time.Second}, reader, offsets, nil, discardLogger())

	snap, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "New Zealand", snap.Title)
	assert.Equal(t, []int64{5}, reader.offsets)

	require.NoError(t, src.Close())
	assert.True(t, reader.closed)
}

func TestKafkaSourceEmptyTopic(t *testing.T) {
	src := newKafkaSource(KafkaConfig{Topic: "t", PollTimeout: time.Second}, &stubReader{}, &stubOffsets{first: 3, last: 3}, nil, discardLogger())

	_, err := src.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestKafkaSourceRejectsMalformedPayload(t *testing.T) {
	reader := &stubReader{messages: map[int64]kafka.Message{0: {Value: []byte(`{"title":"x"}`)}}}
	src := newKafkaSource(KafkaConfig{Topic: "t", PollTimeout: time.Second}, reader, &stubOffsets{last: 1}, nil, discardLogger())

	_, err := src.Load(context.Background())
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestKafkaSourceBreakerFastFails(t *testing.T) {
	boom := errors.New("broker down")
	offsets := &stubOffsets{err: boom}
	breaker := circuitbreaker.New("snapshot", circuitbreaker.Config{MaxFailures: 1, ResetTimeout: time.Hour}, discardLogger())
	src := newKafkaSource(KafkaConfig{Topic: "t", PollTimeout: time.Second}, &stubReader{}, offsets, breaker, discardLogger())

	_, err := src.Load(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, circuitbreaker.Open, breaker.State())

	_, err = src.Load(context.Background())
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 1, offsets.calls)
}

func TestNewKafkaSourceValidatesConfig(t *testing.T) {
	_, err := NewKafkaSource(KafkaConfig{Topic: "t"}, nil, discardLogger())
	assert.Error(t, err)
	_, err = NewKafkaSource(KafkaConfig{Brokers: []string{"kafka:9092"}}, nil, discardLogger())
	assert.Error(t, err)
	_, err = NewKafkaSource(KafkaConfig{Brokers: []string{"kafka:9092"}, Topic: "t"}, nil, nil)
	assert.Error(t, err)
}
