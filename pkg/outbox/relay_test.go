package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eloritzkovitz/voltrico/pkg/kafka"
)

type fakeStore struct {
	mu        sync.Mutex
	pending   []*Row
	published []int64
	failed    []int64
	parked    []int64
}

func (s *fakeStore) InsertTx(_ context.Context, _ pgx.Tx, row *Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.ID = int64(len(s.pending) + 1)
	s.pending = append(s.pending, row)
	return nil
}

func (s *fakeStore) ClaimPending(_ context.Context, limit int) ([]*Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := limit
	if n > len(s.pending) {
		n = len(s.pending)
	}
	claimed := s.pending[:n]
	s.pending = s.pending[n:]
	return claimed, nil
}

func (s *fakeStore) MarkPublished(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, id)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id int64, _ error, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, id)
	if maxAttempts <= 1 {
		s.parked = append(s.parked, id)
	}
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	sent   []*kafka.Event
	topics []string
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, event *kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, event)
	p.topics = append(p.topics, topic)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingRow(t *testing.T, id int64, eventType, entityID string, version int64) *Row {
	t.Helper()
	evt, err := kafka.NewEvent(eventType, entityID, version, "catalog", map[string]string{"name": "Kettle"})
	require.NoError(t, err)
	payload, err := evt.Marshal()
	require.NoError(t, err)
	return &Row{
		ID:        id,
		EventID:   evt.EventID,
		Topic:     kafka.TopicProductEvents,
		EventType: eventType,
		EntityID:  entityID,
		Version:   version,
		Payload:   payload,
		Status:    StatusPending,
	}
}

func TestRelay_PublishesPendingRows(t *testing.T) {
	store := &fakeStore{pending: []*Row{
		pendingRow(t, 1, kafka.EventProductCreated, "prod-1", 1),
		pendingRow(t, 2, kafka.EventProductUpdated, "prod-1", 2),
	}}
	pub := &fakePublisher{}

	relay := NewRelay(store, pub, DefaultRelayConfig(), testLogger())
	require.NoError(t, relay.Tick(context.Background()))

	assert.Equal(t, []int64{1, 2}, store.published)
	require.Len(t, pub.sent, 2)
	assert.Equal(t, kafka.EventProductCreated, pub.sent[0].Type)
	assert.Equal(t, int64(2), pub.sent[1].Version)
	assert.Equal(t, []string{kafka.TopicProductEvents, kafka.TopicProductEvents}, pub.topics)
}

func TestRelay_MarksFailedOnPublishError(t *testing.T) {
	store := &fakeStore{pending: []*Row{
		pendingRow(t, 1, kafka.EventOrderCreated, "order-1", 1),
	}}
	pub := &fakePublisher{err: errors.New("broker down")}

	relay := NewRelay(store, pub, DefaultRelayConfig(), testLogger())
	require.NoError(t, relay.Tick(context.Background()))

	assert.Empty(t, store.published)
	assert.Equal(t, []int64{1}, store.failed)
}

func TestRelay_ParksCorruptPayloadImmediately(t *testing.T) {
	store := &fakeStore{pending: []*Row{
		{ID: 9, Topic: kafka.TopicProductEvents, Payload: []byte("not json")},
	}}
	pub := &fakePublisher{}

	relay := NewRelay(store, pub, DefaultRelayConfig(), testLogger())
	require.NoError(t, relay.Tick(context.Background()))

	assert.Empty(t, pub.sent)
	assert.Equal(t, []int64{9}, store.parked)
}

func TestRelay_EmptyOutboxIsANoop(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}

	relay := NewRelay(store, pub, DefaultRelayConfig(), testLogger())
	require.NoError(t, relay.Tick(context.Background()))

	assert.Empty(t, pub.sent)
	assert.Empty(t, store.published)
	assert.Empty(t, store.failed)
}
