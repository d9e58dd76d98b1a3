package audit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/serroba/link-registry/internal/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSink struct {
	mu      sync.Mutex
	created []*audit.LinkCreatedEvent
	updated []*audit.LinkUpdatedEvent
	deleted []*audit.LinkDeletedEvent
	done    chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{}, 3)}
}

func (s *recordingSink) LinkCreated(_ context.Context, event *audit.LinkCreatedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.created = append(s.created, event)
	s.done <- struct{}{}

	return nil
}

func (s *recordingSink) LinkUpdated(_ context.Context, event *audit.LinkUpdatedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updated = append(s.updated, event)
	s.done <- struct{}{}

	return nil
}

func (s *recordingSink) LinkDeleted(_ context.Context, event *audit.LinkDeletedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleted = append(s.deleted, event)
	s.done <- struct{}{}

	return nil
}

func TestPublishersToConsumers(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 10}, watermill.NopLogger{})
	sink := newRecordingSink()

	recorder := audit.NewRecorder(pubSub, sink, zap.NewNop())

	require.NoError(t, recorder.Start(context.Background()))

	publishers := audit.NewPublishers(pubSub)
	now := time.Now().UTC()

	require.NoError(t, publishers.Created(context.Background(), &audit.LinkCreatedEvent{
		Key: "abc", Destination: "https://example.com/x", Owner: "alice", Ledger: 7, OccurredAt: now,
	}))
	require.NoError(t, publishers.Updated(context.Background(), &audit.LinkUpdatedEvent{
		Key: "abc", Destination: "https://example.com/y", Owner: "alice", OccurredAt: now,
	}))
	require.NoError(t, publishers.Deleted(context.Background(), &audit.LinkDeletedEvent{
		Key: "abc", Owner: "alice", OccurredAt: now,
	}))

	for range 3 {
		select {
		case <-sink.done:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for events")
		}
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()

	require.Len(t, sink.created, 1)
	assert.Equal(t, "https://example.com/x", sink.created[0].Destination)
	assert.Equal(t, uint32(7), sink.created[0].Ledger)

	require.Len(t, sink.updated, 1)
	assert.Equal(t, "https://example.com/y", sink.updated[0].Destination)

	require.Len(t, sink.deleted, 1)
	assert.Equal(t, "abc", sink.deleted[0].Key)

	assert.NoError(t, recorder.Shutdown())
}

func TestDiscardPublishers(t *testing.T) {
	p := audit.DiscardPublishers()

	assert.NoError(t, p.Created(context.Background(), &audit.LinkCreatedEvent{}))
	assert.NoError(t, p.Updated(context.Background(), &audit.LinkUpdatedEvent{}))
	assert.NoError(t, p.Deleted(context.Background(), &audit.LinkDeletedEvent{}))
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := audit.NewLogSink(zap.New(core))

	_ = sink.LinkCreated(context.Background(), &audit.LinkCreatedEvent{Key: "abc", Owner: "alice", Generated: true})
	_ = sink.LinkUpdated(context.Background(), &audit.LinkUpdatedEvent{Key: "abc"})
	_ = sink.LinkDeleted(context.Background(), &audit.LinkDeletedEvent{Key: "abc"})

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "link created", entries[0].Message)
	assert.Equal(t, "audit", entries[0].LoggerName)
	assert.Equal(t, "abc", entries[0].ContextMap()["key"])
	assert.Equal(t, true, entries[0].ContextMap()["generated"])
	assert.Equal(t, "link deleted", entries[2].Message)
}
