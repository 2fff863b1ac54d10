package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wingo/events"
	"wingo/models"
)

type publishedMessage struct {
	subject string
	data    []byte
}

type fakeMessagePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

func (f *fakeMessagePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, publishedMessage{subject: subject, data: data})
	return nil
}

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(event events.Event) error {
	r.events = append(r.events, event)
	return r.err
}

type publishCount struct {
	success int
	failure int
}

type fakePublishRecorder struct {
	mu     sync.Mutex
	counts map[string]publishCount
}

func (f *fakePublishRecorder) count(eventType string) publishCount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[eventType]
}

func (f *fakePublishRecorder) RecordEventPublished(eventType string, success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[string]publishCount)
	}
	c := f.counts[eventType]
	if success {
		c.success++
	} else {
		c.failure++
	}
	f.counts[eventType] = c
}

// stalledMessagePublisher blocks every publish until released or the context ends
type stalledMessagePublisher struct {
	release chan struct{}
	fakeMessagePublisher
}

func newStalledMessagePublisher() *stalledMessagePublisher {
	return &stalledMessagePublisher{release: make(chan struct{})}
}

func (s *stalledMessagePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	select {
	case <-s.release:
		return s.fakeMessagePublisher.Publish(ctx, subject, data)
	case <-ctx.Done():
		return ctx.Err()
	}
}

type disconnectedMessagePublisher struct {
	fakeMessagePublisher
}

func (d *disconnectedMessagePublisher) IsConnected() bool {
	return false
}

func closePublisher(t *testing.T, publisher *NATSEventPublisher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, publisher.Close(ctx))
}

func TestNATSEventPublisher_PublishesEnvelopeToMappedSubject(t *testing.T) {
	client := &fakeMessagePublisher{}
	local := &recordingPublisher{}
	metrics := &fakePublishRecorder{}
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), local, metrics, 0)

	settledAt := time.Date(2025, 3, 14, 9, 27, 53, 0, time.UTC)
	event := events.RoundResultEvent{
		RoundID:      42,
		Period:       "20250314092653589",
		Interval:     "1m",
		ResultNumber: 5,
		Colors:       []string{"green", "violet"},
		Size:         "big",
		BetCount:     3,
		WinnerCount:  1,
		TotalStake:   decimal.NewFromInt(150),
		TotalPayout:  decimal.NewFromInt(90),
		SettledAt:    settledAt,
	}

	require.NoError(t, publisher.Publish(event))
	closePublisher(t, publisher)

	require.Len(t, client.messages, 1)
	assert.Equal(t, SubjectRoundResult, client.messages[0].subject)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(client.messages[0].data, &envelope))
	assert.Equal(t, string(events.EventTypeRoundResult), envelope.EventType)
	assert.Equal(t, "wingo-engine", envelope.SourceService)
	_, err := uuid.Parse(envelope.EventID)
	assert.NoError(t, err)

	var payload events.RoundResultEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, int64(42), payload.RoundID)
	assert.Equal(t, 5, payload.ResultNumber)
	assert.Equal(t, []string{"green", "violet"}, payload.Colors)
	assert.True(t, payload.TotalPayout.Equal(decimal.NewFromInt(90)))
	assert.True(t, payload.SettledAt.Equal(settledAt))

	require.Len(t, local.events, 1)
	assert.Equal(t, event.RoundID, local.events[0].(events.RoundResultEvent).RoundID)
	assert.Equal(t, publishCount{success: 1}, metrics.count(string(events.EventTypeRoundResult)))
}

func TestNATSEventPublisher_NATSFailureIsRecorded(t *testing.T) {
	client := &fakeMessagePublisher{err: errors.New("no responders")}
	local := &recordingPublisher{}
	metrics := &fakePublishRecorder{}
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), local, metrics, 0)

	// NATS failures surface in metrics and logs, never to the caller
	require.NoError(t, publisher.Publish(events.RoundSettledEvent{RoundID: 7, Interval: "1m"}))
	closePublisher(t, publisher)

	assert.Len(t, local.events, 1)
	assert.Equal(t, publishCount{failure: 1}, metrics.count(string(events.EventTypeRoundSettled)))
}

func TestNATSEventPublisher_LocalFailureDoesNotBlockNATS(t *testing.T) {
	client := &fakeMessagePublisher{}
	local := &recordingPublisher{err: errors.New("handler failed")}
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), local, nil, 0)

	require.NoError(t, publisher.Publish(events.RoundCreatedEvent{RoundID: 1, Interval: "30s"}))
	closePublisher(t, publisher)
	assert.Len(t, client.messages, 1)
	assert.Equal(t, SubjectRoundCreated, client.messages[0].subject)
}

func TestNATSEventPublisher_WithoutLocalHandlers(t *testing.T) {
	client := &fakeMessagePublisher{}
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), nil, nil, 0)

	require.NoError(t, publisher.Publish(events.BalanceChangeEvent{
		UserID:          3,
		OldBalance:      decimal.NewFromInt(10),
		NewBalance:      decimal.NewFromInt(28),
		TransactionType: models.TransactionTypeWingoWin,
		ChangeAmount:    decimal.NewFromInt(18),
	}))
	closePublisher(t, publisher)
	require.Len(t, client.messages, 1)
	assert.Equal(t, SubjectBalanceChange, client.messages[0].subject)
}

func TestNATSEventPublisher_StalledNATSDoesNotDelayFlush(t *testing.T) {
	client := newStalledMessagePublisher()
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), nil, nil, 0)

	bus := events.NewTransactionalBus(publisher)
	require.NoError(t, bus.Publish(events.BalanceChangeEvent{UserID: 7, ChangeAmount: decimal.NewFromInt(900)}))
	require.NoError(t, bus.Publish(events.RoundSettledEvent{RoundID: 11, Interval: "1m"}))
	require.NoError(t, bus.Publish(events.RoundResultEvent{RoundID: 11, Interval: "1m", ResultNumber: 5}))

	start := time.Now()
	bus.Flush()
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 0, bus.Pending())

	close(client.release)
	closePublisher(t, publisher)

	require.Len(t, client.messages, 3)
	assert.Equal(t, SubjectBalanceChange, client.messages[0].subject)
	assert.Equal(t, SubjectRoundSettled, client.messages[1].subject)
	assert.Equal(t, SubjectRoundResult, client.messages[2].subject)
}

func TestNATSEventPublisher_DropsWhenQueueFull(t *testing.T) {
	client := newStalledMessagePublisher()
	metrics := &fakePublishRecorder{}
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), nil, metrics, 1)

	// The dispatcher holds at most one event while stalled and the queue one more
	_ = publisher.Publish(events.RoundSettledEvent{RoundID: 1})
	_ = publisher.Publish(events.RoundSettledEvent{RoundID: 2})
	err := publisher.Publish(events.RoundSettledEvent{RoundID: 3})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue full")
	assert.GreaterOrEqual(t, metrics.count(string(events.EventTypeRoundSettled)).failure, 1)

	close(client.release)
	closePublisher(t, publisher)
}

func TestNATSEventPublisher_SkipsWhileDisconnected(t *testing.T) {
	client := &disconnectedMessagePublisher{}
	metrics := &fakePublishRecorder{}
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), nil, metrics, 0)

	require.NoError(t, publisher.Publish(events.RoundCreatedEvent{RoundID: 1}))
	closePublisher(t, publisher)

	assert.Empty(t, client.messages)
	assert.Equal(t, publishCount{failure: 1}, metrics.count(string(events.EventTypeRoundCreated)))
}

func TestNATSEventPublisher_Close(t *testing.T) {
	t.Run("rejects events after close", func(t *testing.T) {
		publisher := NewNATSEventPublisher(&fakeMessagePublisher{}, NewEventSubjectMapper(), nil, nil, 0)
		closePublisher(t, publisher)

		err := publisher.Publish(events.RoundCreatedEvent{RoundID: 1})
		assert.ErrorIs(t, err, ErrPublisherClosed)
		// A second close is harmless
		closePublisher(t, publisher)
	})

	t.Run("gives up draining when the context ends", func(t *testing.T) {
		client := newStalledMessagePublisher()
		publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), nil, nil, 0)
		require.NoError(t, publisher.Publish(events.RoundCreatedEvent{RoundID: 1}))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := publisher.Close(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		close(client.release)
	})
}

func TestEncode_AssignsDistinctEventIDs(t *testing.T) {
	event := events.RoundSettledEvent{RoundID: 9}

	_, first, err := Encode(event)
	require.NoError(t, err)
	_, second, err := Encode(event)
	require.NoError(t, err)

	assert.NotEqual(t, first.EventID, second.EventID)
	assert.Equal(t, time.UTC, first.Timestamp.Location())
}

func TestEventSubjectMapper_CoversEveryEventType(t *testing.T) {
	mapper := NewEventSubjectMapper()

	tests := []struct {
		event    events.Event
		expected string
	}{
		{events.RoundCreatedEvent{}, SubjectRoundCreated},
		{events.RoundSettledEvent{}, SubjectRoundSettled},
		{events.RoundResultEvent{}, SubjectRoundResult},
		{events.BalanceChangeEvent{}, SubjectBalanceChange},
	}

	for _, tt := range tests {
		t.Run(string(tt.event.Type()), func(t *testing.T) {
			subject := mapper.MapEventToSubject(tt.event)
			assert.Equal(t, tt.expected, subject)
			assert.Contains(t, mapper.GetAllSubjects(), subject)
		})
	}
}
