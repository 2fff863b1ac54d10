package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"wingo/events"
)

const (
	sourceService      = "wingo-engine"
	eventStreamName    = "wingo_events"
	natsPublishTimeout = 5 * time.Second

	// DefaultPublishQueueSize bounds the events waiting for NATS
	DefaultPublishQueueSize = 1024
)

// ErrPublisherClosed is returned by Publish after Close
var ErrPublisherClosed = errors.New("event publisher closed")

// messagePublisher is the subset of NATSClient the event publisher needs
type messagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// connectionChecker is implemented by clients that know their connection state
type connectionChecker interface {
	IsConnected() bool
}

var (
	_ messagePublisher  = (*NATSClient)(nil)
	_ connectionChecker = (*NATSClient)(nil)
)

// EventEnvelope wraps every event published to NATS
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	subject   string
	eventType string
	eventID   string
	data      []byte
}

// NATSEventPublisher hands events to local handlers, then queues them for a
// single dispatcher goroutine that publishes to NATS. Publish never waits on
// NATS; when the queue is full the event is dropped.
type NATSEventPublisher struct {
	client        messagePublisher
	subjectMapper *EventSubjectMapper
	local         events.Publisher
	metrics       publishRecorder

	queue  chan outboundMessage
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

type publishRecorder interface {
	RecordEventPublished(eventType string, success bool)
}

// NewNATSEventPublisher creates a publisher and starts its dispatcher. local
// receives every event before it is queued and may be nil. Call Close to
// drain the queue on shutdown.
func NewNATSEventPublisher(client messagePublisher, subjectMapper *EventSubjectMapper, local events.Publisher, metrics publishRecorder, queueSize int) *NATSEventPublisher {
	if queueSize <= 0 {
		queueSize = DefaultPublishQueueSize
	}

	p := &NATSEventPublisher{
		client:        client,
		subjectMapper: subjectMapper,
		local:         local,
		metrics:       metrics,
		queue:         make(chan outboundMessage, queueSize),
		done:          make(chan struct{}),
	}
	go p.dispatch()
	return p
}

// Publish delivers the event locally and queues it for NATS
func (p *NATSEventPublisher) Publish(event events.Event) error {
	if p.local != nil {
		if err := p.local.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Local event handler failed")
		}
	}

	data, envelope, err := Encode(event)
	if err != nil {
		return err
	}

	msg := outboundMessage{
		subject:   p.subjectMapper.MapEventToSubject(event),
		eventType: envelope.EventType,
		eventID:   envelope.EventID,
		data:      data,
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.queue <- msg:
		return nil
	default:
		p.recordPublished(msg.eventType, false)
		return fmt.Errorf("event queue full, dropped %s event %s", msg.eventType, msg.eventID)
	}
}

// Close stops accepting events and waits until queued ones are sent or ctx ends
func (p *NATSEventPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%d events not published before shutdown: %w", len(p.queue), ctx.Err())
	}
}

func (p *NATSEventPublisher) dispatch() {
	defer close(p.done)

	for msg := range p.queue {
		p.send(msg)
	}
}

func (p *NATSEventPublisher) send(msg outboundMessage) {
	fields := log.Fields{
		"eventType": msg.eventType,
		"eventId":   msg.eventID,
		"subject":   msg.subject,
	}

	if checker, ok := p.client.(connectionChecker); ok && !checker.IsConnected() {
		p.recordPublished(msg.eventType, false)
		log.WithFields(fields).Warn("NATS not connected, dropping event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), natsPublishTimeout)
	defer cancel()

	err := p.client.Publish(ctx, msg.subject, msg.data)
	p.recordPublished(msg.eventType, err == nil)
	if err != nil {
		fields["error"] = err
		log.WithFields(fields).Error("Failed to publish event to NATS")
		return
	}

	log.WithFields(fields).Debug("Successfully published event to NATS")
}

func (p *NATSEventPublisher) recordPublished(eventType string, success bool) {
	if p.metrics != nil {
		p.metrics.RecordEventPublished(eventType, success)
	}
}

// Encode wraps an event in an envelope with a fresh event id
func Encode(event events.Event) ([]byte, *EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: sourceService,
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	return data, envelope, nil
}

// EnsureEventStream ensures the stream covering every published subject exists
func EnsureEventStream(client *NATSClient, mapper *EventSubjectMapper) error {
	return client.EnsureStream(eventStreamName, mapper.GetAllSubjects())
}
