package infrastructure

import (
	"fmt"

	"wingo/events"
)

const (
	SubjectRoundCreated  = "wingo.round.created"
	SubjectRoundSettled  = "wingo.round.settled"
	SubjectRoundResult   = "wingo.round.result"
	SubjectBalanceChange = "wingo.balance.changed"
)

// EventSubjectMapper handles mapping between events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts an event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeRoundCreated:
		return SubjectRoundCreated
	case events.EventTypeRoundSettled:
		return SubjectRoundSettled
	case events.EventTypeRoundResult:
		return SubjectRoundResult
	case events.EventTypeBalanceChange:
		return SubjectBalanceChange
	default:
		return fmt.Sprintf("wingo.unknown.%s", event.Type())
	}
}

// GetAllSubjects returns all subjects this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		SubjectRoundCreated,
		SubjectRoundSettled,
		SubjectRoundResult,
		SubjectBalanceChange,
	}
}
