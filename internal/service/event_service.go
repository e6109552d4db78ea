// FILE: internal/service/event_service.go
package service

import (
	"context"
	"fmt"

	"dota-report-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const ReportEventsTopic = "report_events"

type IEventService interface {
	Publish(ctx context.Context, event events.Event) error
}

type eventService struct {
	topicName string
	publisher message.Publisher
}

func NewEventService(topicName string, publisher message.Publisher) IEventService {
	return &eventService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (s *eventService) Publish(ctx context.Context, event events.Event) error {
	payload, err := events.Encode(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.EventType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	return s.publisher.Publish(s.topicName, msg)
}
