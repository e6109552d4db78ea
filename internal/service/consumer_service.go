// FILE: internal/service/consumer_service.go
package service

import (
	"context"

	"dota-report-be/internal/pkg/logger"
	"dota-report-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventSink receives report lifecycle events after they leave the in-process
// bus. The NATS publisher and the websocket hub both implement it.
type EventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	sinks      []EventSink
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	log logger.ILogger,
	sinks ...EventSink,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		sinks:      sinks,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Decode(msg.Payload)
	if err != nil {
		cs.logger.Error("CONSUMER", "Failed to decode event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite redelivery
		return
	}

	cs.logger.Info("CONSUMER", "Report event", map[string]interface{}{
		"type":      event.Type,
		"owner":     event.Data["owner"],
		"report_id": event.Data["report_id"],
	})

	// Forward failures are logged, never redelivered.
	for _, sink := range cs.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			cs.logger.Warn("CONSUMER", "Failed to forward event", map[string]interface{}{
				"type":  event.Type,
				"error": err.Error(),
			})
		}
	}

	msg.Ack()
}
