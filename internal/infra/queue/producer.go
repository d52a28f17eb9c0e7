package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/cohort-nurture/internal/entity"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Producer publishes lead events. It satisfies usecase.EventPublisher.
type Producer struct {
	ch publisher
}

func NewProducer(ch *amqp.Channel) *Producer {
	return &Producer{ch: ch}
}

func (p *Producer) PublishLeadEvent(ctx context.Context, evt entity.LeadEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode lead event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Type:         string(evt.Type),
			Timestamp:    evt.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish lead event: %w", err)
	}
	return nil
}
