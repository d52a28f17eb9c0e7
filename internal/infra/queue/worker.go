package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/xavierca1/cohort-nurture/internal/entity"
	"github.com/xavierca1/cohort-nurture/internal/infra/integration/kommo"
	"github.com/xavierca1/cohort-nurture/internal/pkg/logger"
)

// CRMClient receives leads that converted or dropped out.
type CRMClient interface {
	SyncLeadEvent(ctx context.Context, evt entity.LeadEvent, tag string) error
}

type Worker struct {
	Channel *amqp.Channel
	CRM     CRMClient
	log     zerolog.Logger
}

func NewWorker(ch *amqp.Channel, crm CRMClient) *Worker {
	return &Worker{
		Channel: ch,
		CRM:     crm,
		log:     logger.Component("lead_event_worker"),
	}
}

// Start consumes until ctx is cancelled or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	if err := w.Channel.Qos(10, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := w.Channel.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	w.log.Info().Str("queue", queueName).Msg("lead event worker started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var evt entity.LeadEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		w.log.Error().Err(err).Msg("malformed lead event, dead-lettering")
		d.Nack(false, false)
		return
	}

	log := w.log.With().Str(logger.LEAD, evt.LeadID).Str("event", string(evt.Type)).Logger()

	if err := w.process(ctx, evt); err != nil {
		// transient failures get one more delivery before the DLQ
		if retryable(err) && !d.Redelivered {
			log.Warn().Err(err).Msg("lead event failed, requeueing once")
			d.Nack(false, true)
			return
		}
		log.Error().Err(err).Bool("redelivered", d.Redelivered).Msg("lead event failed, dead-lettering")
		d.Nack(false, false)
		return
	}

	d.Ack(false)
}

func (w *Worker) process(ctx context.Context, evt entity.LeadEvent) error {
	var tag string
	switch evt.Type {
	case entity.EventLeadCompleted:
		tag = kommo.TagPaymentComplete
	case entity.EventLeadStopped:
		tag = kommo.TagAutomationStopped
	default:
		return nil
	}

	if w.CRM == nil {
		return nil
	}
	return w.CRM.SyncLeadEvent(ctx, evt, tag)
}

// retryable treats transport errors and 429/5xx answers as transient.
func retryable(err error) bool {
	if errors.Is(err, kommo.ErrNotConfigured) {
		return false
	}
	var apiErr *kommo.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}
