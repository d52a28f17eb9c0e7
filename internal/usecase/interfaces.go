package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/cohort-nurture/internal/entity"
)

type LeadRepository interface {
	entity.LeadRepositoryInterface
}

// MailGateway makes a single best-effort delivery attempt. It never retries.
type MailGateway interface {
	Send(ctx context.Context, req entity.EmailRequest) entity.SendResult
}

type EventPublisher interface {
	PublishLeadEvent(ctx context.Context, event entity.LeadEvent) error
}

type MetricsRecorder interface {
	RecordEmail(kind entity.EmailKind, success bool)
	RecordSweep(report *SweepReport)
}

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
