package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/xavierca1/cohort-nurture/internal/entity"
	"github.com/xavierca1/cohort-nurture/internal/pkg/logger"
)

// UpdateLeadStatusUseCase applies admin interaction overrides.
type UpdateLeadStatusUseCase struct {
	Repo   LeadRepository
	Events EventPublisher
	Clock  Clock
	log    zerolog.Logger
}

func NewUpdateLeadStatusUseCase(repo LeadRepository, events EventPublisher) *UpdateLeadStatusUseCase {
	return &UpdateLeadStatusUseCase{
		Repo:   repo,
		Events: events,
		Clock:  systemClock,
		log:    logger.Component("update_lead_status"),
	}
}

// Execute marks the lead completed in the same write when payment is set.
func (uc *UpdateLeadStatusUseCase) Execute(ctx context.Context, id string, input UpdateLeadStatusInput) (*entity.Lead, error) {
	update := input.toUpdate()
	now := uc.Clock()

	lead, err := uc.Repo.ApplyInteraction(ctx, id, update, now)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, leadNotFound()
		}
		return nil, databaseError("failed to update lead", err)
	}

	log := uc.log.With().Str(logger.LEAD, lead.ID).Str(logger.STATUS, string(lead.Status)).Logger()
	log.Info().Msg("lead interaction updated")

	if update.MarksPayment() {
		publishEvent(ctx, uc.Events, log, entity.NewLeadEvent(entity.EventLeadCompleted, lead, now))
	}

	return lead, nil
}

func leadNotFound() *DomainError {
	return &DomainError{Code: CodeLeadNotFound, Message: "User not found"}
}
