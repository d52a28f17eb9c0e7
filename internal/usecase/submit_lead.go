package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/xavierca1/cohort-nurture/internal/entity"
	"github.com/xavierca1/cohort-nurture/internal/pkg/logger"
)

const confirmationWarning = "Confirmation email could not be sent"

type SubmitLeadUseCase struct {
	Repo        LeadRepository
	Mail        MailGateway
	Events      EventPublisher
	Metrics     MetricsRecorder
	Clock       Clock
	SendTimeout time.Duration
	log         zerolog.Logger
}

func NewSubmitLeadUseCase(repo LeadRepository, mail MailGateway, events EventPublisher, metrics MetricsRecorder) *SubmitLeadUseCase {
	return &SubmitLeadUseCase{
		Repo:        repo,
		Mail:        mail,
		Events:      events,
		Metrics:     metrics,
		Clock:       systemClock,
		SendTimeout: DefaultSendTimeout,
		log:         logger.Component("submit_lead"),
	}
}

// Execute stores a new lead and sends the confirmation email. A failed send
// still returns the lead, left in the submitted status with a warning.
func (uc *SubmitLeadUseCase) Execute(ctx context.Context, input SubmitLeadInput) (*SubmitLeadOutput, error) {
	if errs := ValidateSubmitLeadInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	lead, err := entity.NewLead(input.Name, input.Email, input.Phone, uc.Clock())
	if err != nil {
		return nil, &DomainError{Code: CodeValidation, Message: err.Error()}
	}

	if err := uc.Repo.Insert(ctx, lead); err != nil {
		if errors.Is(err, entity.ErrEmailAlreadyExists) {
			return nil, &DomainError{
				Code:    CodeEmailExists,
				Message: "A user with this email already exists",
			}
		}
		return nil, databaseError("failed to save lead", err)
	}

	log := uc.log.With().Str(logger.LEAD, lead.ID).Str(logger.EMAIL, logger.RedactEmail(lead.Email)).Logger()
	publishEvent(ctx, uc.Events, log, entity.NewLeadEvent(entity.EventLeadSubmitted, lead, lead.SubmittedAt))

	res := sendWithTimeout(ctx, uc.Mail, uc.SendTimeout, entity.EmailRequest{
		To:          lead.Email,
		Kind:        entity.EmailConfirmation,
		DisplayName: lead.Name,
	})
	if uc.Metrics != nil {
		uc.Metrics.RecordEmail(entity.EmailConfirmation, res.Success)
	}
	if !res.Success {
		log.Warn().Str("reason", res.Reason).Msg("confirmation email failed")
		return &SubmitLeadOutput{Lead: lead, EmailWarning: confirmationWarning}, nil
	}

	sentAt := uc.Clock()
	updated, err := uc.Repo.RecordEmailSent(context.WithoutCancel(ctx), lead.ID, entity.StatusSubmitted, entity.StatusEmailSent, sentAt)
	if err != nil {
		// the mail is out; the next manual resend or pass reconciles the record
		log.Error().Err(err).Msg("record confirmation send")
		lead.RecordEmailSent(entity.StatusSubmitted, entity.StatusEmailSent, sentAt)
		return &SubmitLeadOutput{Lead: lead, EmailSent: true, MessageID: res.MessageID}, nil
	}

	log.Info().Msg("lead submitted and confirmation sent")

	evt := entity.NewLeadEvent(entity.EventLeadEmailSent, updated, sentAt)
	evt.EmailKind = entity.EmailConfirmation
	publishEvent(ctx, uc.Events, log, evt)

	return &SubmitLeadOutput{Lead: updated, EmailSent: true, MessageID: res.MessageID}, nil
}
