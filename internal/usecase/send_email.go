package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/xavierca1/cohort-nurture/internal/entity"
	"github.com/xavierca1/cohort-nurture/internal/pkg/logger"
)

const testRecipientName = "Test User"

// SendEmailUseCase covers the admin-triggered sends outside the automation.
type SendEmailUseCase struct {
	Repo        LeadRepository
	Mail        MailGateway
	Events      EventPublisher
	Metrics     MetricsRecorder
	Clock       Clock
	SendTimeout time.Duration
	log         zerolog.Logger
}

func NewSendEmailUseCase(repo LeadRepository, mail MailGateway, events EventPublisher, metrics MetricsRecorder) *SendEmailUseCase {
	return &SendEmailUseCase{
		Repo:        repo,
		Mail:        mail,
		Events:      events,
		Metrics:     metrics,
		Clock:       systemClock,
		SendTimeout: DefaultSendTimeout,
		log:         logger.Component("send_email"),
	}
}

func (uc *SendEmailUseCase) SendConfirmation(ctx context.Context, leadID string) (*SendEmailOutput, error) {
	return uc.send(ctx, leadID, entity.EmailConfirmation)
}

// SendReminder accepts reminder1, reminder2 or final.
func (uc *SendEmailUseCase) SendReminder(ctx context.Context, leadID, reminder string) (*SendEmailOutput, error) {
	kind, err := entity.ParseReminderKind(reminder)
	if err != nil {
		return nil, &DomainError{
			Code:    CodeInvalidEmailKind,
			Message: "Invalid reminder type. Use: reminder1, reminder2, or final",
		}
	}
	return uc.send(ctx, leadID, kind)
}

// SendTest sends the confirmation template to an arbitrary address to check
// the mail setup. Nothing is persisted.
func (uc *SendEmailUseCase) SendTest(ctx context.Context, input TestEmailInput) (*SendEmailOutput, error) {
	if errs := ValidateTestEmailInput(input); len(errs) > 0 {
		return nil, &DomainError{Code: CodeValidation, Message: "Test email address is required"}
	}

	res := sendWithTimeout(ctx, uc.Mail, uc.SendTimeout, entity.EmailRequest{
		To:          entity.NormalizeEmail(input.TestEmail),
		Kind:        entity.EmailConfirmation,
		DisplayName: testRecipientName,
	})
	if uc.Metrics != nil {
		uc.Metrics.RecordEmail(entity.EmailConfirmation, res.Success)
	}
	if !res.Success {
		return nil, sendFailed(res.Reason)
	}

	return &SendEmailOutput{Kind: entity.EmailConfirmation, MessageID: res.MessageID}, nil
}

func (uc *SendEmailUseCase) send(ctx context.Context, leadID string, kind entity.EmailKind) (*SendEmailOutput, error) {
	lead, err := uc.Repo.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, leadNotFound()
		}
		return nil, databaseError("failed to load lead", err)
	}
	if !lead.IsCandidate() {
		return nil, &DomainError{Code: CodeLeadTerminal, Message: entity.ErrLeadTerminal.Error()}
	}

	log := uc.log.With().
		Str(logger.LEAD, lead.ID).
		Str(logger.EMAIL, logger.RedactEmail(lead.Email)).
		Str(logger.KIND, string(kind)).
		Logger()

	res := sendWithTimeout(ctx, uc.Mail, uc.SendTimeout, entity.EmailRequest{
		To:          lead.Email,
		Kind:        kind,
		DisplayName: lead.Name,
	})
	if uc.Metrics != nil {
		uc.Metrics.RecordEmail(kind, res.Success)
	}
	if !res.Success {
		log.Warn().Str("reason", res.Reason).Msg("manual send failed")
		return nil, sendFailed(res.Reason)
	}

	// Only the confirmation moves the lead, and only out of submitted. Every
	// other manual send leaves the status to the store, which may have been
	// advanced by a pass while the mail was in flight.
	from, next := entity.StatusSubmitted, entity.StatusSubmitted
	if kind == entity.EmailConfirmation {
		next = entity.StatusEmailSent
	}

	sentAt := uc.Clock()
	updated, err := uc.Repo.RecordEmailSent(context.WithoutCancel(ctx), lead.ID, from, next, sentAt)
	if err != nil {
		log.Error().Err(err).Msg("record manual send")
		return nil, databaseError("email sent but the lead could not be updated", err)
	}

	log.Info().Int("email_count", updated.EmailCount).Msg("manual email sent")

	evt := entity.NewLeadEvent(entity.EventLeadEmailSent, updated, sentAt)
	evt.EmailKind = kind
	publishEvent(ctx, uc.Events, log, evt)

	return &SendEmailOutput{Lead: updated, Kind: kind, MessageID: res.MessageID}, nil
}

func sendFailed(reason string) *TechnicalError {
	return &TechnicalError{Code: CodeSendFailed, Message: "Failed to send email", Err: errors.New(reason)}
}
