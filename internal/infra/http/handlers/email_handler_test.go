package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/cohort-nurture/internal/entity"
	"github.com/xavierca1/cohort-nurture/internal/usecase"
)

type emailDeps struct {
	emails     *MockEmails
	leads      *MockReader
	automation *MockAutomation
}

func newEmailRouter(t *testing.T) (http.Handler, emailDeps) {
	t.Helper()
	deps := emailDeps{
		emails:     new(MockEmails),
		leads:      new(MockReader),
		automation: new(MockAutomation),
	}
	h := NewEmailHandler(deps.emails, deps.leads, deps.automation)

	r := chi.NewRouter()
	r.Mount("/api/email", h.Routes())
	r.NotFound(NotFound)
	return r, deps
}

func TestSendReminderOK(t *testing.T) {
	router, deps := newEmailRouter(t)
	deps.emails.On("SendReminder", mock.Anything, "lead-1", "final").
		Return(&usecase.SendEmailOutput{Kind: entity.EmailFinalReminder, MessageID: "<m@test>"}, nil)

	rec, resp := doRequest(t, router, http.MethodPost, "/api/email/send-reminder/lead-1/final", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "finalReminder email sent successfully", resp["message"])
	assert.Equal(t, "<m@test>", resp["messageId"])
}

func TestSendReminderInvalidType(t *testing.T) {
	router, deps := newEmailRouter(t)
	deps.emails.On("SendReminder", mock.Anything, "lead-1", "reminder3").Return(nil, &usecase.DomainError{
		Code:    usecase.CodeInvalidEmailKind,
		Message: "Invalid reminder type. Use: reminder1, reminder2, or final",
	})

	rec, resp := doRequest(t, router, http.MethodPost, "/api/email/send-reminder/lead-1/reminder3", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid reminder type. Use: reminder1, reminder2, or final", resp["message"])
}

func TestSendConfirmationNotFound(t *testing.T) {
	router, deps := newEmailRouter(t)
	deps.emails.On("SendConfirmation", mock.Anything, "nope").
		Return(nil, &usecase.DomainError{Code: usecase.CodeLeadNotFound, Message: "User not found"})

	rec, _ := doRequest(t, router, http.MethodPost, "/api/email/send-confirmation/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerAutomationReturnsReport(t *testing.T) {
	router, deps := newEmailRouter(t)
	deps.automation.On("RunPass", mock.Anything).Return(&usecase.SweepReport{Candidates: 3, Sent: 2, Stopped: 1}, nil)

	rec, resp := doRequest(t, router, http.MethodPost, "/api/email/trigger-automation", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	report := resp["report"].(map[string]any)
	assert.Equal(t, float64(2), report["sent"])
	assert.Equal(t, float64(1), report["stopped"])
}

func TestTriggerAutomationBusy(t *testing.T) {
	router, deps := newEmailRouter(t)
	deps.automation.On("RunPass", mock.Anything).Return(nil, usecase.ErrSweepInProgress)

	rec, resp := doRequest(t, router, http.MethodPost, "/api/email/trigger-automation", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "AUTOMATION_BUSY", resp["code"])
}

func TestTriggerAutomationAborted(t *testing.T) {
	router, deps := newEmailRouter(t)
	deps.automation.On("RunPass", mock.Anything).
		Return(&usecase.SweepReport{Aborted: true, Error: "query candidates: connection refused"}, nil)

	rec, resp := doRequest(t, router, http.MethodPost, "/api/email/trigger-automation", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, true, resp["report"].(map[string]any)["aborted"])
}

func TestStatsBreakdown(t *testing.T) {
	router, deps := newEmailRouter(t)
	deps.leads.On("Stats", mock.Anything).Return(&entity.LeadStats{
		TotalUsers:       5,
		TotalEmailsSent:  12,
		AvgEmailsPerUser: 2.4,
		UsersWithPayment: 1,
		StatusBreakdown: map[entity.LeadStatus]int{
			entity.StatusCompleted: 1,
			entity.StatusEmailSent: 4,
		},
	}, nil)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/email/stats", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	stats := resp["stats"].(map[string]any)
	assert.Equal(t, float64(12), stats["totalEmailsSent"])
	assert.Equal(t, 2.4, stats["avgEmailsPerUser"])

	breakdown := resp["statusBreakdown"].([]any)
	assert.Len(t, breakdown, 2)
	// ordered by lifecycle
	assert.Equal(t, "email_sent", breakdown[0].(map[string]any)["status"])
	assert.Equal(t, "completed", breakdown[1].(map[string]any)["status"])
}

func TestTestConfig(t *testing.T) {
	router, deps := newEmailRouter(t)
	deps.emails.On("SendTest", mock.Anything, usecase.TestEmailInput{TestEmail: "ops@example.com"}).
		Return(&usecase.SendEmailOutput{Kind: entity.EmailConfirmation, MessageID: "<t@test>"}, nil)

	rec, resp := doRequest(t, router, http.MethodPost, "/api/email/test-config", `{"testEmail":"ops@example.com"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Test email sent successfully", resp["message"])
}

func TestTestConfigSendFailure(t *testing.T) {
	router, deps := newEmailRouter(t)
	deps.emails.On("SendTest", mock.Anything, mock.Anything).Return(nil, &usecase.TechnicalError{
		Code:    usecase.CodeSendFailed,
		Message: "Failed to send email",
		Err:     errors.New("dial tcp: timeout"),
	})

	rec, resp := doRequest(t, router, http.MethodPost, "/api/email/test-config", `{"testEmail":"ops@example.com"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to send test email", resp["message"])
	assert.Equal(t, "dial tcp: timeout", resp["error"])
}

func TestUnknownRoute(t *testing.T) {
	router, _ := newEmailRouter(t)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/nothing", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", resp["message"])
}

func TestHealthDegraded(t *testing.T) {
	h := NewHealthHandler("development", map[string]HealthCheck{
		"database": func(ctx context.Context) error { return nil },
		"redis":    nil,
		"rabbitmq": func(ctx context.Context) error { return errors.New("connection closed") },
	})

	rec, resp := doRequest(t, http.HandlerFunc(h.Handle), http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]any)
	assert.Equal(t, "healthy", deps["database"])
	assert.Equal(t, "not configured", deps["redis"])
	assert.Equal(t, "unhealthy: connection closed", deps["rabbitmq"])
}

func TestHealthy(t *testing.T) {
	h := NewHealthHandler("production", map[string]HealthCheck{
		"database": func(ctx context.Context) error { return nil },
	})

	rec, resp := doRequest(t, http.HandlerFunc(h.Handle), http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "production", resp["environment"])
}
