package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/xavierca1/cohort-nurture/internal/entity"
	"github.com/xavierca1/cohort-nurture/internal/usecase"
)

// AutomationTrigger runs one automation pass on demand. *usecase.Sweeper satisfies it.
type AutomationTrigger interface {
	RunPass(ctx context.Context) (*usecase.SweepReport, error)
}

// EmailHandler serves the manual email and automation routes under /api/email.
type EmailHandler struct {
	Emails     EmailSender
	Leads      LeadReader
	Automation AutomationTrigger
}

func NewEmailHandler(emails EmailSender, leads LeadReader, automation AutomationTrigger) *EmailHandler {
	return &EmailHandler{
		Emails:     emails,
		Leads:      leads,
		Automation: automation,
	}
}

func (h *EmailHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/send-confirmation/{userId}", h.SendConfirmation)
	r.Post("/send-reminder/{userId}/{type}", h.SendReminder)
	r.Post("/trigger-automation", h.TriggerAutomation)
	r.Get("/stats", h.Stats)
	r.Post("/test-config", h.TestConfig)
	return r
}

// SendConfirmation (POST /api/email/send-confirmation/{userId})
func (h *EmailHandler) SendConfirmation(w http.ResponseWriter, r *http.Request) {
	out, err := h.Emails.SendConfirmation(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Confirmation email sent successfully",
		"messageId": out.MessageID,
	})
}

// SendReminder (POST /api/email/send-reminder/{userId}/{type})
func (h *EmailHandler) SendReminder(w http.ResponseWriter, r *http.Request) {
	out, err := h.Emails.SendReminder(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "type"))
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   fmt.Sprintf("%s email sent successfully", out.Kind),
		"messageId": out.MessageID,
	})
}

// TriggerAutomation (POST /api/email/trigger-automation) runs a pass and
// returns its report.
func (h *EmailHandler) TriggerAutomation(w http.ResponseWriter, r *http.Request) {
	report, err := h.Automation.RunPass(r.Context())
	if errors.Is(err, usecase.ErrSweepInProgress) {
		writeErrorResponse(w, http.StatusConflict, "AUTOMATION_BUSY", "Email automation is already running")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("manual automation pass failed")
		writeErrorResponse(w, http.StatusInternalServerError, "", msgInternalError)
		return
	}

	if report.Aborted {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "Email automation aborted",
			"report":  report,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Email automation triggered successfully",
		"report":  report,
	})
}

type statsSummary struct {
	TotalUsers       int     `json:"totalUsers"`
	TotalEmailsSent  int     `json:"totalEmailsSent"`
	AvgEmailsPerUser float64 `json:"avgEmailsPerUser"`
	UsersWithPayment int     `json:"usersWithPayment"`
	UsersOpenedEmail int     `json:"usersOpenedEmail"`
	UsersClickedLink int     `json:"usersClickedLink"`
}

type statusCount struct {
	Status entity.LeadStatus `json:"status"`
	Count  int               `json:"count"`
}

// Stats (GET /api/email/stats)
func (h *EmailHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Leads.Stats(r.Context())
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	breakdown := make([]statusCount, 0, len(stats.StatusBreakdown))
	for _, s := range entity.AllStatuses() {
		if n, ok := stats.StatusBreakdown[s]; ok && n > 0 {
			breakdown = append(breakdown, statusCount{Status: s, Count: n})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats": statsSummary{
			TotalUsers:       stats.TotalUsers,
			TotalEmailsSent:  stats.TotalEmailsSent,
			AvgEmailsPerUser: stats.AvgEmailsPerUser,
			UsersWithPayment: stats.UsersWithPayment,
			UsersOpenedEmail: stats.UsersOpenedEmail,
			UsersClickedLink: stats.UsersClickedLink,
		},
		"statusBreakdown": breakdown,
	})
}

// TestConfig (POST /api/email/test-config) sends the confirmation template
// to an arbitrary address.
func (h *EmailHandler) TestConfig(w http.ResponseWriter, r *http.Request) {
	var input usecase.TestEmailInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON")
		return
	}

	out, err := h.Emails.SendTest(r.Context(), input)
	if err != nil {
		var te *usecase.TechnicalError
		if errors.As(err, &te) && te.Code == usecase.CodeSendFailed {
			te.Message = "Failed to send test email"
		}
		writeUseCaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Test email sent successfully",
		"messageId": out.MessageID,
	})
}
