package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/cohort-nurture/internal/entity"
	"github.com/xavierca1/cohort-nurture/internal/usecase"
)

type LeadSubmitter interface {
	Execute(ctx context.Context, input usecase.SubmitLeadInput) (*usecase.SubmitLeadOutput, error)
}

type LeadUpdater interface {
	Execute(ctx context.Context, id string, input usecase.UpdateLeadStatusInput) (*entity.Lead, error)
}

type LeadReader interface {
	List(ctx context.Context) ([]entity.Lead, error)
	Get(ctx context.Context, id string) (*entity.Lead, error)
	Stats(ctx context.Context) (*entity.LeadStats, error)
}

type EmailSender interface {
	SendConfirmation(ctx context.Context, leadID string) (*usecase.SendEmailOutput, error)
	SendReminder(ctx context.Context, leadID, reminder string) (*usecase.SendEmailOutput, error)
	SendTest(ctx context.Context, input usecase.TestEmailInput) (*usecase.SendEmailOutput, error)
}

// FormHandler serves the public interest form and the lead admin routes
// under /api/form.
type FormHandler struct {
	Submit      LeadSubmitter
	Update      LeadUpdater
	Leads       LeadReader
	Emails      EmailSender
	rateLimiter *RateLimiter
}

func NewFormHandler(submit LeadSubmitter, update LeadUpdater, leads LeadReader, emails EmailSender) *FormHandler {
	return &FormHandler{
		Submit:      submit,
		Update:      update,
		Leads:       leads,
		Emails:      emails,
		rateLimiter: NewRateLimiter(10, time.Minute), // 10 submissions/min per IP
	}
}

func (h *FormHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/submit", h.rateLimiter.Limit(h.SubmitLead))
	r.Get("/users", h.ListLeads)
	r.Get("/users/{id}", h.GetLead)
	r.Patch("/users/{id}/status", h.UpdateStatus)
	r.Post("/users/{id}/resend-email", h.ResendEmail)
	return r
}

type leadSummary struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Email  string            `json:"email"`
	Status entity.LeadStatus `json:"status"`
}

type submitLeadResponse struct {
	Success      bool        `json:"success"`
	Message      string      `json:"message"`
	User         leadSummary `json:"user"`
	EmailWarning string      `json:"emailWarning,omitempty"`
}

// SubmitLead (POST /api/form/submit)
func (h *FormHandler) SubmitLead(w http.ResponseWriter, r *http.Request) {
	var input usecase.SubmitLeadInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON")
		return
	}

	out, err := h.Submit.Execute(r.Context(), input)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	resp := submitLeadResponse{
		Success: true,
		Message: "Interest form submitted successfully! Check your email for confirmation.",
		User: leadSummary{
			ID:     out.Lead.ID,
			Name:   out.Lead.Name,
			Email:  out.Lead.Email,
			Status: out.Lead.Status,
		},
	}
	if !out.EmailSent {
		resp.Message = "Interest form submitted successfully! We'll contact you soon."
		resp.EmailWarning = out.EmailWarning
	}

	writeJSON(w, http.StatusCreated, resp)
}

// ListLeads (GET /api/form/users) newest first.
func (h *FormHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.Leads.List(r.Context())
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"users":   leads,
		"total":   len(leads),
	})
}

// GetLead (GET /api/form/users/{id})
func (h *FormHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.Leads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    lead,
	})
}

// UpdateStatus (PATCH /api/form/users/{id}/status) simulates opens, clicks and payments.
func (h *FormHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdateLeadStatusInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON")
		return
	}

	lead, err := h.Update.Execute(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User status updated successfully",
		"user":    lead,
	})
}

// ResendEmail (POST /api/form/users/{id}/resend-email)
func (h *FormHandler) ResendEmail(w http.ResponseWriter, r *http.Request) {
	out, err := h.Emails.SendConfirmation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Confirmation email resent successfully",
		"messageId": out.MessageID,
	})
}
