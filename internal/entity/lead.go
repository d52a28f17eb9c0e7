package entity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrLeadNotFound       = errors.New("lead not found")
	ErrEmailAlreadyExists = errors.New("a lead with this email already exists")
	ErrLeadTerminal       = errors.New("lead is no longer eligible for emails")
)

type LeadStatus string

const (
	StatusSubmitted     LeadStatus = "submitted"
	StatusEmailSent     LeadStatus = "email_sent"
	StatusReminder1     LeadStatus = "reminder_1"
	StatusReminder2     LeadStatus = "reminder_2"
	StatusFinalReminder LeadStatus = "final_reminder"
	StatusCompleted     LeadStatus = "completed"
	StatusStopped       LeadStatus = "stopped"
)

// TerminalStatuses are never picked up by the automation.
var TerminalStatuses = []LeadStatus{StatusCompleted, StatusStopped}

var allStatuses = []LeadStatus{
	StatusSubmitted, StatusEmailSent, StatusReminder1, StatusReminder2,
	StatusFinalReminder, StatusCompleted, StatusStopped,
}

func AllStatuses() []LeadStatus {
	out := make([]LeadStatus, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func (s LeadStatus) Valid() bool {
	for _, st := range allStatuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s LeadStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusStopped
}

// Lead is one prospect who submitted the interest form.
type Lead struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	Status          LeadStatus `json:"status"`
	EmailOpened     bool       `json:"emailOpened"`
	ClickedLink     bool       `json:"clickedLink"`
	PaymentComplete bool       `json:"paymentComplete"`
	LastEmailSent   *time.Time `json:"lastEmailSent,omitempty"`
	EmailCount      int        `json:"emailCount"`
	SubmittedAt     time.Time  `json:"submittedAt"`
	LastInteraction time.Time  `json:"lastInteraction"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// InteractionUpdate carries the admin overrides. Nil fields are left untouched.
type InteractionUpdate struct {
	EmailOpened     *bool `json:"emailOpened,omitempty"`
	ClickedLink     *bool `json:"clickedLink,omitempty"`
	PaymentComplete *bool `json:"paymentComplete,omitempty"`
}

func (u InteractionUpdate) MarksPayment() bool {
	return u.PaymentComplete != nil && *u.PaymentComplete
}

// LeadStats is the dashboard aggregate over every lead.
type LeadStats struct {
	TotalUsers       int                `json:"totalUsers"`
	TotalEmailsSent  int                `json:"totalEmailsSent"`
	AvgEmailsPerUser float64            `json:"avgEmailsPerUser"`
	UsersWithPayment int                `json:"usersWithPayment"`
	UsersOpenedEmail int                `json:"usersOpenedEmail"`
	UsersClickedLink int                `json:"usersClickedLink"`
	StatusBreakdown  map[LeadStatus]int `json:"statusBreakdown"`
}

type LeadRepositoryInterface interface {
	Insert(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	FindAll(ctx context.Context) ([]Lead, error)
	FindCandidates(ctx context.Context) ([]Lead, error)
	RecordEmailSent(ctx context.Context, id string, from, next LeadStatus, sentAt time.Time) (*Lead, error)
	MarkStopped(ctx context.Context, id string, at time.Time) error
	ApplyInteraction(ctx context.Context, id string, update InteractionUpdate, at time.Time) (*Lead, error)
	Stats(ctx context.Context) (*LeadStats, error)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Factory
func NewLead(name, email, phone string, now time.Time) (*Lead, error) {
	lead := &Lead{
		ID:              uuid.New().String(),
		Name:            strings.TrimSpace(name),
		Email:           NormalizeEmail(email),
		Phone:           strings.TrimSpace(phone),
		Status:          StatusSubmitted,
		SubmittedAt:     now,
		LastInteraction: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := lead.Validate(); err != nil {
		return nil, err
	}

	return lead, nil
}

func (l *Lead) Validate() error {
	if l.Name == "" {
		return errors.New("name is required")
	}
	if l.Email == "" {
		return errors.New("email is required")
	}
	if l.Phone == "" {
		return errors.New("phone is required")
	}
	if !l.Status.Valid() {
		return errors.New("status is invalid")
	}
	return nil
}

// IsCandidate reports whether the automation sweep should look at this lead.
func (l *Lead) IsCandidate() bool {
	return !l.PaymentComplete && !l.Status.IsTerminal()
}

// ElapsedSinceLastEmail returns false when no email was ever sent.
func (l *Lead) ElapsedSinceLastEmail(now time.Time) (time.Duration, bool) {
	if l.LastEmailSent == nil {
		return 0, false
	}
	return now.Sub(*l.LastEmailSent), true
}

// RecordEmailSent mirrors the store update applied after a successful send.
// The status only moves from -> next; a lead that changed since it was read,
// or that paid, keeps its current status.
func (l *Lead) RecordEmailSent(from, next LeadStatus, sentAt time.Time) {
	if l.Status == from && !l.PaymentComplete {
		l.Status = next
	}
	l.EmailCount++
	t := sentAt
	l.LastEmailSent = &t
	l.UpdatedAt = sentAt
}

// ApplyInteraction mirrors the manual status update. Marking the payment as
// complete forces the completed status in the same step.
func (l *Lead) ApplyInteraction(u InteractionUpdate, at time.Time) {
	if u.EmailOpened != nil {
		l.EmailOpened = *u.EmailOpened
	}
	if u.ClickedLink != nil {
		l.ClickedLink = *u.ClickedLink
	}
	if u.PaymentComplete != nil {
		l.PaymentComplete = *u.PaymentComplete
	}
	if u.MarksPayment() {
		l.Status = StatusCompleted
	}
	l.LastInteraction = at
	l.UpdatedAt = at
}
