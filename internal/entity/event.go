package entity

import "time"

type LeadEventType string

const (
	EventLeadSubmitted LeadEventType = "lead.submitted"
	EventLeadEmailSent LeadEventType = "lead.email_sent"
	EventLeadStopped   LeadEventType = "lead.stopped"
	EventLeadCompleted LeadEventType = "lead.completed"
)

// LeadEvent is published after a lead changed in the store.
type LeadEvent struct {
	Type       LeadEventType `json:"type"`
	LeadID     string        `json:"lead_id"`
	Email      string        `json:"email"`
	Name       string        `json:"name"`
	Phone      string        `json:"phone"`
	Status     LeadStatus    `json:"status"`
	EmailKind  EmailKind     `json:"email_kind,omitempty"`
	EmailCount int           `json:"email_count"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func NewLeadEvent(t LeadEventType, lead *Lead, at time.Time) LeadEvent {
	return LeadEvent{
		Type:       t,
		LeadID:     lead.ID,
		Email:      lead.Email,
		Name:       lead.Name,
		Phone:      lead.Phone,
		Status:     lead.Status,
		EmailCount: lead.EmailCount,
		OccurredAt: at,
	}
}
