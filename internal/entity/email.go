package entity

import "errors"

var ErrInvalidEmailKind = errors.New("invalid email kind")

type EmailKind string

const (
	EmailConfirmation  EmailKind = "confirmation"
	EmailReminder1     EmailKind = "reminder1"
	EmailReminder2     EmailKind = "reminder2"
	EmailFinalReminder EmailKind = "finalReminder"
)

var subjects = map[EmailKind]string{
	EmailConfirmation:  "Welcome to gradnext Consulting Cohort 101!",
	EmailReminder1:     "Reminder: Your Consulting Cohort 101 Spot Awaits",
	EmailReminder2:     "Don't Miss Out: Consulting Cohort 101 Benefits",
	EmailFinalReminder: "Final Reminder: Complete Your Consulting Cohort 101 Enrollment",
}

func (k EmailKind) Valid() bool {
	_, ok := subjects[k]
	return ok
}

func (k EmailKind) Subject() string {
	return subjects[k]
}

// ParseReminderKind maps the admin route segment (reminder1, reminder2, final)
// to an email kind.
func ParseReminderKind(s string) (EmailKind, error) {
	switch s {
	case "reminder1":
		return EmailReminder1, nil
	case "reminder2":
		return EmailReminder2, nil
	case "final":
		return EmailFinalReminder, nil
	default:
		return "", ErrInvalidEmailKind
	}
}

// EmailRequest is one templated email for one recipient.
type EmailRequest struct {
	To          string
	Kind        EmailKind
	DisplayName string
}

// SendResult is the outcome of a single best-effort delivery attempt.
// Failure is an expected outcome, so it is a value and not an error.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func SendOK(messageID string) SendResult {
	return SendResult{Success: true, MessageID: messageID}
}

func SendFailed(reason string) SendResult {
	return SendResult{Success: false, Reason: reason}
}
