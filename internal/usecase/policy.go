package usecase

import (
	"time"

	"github.com/xavierca1/cohort-nurture/internal/entity"
)

type ActionType int

const (
	ActionNone ActionType = iota
	ActionSend
	ActionStop
)

func (t ActionType) String() string {
	switch t {
	case ActionSend:
		return "send"
	case ActionStop:
		return "stop"
	default:
		return "none"
	}
}

// Action is what the automation should do with one lead right now.
type Action struct {
	Type ActionType
	Kind entity.EmailKind
	Next entity.LeadStatus
}

func noAction() Action {
	return Action{Type: ActionNone}
}

func sendAction(kind entity.EmailKind, next entity.LeadStatus) Action {
	return Action{Type: ActionSend, Kind: kind, Next: next}
}

func stopAction() Action {
	return Action{Type: ActionStop, Next: entity.StatusStopped}
}

const day = 24 * time.Hour

const (
	reminderDelay   = 2 * day
	escalationDelay = 3 * day
	stopDelay       = 3 * day
)

// Decide maps a lead and the current time to the next automation action.
// It has no side effects. Leads that were never emailed, paid leads and
// terminal leads always get ActionNone.
//
// A reminder_2 lead that has not clicked has no rule and stays pending.
func Decide(lead *entity.Lead, now time.Time) Action {
	if lead == nil || !lead.IsCandidate() {
		return noAction()
	}

	elapsed, ok := lead.ElapsedSinceLastEmail(now)
	if !ok {
		return noAction()
	}

	switch lead.Status {
	case entity.StatusEmailSent:
		if !lead.EmailOpened && elapsed >= reminderDelay {
			return sendAction(entity.EmailReminder1, entity.StatusReminder1)
		}
		if lead.EmailOpened && !lead.ClickedLink && elapsed >= escalationDelay {
			return sendAction(entity.EmailReminder2, entity.StatusReminder2)
		}

	case entity.StatusReminder1:
		if !lead.EmailOpened && elapsed >= reminderDelay {
			return sendAction(entity.EmailReminder1, entity.StatusReminder1)
		}
		if lead.EmailOpened && !lead.ClickedLink && elapsed >= reminderDelay {
			return sendAction(entity.EmailReminder2, entity.StatusReminder2)
		}

	case entity.StatusReminder2:
		if lead.ClickedLink && !lead.PaymentComplete && elapsed >= reminderDelay {
			return sendAction(entity.EmailFinalReminder, entity.StatusFinalReminder)
		}

	case entity.StatusFinalReminder:
		if !lead.PaymentComplete && elapsed >= stopDelay {
			return stopAction()
		}
	}

	return noAction()
}
