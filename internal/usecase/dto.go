package usecase

import "github.com/xavierca1/cohort-nurture/internal/entity"

type SubmitLeadInput struct {
	Name  string `json:"name" validate:"required,min=2,max=200"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"required,min=7,max=32"`
}

type SubmitLeadOutput struct {
	Lead         *entity.Lead
	EmailSent    bool
	MessageID    string
	EmailWarning string
}

type UpdateLeadStatusInput struct {
	EmailOpened     *bool `json:"emailOpened"`
	ClickedLink     *bool `json:"clickedLink"`
	PaymentComplete *bool `json:"paymentComplete"`
}

func (in UpdateLeadStatusInput) toUpdate() entity.InteractionUpdate {
	return entity.InteractionUpdate{
		EmailOpened:     in.EmailOpened,
		ClickedLink:     in.ClickedLink,
		PaymentComplete: in.PaymentComplete,
	}
}

type SendEmailOutput struct {
	Lead      *entity.Lead     `json:"user,omitempty"`
	Kind      entity.EmailKind `json:"kind"`
	MessageID string           `json:"messageId"`
}

type TestEmailInput struct {
	TestEmail string `json:"testEmail" validate:"required,email"`
}
