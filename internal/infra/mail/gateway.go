package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/xavierca1/cohort-nurture/internal/config"
	"github.com/xavierca1/cohort-nurture/internal/usecase"
)

const (
	ProviderSMTP = "smtp"
	ProviderSES  = "ses"
)

// NewGateway builds the sender selected by cfg.Provider.
func NewGateway(ctx context.Context, cfg config.MailConfig) (usecase.MailGateway, error) {
	renderer, err := NewTemplateRenderer(cfg.From, Product{
		Name:        cfg.ProductName,
		Link:        cfg.ProductLink,
		LogoURL:     cfg.LogoURL,
		PaymentLink: cfg.PaymentLink,
	}, time.Now().Year())
	if err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case ProviderSMTP:
		return NewSMTPSender(cfg.SMTP, renderer), nil
	case ProviderSES:
		sender, err := NewSESSender(ctx, cfg.SES, renderer)
		if err != nil {
			return nil, err
		}
		return sender, nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}
