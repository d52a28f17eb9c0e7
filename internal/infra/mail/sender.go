package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/cohort-nurture/internal/config"
	"github.com/xavierca1/cohort-nurture/internal/entity"
	"github.com/xavierca1/cohort-nurture/internal/pkg/logger"
)

// SMTPSender delivers through an SMTP relay. Gmail app passwords work with
// the default host and port.
type SMTPSender struct {
	renderer *TemplateRenderer
	deliver  func(m *gomail.Message) error
	domain   string
	log      zerolog.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, renderer *TemplateRenderer) *SMTPSender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return &SMTPSender{
		renderer: renderer,
		deliver:  func(m *gomail.Message) error { return d.DialAndSend(m) },
		domain:   domainOf(renderer.from),
		log:      logger.Component("smtp_sender"),
	}
}

// Send renders and delivers one email. gomail has no context support, so
// the dial runs in a goroutine and the caller stops waiting at the deadline.
func (s *SMTPSender) Send(ctx context.Context, req entity.EmailRequest) entity.SendResult {
	msg, err := s.renderer.Render(req)
	if err != nil {
		return entity.SendFailed(err.Error())
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.domain)

	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)

	done := make(chan error, 1)
	go func() {
		done <- s.deliver(m)
	}()

	log := s.log.With().Str(logger.EMAIL, logger.RedactEmail(req.To)).Str(logger.KIND, string(req.Kind)).Logger()

	select {
	case err := <-done:
		if err != nil {
			log.Warn().Err(err).Msg("smtp send failed")
			return entity.SendFailed(fmt.Sprintf("smtp send: %v", err))
		}
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("smtp send abandoned")
		return entity.SendFailed(fmt.Sprintf("smtp send: %v", ctx.Err()))
	}

	log.Debug().Str("message_id", messageID).Msg("email sent")
	return entity.SendOK(messageID)
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return strings.Trim(address[i+1:], "> ")
	}
	return "localhost"
}
