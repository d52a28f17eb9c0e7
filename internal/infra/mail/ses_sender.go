package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"

	"github.com/xavierca1/cohort-nurture/internal/config"
	"github.com/xavierca1/cohort-nurture/internal/entity"
	"github.com/xavierca1/cohort-nurture/internal/pkg/logger"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers through AWS SES v2.
type SESSender struct {
	client   sesAPI
	renderer *TemplateRenderer
	log      zerolog.Logger
}

// NewSESSender uses static credentials when configured and the default AWS
// credential chain otherwise.
func NewSESSender(ctx context.Context, cfg config.SESConfig, renderer *TemplateRenderer) (*SESSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newSESSender(sesv2.NewFromConfig(awsCfg), renderer), nil
}

func newSESSender(client sesAPI, renderer *TemplateRenderer) *SESSender {
	return &SESSender{
		client:   client,
		renderer: renderer,
		log:      logger.Component("ses_sender"),
	}
}

func (s *SESSender) Send(ctx context.Context, req entity.EmailRequest) entity.SendResult {
	msg, err := s.renderer.Render(req)
	if err != nil {
		return entity.SendFailed(err.Error())
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("email_kind"), Value: aws.String(string(req.Kind))},
		},
	}

	log := s.log.With().Str(logger.EMAIL, logger.RedactEmail(req.To)).Str(logger.KIND, string(req.Kind)).Logger()

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		log.Warn().Err(err).Msg("ses send failed")
		return entity.SendFailed(fmt.Sprintf("ses send: %v", err))
	}

	messageID := aws.ToString(out.MessageId)
	log.Debug().Str("message_id", messageID).Msg("email sent")
	return entity.SendOK(messageID)
}
