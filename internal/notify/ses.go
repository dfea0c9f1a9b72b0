package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// SESAPI is the slice of the SES client the mailer uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends email through Amazon SES.
type SESMailer struct {
	client SESAPI
	sender string
	logger *zap.Logger
}

// NewSESMailer constructs the mailer.
func NewSESMailer(client SESAPI, sender string, logger *zap.Logger) *SESMailer {
	return &SESMailer{client: client, sender: sender, logger: logger}
}

// Send delivers one HTML email, reporting success as a boolean.
func (m *SESMailer) Send(ctx context.Context, to, subject, htmlBody string) bool {
	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(m.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(htmlBody),
				},
			},
		},
	})
	if err != nil {
		m.logger.Error("ses send failed", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return false
	}
	return true
}
