// internal/delivery/ses.go
package delivery

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	awsclient "school-event-automation/internal/common/aws"
	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/common/logger"
)

// SESService is the SDK slice we call, split out for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// SESMailer sends through AWS SES.
type SESMailer struct {
	client SESService
	from   string
	logger logger.Logger
}

func NewSESMailer(ctx context.Context, region, from string, log logger.Logger) (*SESMailer, error) {
	client, err := awsclient.NewSESClient(ctx, region)
	if err != nil {
		return nil, err
	}
	return &SESMailer{
		client: client,
		from:   from,
		logger: log,
	}, nil
}

// NewSESMailerWithClient injects a prebuilt client, used by tests.
func NewSESMailerWithClient(client SESService, from string, log logger.Logger) *SESMailer {
	return &SESMailer{client: client, from: from, logger: log}
}

func (m *SESMailer) Send(ctx context.Context, msg Message) (string, error) {
	if err := ValidateAddress(msg.To); err != nil {
		return "", errors.NewDeliverySendFailedError(msg.To, err)
	}

	// SendEmail cannot carry custom headers, so header-bearing messages
	// go through the raw API with the same MIME body the SMTP path uses.
	if len(msg.Headers) > 0 {
		return m.sendRaw(ctx, msg)
	}

	out, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.Body)},
			},
		},
		Source: aws.String(m.from),
	})
	if err != nil {
		return "", errors.NewDeliverySendFailedError(msg.To, err)
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}
	m.logger.Debug("email accepted by SES", map[string]interface{}{
		"to":        msg.To,
		"messageId": messageID,
	})
	return messageID, nil
}

func (m *SESMailer) sendRaw(ctx context.Context, msg Message) (string, error) {
	out, err := m.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		RawMessage:   &types.RawMessage{Data: buildMIME(m.from, msg)},
		Source:       aws.String(m.from),
		Destinations: []string{msg.To},
	})
	if err != nil {
		return "", errors.NewDeliverySendFailedError(msg.To, err)
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}
	m.logger.Debug("email accepted by SES", map[string]interface{}{
		"to":        msg.To,
		"messageId": messageID,
	})
	return messageID, nil
}
