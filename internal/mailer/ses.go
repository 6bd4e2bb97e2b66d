package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESClient defines the SES operations we use.
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender relays through Amazon SES. The sender address must be verified
// in SES.
type SESSender struct {
	client SESClient
}

func NewSESSender(client SESClient) *SESSender {
	return &SESSender{client: client}
}

// NewSESSenderFromConfig loads the default AWS credential chain for region.
func NewSESSenderFromConfig(ctx context.Context, region string) (*SESSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSESSender(ses.NewFromConfig(awsCfg)), nil
}

func (s *SESSender) Send(ctx context.Context, m *Message) error {
	input := &ses.SendEmailInput{
		Source: aws.String(m.From),
		Destination: &types.Destination{
			ToAddresses: []string{m.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(m.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(m.Text),
					Charset: aws.String("UTF-8"),
				},
				Html: &types.Content{
					Data:    aws.String(m.HTML),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}
	if m.ReplyTo != "" {
		input.ReplyToAddresses = []string{m.ReplyTo}
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

// Ensure SESSender implements Sender.
var _ Sender = (*SESSender)(nil)
