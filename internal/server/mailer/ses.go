package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	sendEmail = func(c *sesv2.Client, ctx context.Context, in *sesv2.SendEmailInput) (*sesv2.SendEmailOutput, error) {
		return c.SendEmail(ctx, in)
	}
)

// SESMailer sends email through Amazon SES. When no sender address is
// configured the mailer is disabled and every send is a silent no-op, which
// keeps local development working without AWS credentials.
type SESMailer struct {
	client    *sesv2.Client
	fromEmail string
	enabled   bool
}

func NewSESMailer(ctx context.Context, region, fromEmail string) (*SESMailer, error) {
	if fromEmail == "" {
		return &SESMailer{enabled: false}, nil
	}

	cfg, err := loadDefaultAWSConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESMailer{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		enabled:   true,
	}, nil
}

// Enabled reports whether the mailer will actually send.
func (m *SESMailer) Enabled() bool {
	return m.enabled
}

func (m *SESMailer) send(ctx context.Context, toEmail, subject, body string) error {
	if !m.enabled {
		return nil
	}

	_, err := sendEmail(m.client, ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}
	return nil
}

func (m *SESMailer) SendInvite(ctx context.Context, toEmail, childName, inviteCode string) error {
	subject := fmt.Sprintf("You have been invited to follow %s's memories", childName)
	body := fmt.Sprintf(
		"You have been invited to view %s's growth records and memory vaults.\n\n"+
			"Your invite code: %s\n\n"+
			"Sign in and redeem the code to accept the invitation.\n",
		childName, inviteCode)
	return m.send(ctx, toEmail, subject, body)
}

func (m *SESMailer) SendLetter(ctx context.Context, toEmail, title, content string) error {
	return m.send(ctx, toEmail, title, content)
}
