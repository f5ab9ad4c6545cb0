package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"chorequest/internal/logger"
)

// EmailSender delivers one rendered email
type EmailSender interface {
	IsEnabled() bool
	SendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error
}

// sesAPI is the subset of the SES client the service calls
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client    sesAPI
	fromEmail string
	fromName  string
	enabled   bool
	logger    *logger.Logger
}

// NewEmailService creates a new email service. Without a from address the
// service is disabled and every send is skipped.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName string, log *logger.Logger) (*EmailService, error) {
	log = log.Named("email")
	if fromEmail == "" {
		log.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, logger: log}, nil
	}

	log.Debug("initializing email service with AWS SES",
		zap.String("region", awsRegion),
		zap.String("from_email", fromEmail),
		zap.String("from_name", fromName),
	)

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("email service enabled", zap.String("from", fromEmail), zap.String("region", awsRegion))
	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, fromName, log), nil
}

func newEmailService(client sesAPI, fromEmail, fromName string, log *logger.Logger) *EmailService {
	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		logger:    log,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendEmail sends an email with HTML and plain-text bodies using Amazon SES
func (s *EmailService) SendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	if !s.enabled {
		s.logger.Info("skipping email send (service disabled)", zap.String("to", toEmail), zap.String("subject", subject))
		return nil
	}

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	s.logger.Debug("calling SES SendEmail",
		zap.String("to", toEmail),
		zap.String("subject", subject),
		zap.Int("html_bytes", len(htmlBody)),
		zap.Int("text_bytes", len(textBody)),
	)

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	fields := []zap.Field{zap.String("to", toEmail), zap.String("subject", subject)}
	if result.MessageId != nil {
		fields = append(fields, zap.String("message_id", *result.MessageId))
	}
	s.logger.Info("email sent", fields...)
	return nil
}
