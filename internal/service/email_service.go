package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"weddingrsvp/internal/models"
)

// SESAPI is the part of the SES client the email service uses
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService sends RSVP confirmations via Amazon SES
type EmailService struct {
	client     SESAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	logger     *zap.Logger
}

// NewEmailService creates a new email service. It is disabled when fromEmail is empty.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, logger *zap.Logger) (*EmailService, error) {
	if fromEmail == "" {
		logger.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, logger: logger}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("email service enabled", zap.String("from", fromEmail), zap.String("region", awsRegion))
	return NewEmailServiceWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, logger), nil
}

// NewEmailServiceWithClient creates an enabled email service around client
func NewEmailServiceWithClient(client SESAPI, fromEmail, fromName, appBaseURL string, logger *zap.Logger) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		enabled:    true,
		logger:     logger,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// NotifyAttendance emails each guest that has an address about their new
// attendance status. Every guest is attempted; failures are joined.
func (s *EmailService) NotifyAttendance(ctx context.Context, guests []models.Guest, status int) error {
	if !s.enabled {
		return nil
	}

	var errs []error
	for _, g := range guests {
		if g.Email == nil || strings.TrimSpace(*g.Email) == "" {
			continue
		}
		subject, htmlBody, textBody := s.attendanceEmail(g, status)
		if err := s.sendEmail(ctx, *g.Email, subject, htmlBody, textBody); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *EmailService) attendanceEmail(g models.Guest, status int) (subject, htmlBody, textBody string) {
	var line string
	switch status {
	case models.StatusAttending:
		subject = "We can't wait to see you!"
		line = "Thank you for letting us know you will be joining us."
	case models.StatusNotAttending:
		subject = "Sorry you can't make it"
		line = "Thank you for letting us know you can't join us. You will be missed."
	default:
		subject = "Your RSVP has been updated"
		line = "Your RSVP is marked as pending. You can update it any time."
	}

	link := s.appBaseURL
	if code := g.FamilyCode(); code != "" && link != "" {
		link = fmt.Sprintf("%s/rsvp?code=%s", link, code)
	}

	htmlBody = fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<p>Hi %s,</p>
	<p>%s</p>
	<p>You can review your RSVP here: <a href="%s">%s</a></p>
</body>
</html>
`, html.EscapeString(g.Name), line, html.EscapeString(link), html.EscapeString(link))

	textBody = fmt.Sprintf("Hi %s,\n\n%s\n\nYou can review your RSVP here: %s\n", g.Name, line, link)
	return subject, htmlBody, textBody
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
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
