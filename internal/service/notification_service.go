package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"quizstack/internal/models"
	"quizstack/internal/timer"
	"quizstack/internal/validation"
)

// EmailSender is the part of the SES client the notifier uses
type EmailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// NotificationSettings configures result e-mails
type NotificationSettings struct {
	AWSRegion string
	FromEmail string
	FromName  string
	ToEmail   string
	Debug     bool
}

// NotificationService e-mails quiz results via Amazon SES
type NotificationService struct {
	client    EmailSender
	fromEmail string
	fromName  string
	toEmail   string
	enabled   bool
	debug     bool
	log       *zap.Logger
}

// NewNotificationService creates a notifier. Without a sender or recipient
// address the service is disabled and every send is a no-op.
func NewNotificationService(ctx context.Context, settings NotificationSettings, log *zap.Logger) (*NotificationService, error) {
	if settings.FromEmail == "" || settings.ToEmail == "" {
		log.Info("Result notifications disabled: SES_FROM_EMAIL or RESULTS_EMAIL_TO not configured")
		return &NotificationService{enabled: false, debug: settings.Debug, log: log}, nil
	}
	if err := validation.ValidateEmail(settings.FromEmail); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := validation.ValidateEmail(settings.ToEmail); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(settings.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("Result notifications enabled",
		zap.String("from", settings.FromEmail),
		zap.String("to", settings.ToEmail),
		zap.String("region", settings.AWSRegion),
	)
	return NewNotificationServiceWithClient(sesv2.NewFromConfig(cfg), settings, log), nil
}

// NewNotificationServiceWithClient creates an enabled notifier around client
func NewNotificationServiceWithClient(client EmailSender, settings NotificationSettings, log *zap.Logger) *NotificationService {
	return &NotificationService{
		client:    client,
		fromEmail: settings.FromEmail,
		fromName:  settings.FromName,
		toEmail:   settings.ToEmail,
		enabled:   true,
		debug:     settings.Debug,
		log:       log,
	}
}

// IsEnabled returns whether the notifier sends anything
func (s *NotificationService) IsEnabled() bool {
	return s != nil && s.enabled
}

// SendResult e-mails a summary of a finished session
func (s *NotificationService) SendResult(ctx context.Context, quiz *models.Quiz, result models.QuizResult) error {
	if !s.IsEnabled() {
		if s != nil && s.debug {
			s.log.Debug("Skipping result e-mail (notifications disabled)", zap.String("session_id", result.SessionID))
		}
		return nil
	}

	subject, textBody, htmlBody, err := renderResult(quiz, result)
	if err != nil {
		return err
	}
	return s.sendEmail(ctx, subject, htmlBody, textBody)
}

var resultHTML = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
<h2>{{.Title}}</h2>
<p>Session <code>{{.SessionID}}</code> {{.Status}} after {{.Elapsed}}.</p>
<table>
{{- range .Lines}}
<tr><td>{{.Prompt}}</td><td><strong>{{.Answer}}</strong></td></tr>
{{- end}}
</table>
<p style="font-size: 12px; color: #666;">This is an automated e-mail from QuizStack. Please do not reply.</p>
</body>
</html>
`))

type resultLine struct {
	Prompt string
	Answer string
}

// renderResult builds the subject and both bodies of a result e-mail
func renderResult(quiz *models.Quiz, result models.QuizResult) (subject, textBody, htmlBody string, err error) {
	title := result.QuizSlug
	if quiz != nil && quiz.Title != "" {
		title = quiz.Title
	}

	status := "completed"
	switch result.Outcome {
	case models.OutcomeTimedOut:
		status = "ran out of time"
	case models.OutcomeAbandoned:
		status = "was abandoned"
	}
	subject = fmt.Sprintf("Quiz %q %s (%d/%d answered)", title, status, result.AnsweredCount, result.TotalQuestions)

	var lines []resultLine
	if quiz != nil {
		for _, q := range quiz.Questions {
			answer, ok := result.Answers[q.ID]
			if !ok {
				answer = "(no answer)"
			}
			lines = append(lines, resultLine{Prompt: q.Prompt, Answer: answer})
		}
	} else {
		ids := make([]int64, 0, len(result.Answers))
		for id := range result.Answers {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			lines = append(lines, resultLine{Prompt: fmt.Sprintf("Question %d", id), Answer: result.Answers[id]})
		}
	}

	elapsed := timer.FormatClock(result.Duration())

	var text strings.Builder
	fmt.Fprintf(&text, "Session %s %s after %s.\n\n", result.SessionID, status, elapsed)
	for _, l := range lines {
		fmt.Fprintf(&text, "- %s\n  %s\n", l.Prompt, l.Answer)
	}
	text.WriteString("\n---\nThis is an automated e-mail from QuizStack. Please do not reply.\n")

	var body bytes.Buffer
	err = resultHTML.Execute(&body, struct {
		Title     string
		SessionID string
		Status    string
		Elapsed   string
		Lines     []resultLine
	}{title, result.SessionID, status, elapsed, lines})
	if err != nil {
		return "", "", "", fmt.Errorf("rendering result e-mail: %w", err)
	}

	return subject, text.String(), body.String(), nil
}

// sendEmail sends an email using Amazon SES
func (s *NotificationService) sendEmail(ctx context.Context, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{s.toEmail},
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

	if s.debug {
		s.log.Debug("Calling SES SendEmail", zap.String("to", s.toEmail), zap.String("subject", subject))
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", s.toEmail, err)
	}

	fields := []zap.Field{zap.String("to", s.toEmail), zap.String("subject", subject)}
	if out != nil && out.MessageId != nil {
		fields = append(fields, zap.String("message_id", *out.MessageId))
	}
	s.log.Info("Email sent successfully", fields...)
	return nil
}
