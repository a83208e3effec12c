// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/config"
)

// Sender delivers a composed message
type Sender interface {
	Send(ctx context.Context, msg *Email) error
}

// EmailService handles invoice emails
type EmailService struct {
	config *config.Config
	logger *logrus.Logger
	sender Sender
}

// NewEmailService creates a new email service backed by SMTP
func NewEmailService(cfg *config.Config, logger *logrus.Logger) *EmailService {
	return NewEmailServiceWithSender(cfg, logger, NewSMTPSender(cfg))
}

// NewEmailServiceWithSender creates an email service with a custom transport
func NewEmailServiceWithSender(cfg *config.Config, logger *logrus.Logger, sender Sender) *EmailService {
	return &EmailService{
		config: cfg,
		logger: logger,
		sender: sender,
	}
}

// Enabled reports whether email delivery is configured
func (s *EmailService) Enabled() bool {
	return s.config.External.Email.Enabled
}

// SendEmail sends an email through the configured transport
func (s *EmailService) SendEmail(ctx context.Context, msg *Email) error {
	if !s.Enabled() {
		return fmt.Errorf("email delivery is disabled")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}
	return s.sender.Send(ctx, msg)
}

// SendInvoiceEmail sends an invoice with its PDF attached
func (s *EmailService) SendInvoiceEmail(ctx context.Context, to string, kind EmailType, data InvoiceEmailData, pdf []byte) error {
	data.CompanyName = s.config.App.CompanyName
	data.CompanyEmail = s.config.App.CompanyEmail

	htmlContent, err := renderTemplate(invoiceTmpl, data)
	if err != nil {
		return fmt.Errorf("failed to render invoice email template: %w", err)
	}

	msg := &Email{
		To:          []string{to},
		Subject:     fmt.Sprintf("Invoice %s from %s", data.InvoiceNumber, data.CompanyName),
		HTMLContent: htmlContent,
		Type:        kind,
		Attachments: []Attachment{{
			Filename:    data.InvoiceNumber + ".pdf",
			ContentType: "application/pdf",
			Content:     pdf,
		}},
	}

	if err := s.SendEmail(ctx, msg); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"invoice_number": data.InvoiceNumber,
		"type":           kind,
	}).Info("invoice email sent")
	return nil
}

func renderTemplate(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

var invoiceTmpl = template.Must(template.New("invoice").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.CompanyName}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h2 style="color: #333;">{{.CompanyName}}</h2>
        <p>Hello {{.RecipientName}},</p>
        <p>Please find attached invoice <strong>{{.InvoiceNumber}}</strong> issued on {{.IssueDate}}.</p>
        <p>Total: <strong>{{.Total}}</strong>, due by {{.DueDate}}.</p>
        <p>If you have any questions, reply to this email{{if .CompanyEmail}} or write to {{.CompanyEmail}}{{end}}.</p>
        <p>Best regards,<br>{{.CompanyName}}</p>
    </div>
</body>
</html>`))
