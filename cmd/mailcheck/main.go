// cmd/mailcheck/main.go
package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/config"
	"github.com/your-org/stationery-backend/internal/pkg/email"
	"github.com/your-org/stationery-backend/internal/pkg/logger"
)

// mailcheck sends one message through the configured SMTP relay so the
// invoice mail settings can be verified before going live.
func main() {
	to := flag.String("to", "", "recipient address")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := logger.New(cfg)

	if *to == "" {
		log.Fatal("Usage: mailcheck -to <address>")
	}

	emailService := email.NewEmailService(cfg, log)
	if !emailService.Enabled() {
		log.Fatal("Email delivery is disabled, set EMAIL_ENABLED=true")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = emailService.SendEmail(ctx, &email.Email{
		To:          []string{*to},
		Subject:     "SMTP check from " + cfg.App.CompanyName,
		HTMLContent: "<p>Invoice delivery is configured correctly.</p>",
		Type:        email.EmailTypeSMTPCheck,
	})
	if err != nil {
		log.WithError(err).Fatal("Send failed")
	}

	log.WithFields(logrus.Fields{
		"to":   *to,
		"host": cfg.External.Email.SMTPHost,
	}).Info("Test email sent")
}
