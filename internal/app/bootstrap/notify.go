package bootstrap

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/lead-intake/internal/config"
	"github.com/wolfman30/lead-intake/internal/events"
	"github.com/wolfman30/lead-intake/internal/notify"
	"github.com/wolfman30/lead-intake/pkg/logging"
)

// BuildEmailSender returns the configured email transport, or nil when it
// cannot be built. A nil sender makes every notification fail softly.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.EmailProvider {
	case "smtp":
		sender := notify.NewSMTPSender(notify.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUser,
			Password:  cfg.SMTPPass,
			Secure:    cfg.SMTPSecure,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		}, logger)
		if sender != nil {
			logger.Info("email provider", "provider", "smtp", "host", cfg.SMTPHost)
			return sender
		}
		logger.Warn("SMTP_HOST not set; email disabled")

	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		}, logger)
		if sender != nil {
			logger.Info("email provider", "provider", "sendgrid")
			return sender
		}
		logger.Warn("SENDGRID_API_KEY not set; email disabled")

	case "ses":
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			logger.Warn("aws config unavailable; email disabled", "error", err)
			return nil
		}
		logger.Info("email provider", "provider", "ses")
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		}, logger)

	case "stub", "log":
		logger.Info("email provider", "provider", "stub")
		return notify.NewStubEmailSender(logger)

	default:
		logger.Warn("unknown email provider; email disabled", "provider", cfg.EmailProvider)
	}
	return nil
}

// BuildEventPublisher returns the lead event publisher, or nil when no queue
// is configured.
func BuildEventPublisher(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger) *events.SQSPublisher {
	if cfg.LeadEventsQueueURL == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	awsCfg, err := loadAWS(ctx)
	if err != nil {
		logger.Warn("aws config unavailable; lead events disabled", "error", err)
		return nil
	}
	logger.Info("lead events enabled", "queue_url", cfg.LeadEventsQueueURL)
	return events.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.LeadEventsQueueURL, logger)
}
