package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/lead-intake/internal/leads"
	"github.com/wolfman30/lead-intake/internal/messaging/templates"
	"github.com/wolfman30/lead-intake/pkg/logging"
)

// ConfirmationTemplate is the WhatsApp text sent to a new lead.
const ConfirmationTemplate = "Hola {{.Name}}, recibimos tu solicitud sobre {{.Service}}. En breve te contactaremos. – {{.Brand}}"

// ConfirmResult describes a confirmation attempt that did not error.
// Fallback means nothing was sent and a human must follow up manually.
type ConfirmResult struct {
	Provider string
	Fallback bool
	Reason   string
}

// Messenger confirms a lead over a chat channel.
type Messenger interface {
	Confirm(ctx context.Context, rec *leads.Record) (ConfirmResult, error)
}

// TextSender delivers a single text message to a phone number in E.164 form.
type TextSender interface {
	SendText(ctx context.Context, to, body string) (messageID string, err error)
}

// WhatsAppConfirmer renders the confirmation text and hands it to a provider.
type WhatsAppConfirmer struct {
	sender   TextSender
	provider string
	reason   string
	brand    string
	renderer *templates.Renderer
	logger   *logging.Logger
}

// NewWhatsAppConfirmer builds a confirmer. A nil sender yields a confirmer
// that always reports a manual-follow-up fallback with the given reason.
func NewWhatsAppConfirmer(sender TextSender, provider, unavailableReason, brand string, logger *logging.Logger) *WhatsAppConfirmer {
	if logger == nil {
		logger = logging.Default()
	}
	if brand == "" {
		brand = "Rebot"
	}
	return &WhatsAppConfirmer{
		sender:   sender,
		provider: provider,
		reason:   unavailableReason,
		brand:    brand,
		renderer: templates.NewRenderer(),
		logger:   logger,
	}
}

var _ Messenger = (*WhatsAppConfirmer)(nil)

// Confirm sends the confirmation. Missing configuration or a missing phone
// is a fallback, not an error; provider failures are errors.
func (c *WhatsAppConfirmer) Confirm(ctx context.Context, rec *leads.Record) (ConfirmResult, error) {
	if rec == nil {
		return ConfirmResult{}, errors.New("messaging: lead record required")
	}
	if c.sender == nil {
		reason := c.reason
		if reason == "" {
			reason = "whatsapp provider not configured"
		}
		c.logger.Warn("whatsapp confirmation pending manual follow-up", "lead_id", rec.ID, "reason", reason)
		return ConfirmResult{Fallback: true, Reason: reason}, nil
	}
	to := NormalizeE164(rec.Phone)
	if to == "" {
		c.logger.Warn("whatsapp confirmation pending manual follow-up", "lead_id", rec.ID, "reason", "no phone number")
		return ConfirmResult{Provider: c.provider, Fallback: true, Reason: "no phone number provided"}, nil
	}

	body, err := c.renderer.Render("whatsapp_confirmation", ConfirmationTemplate, map[string]string{
		"Name":    rec.Name,
		"Service": rec.Service,
		"Brand":   c.brand,
	})
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("messaging: %w", err)
	}

	id, err := c.sender.SendText(ctx, to, body)
	if err != nil {
		return ConfirmResult{Provider: c.provider}, fmt.Errorf("messaging: %s: %w", c.provider, err)
	}
	c.logger.Info("whatsapp confirmation sent",
		"lead_id", rec.ID,
		"provider", c.provider,
		"to", logging.MaskPhone(to),
		"message_id", id,
	)
	return ConfirmResult{Provider: c.provider}, nil
}
