package messaging

import (
	"fmt"
	"strings"

	"github.com/wolfman30/lead-intake/pkg/logging"
)

const (
	// ProviderAuto tries Meta first, then Twilio.
	ProviderAuto = "auto"
	// ProviderMeta forces the WhatsApp Cloud API sender when credentials exist.
	ProviderMeta = "meta"
	// ProviderTwilio forces the Twilio sender when credentials exist.
	ProviderTwilio = "twilio"
)

// ProviderSelectionConfig captures the credentials required to build outbound senders.
type ProviderSelectionConfig struct {
	Preference         string
	MetaToken          string
	MetaPhoneNumberID  string
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioWhatsAppFrom string

	// SendRatePerSecond and SendBurst pace outbound sends. Zero disables pacing.
	SendRatePerSecond float64
	SendBurst         int
}

// BuildTextSender instantiates a TextSender based on the preferred provider.
// It returns the sender, the provider that was selected, and a reason when no provider could be initialized.
func BuildTextSender(cfg ProviderSelectionConfig, logger *logging.Logger) (TextSender, string, string) {
	if logger == nil {
		logger = logging.Default()
	}
	preference := strings.ToLower(strings.TrimSpace(cfg.Preference))
	if preference == "" {
		preference = ProviderMeta
	}

	missing := map[string]string{}
	var metaSender TextSender
	var twilioSender TextSender

	if cfg.MetaToken != "" && cfg.MetaPhoneNumberID != "" {
		metaSender = NewMetaSender(cfg.MetaToken, cfg.MetaPhoneNumberID, logger)
	} else {
		var reasons []string
		if cfg.MetaToken == "" {
			reasons = append(reasons, "META_WHATSAPP_TOKEN missing")
		}
		if cfg.MetaPhoneNumberID == "" {
			reasons = append(reasons, "META_WHATSAPP_PHONE_ID missing")
		}
		missing[ProviderMeta] = strings.Join(reasons, ", ")
	}

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioWhatsAppFrom != "" {
		twilioSender = NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, logger)
	} else {
		var reasons []string
		if cfg.TwilioAccountSID == "" {
			reasons = append(reasons, "TWILIO_ACCOUNT_SID missing")
		}
		if cfg.TwilioAuthToken == "" {
			reasons = append(reasons, "TWILIO_AUTH_TOKEN missing")
		}
		if cfg.TwilioWhatsAppFrom == "" {
			reasons = append(reasons, "TWILIO_WHATSAPP_FROM missing")
		}
		missing[ProviderTwilio] = strings.Join(reasons, ", ")
	}

	if preference != ProviderAuto {
		if preference == ProviderMeta && metaSender != nil {
			return metaSender, ProviderMeta, ""
		}
		if preference == ProviderTwilio && twilioSender != nil {
			return twilioSender, ProviderTwilio, ""
		}
		reason := missing[preference]
		if reason == "" {
			reason = fmt.Sprintf("unknown whatsapp provider %q", preference)
		}
		return nil, "", reason
	}

	if metaSender != nil && twilioSender != nil {
		return NewFailoverSender(metaSender, ProviderMeta, twilioSender, ProviderTwilio, logger), ProviderMeta + "+" + ProviderTwilio, ""
	}
	if metaSender != nil {
		return metaSender, ProviderMeta, ""
	}
	if twilioSender != nil {
		return twilioSender, ProviderTwilio, ""
	}

	var reasons []string
	for _, provider := range []string{ProviderMeta, ProviderTwilio} {
		if msg := missing[provider]; msg != "" {
			reasons = append(reasons, fmt.Sprintf("%s: %s", provider, msg))
		}
	}
	return nil, "", strings.Join(reasons, "; ")
}

// BuildMessenger selects the provider once and wraps it in a confirmer.
// Without a usable provider the confirmer reports manual follow-up.
func BuildMessenger(cfg ProviderSelectionConfig, brand string, logger *logging.Logger) (*WhatsAppConfirmer, string) {
	if logger == nil {
		logger = logging.Default()
	}
	sender, provider, reason := BuildTextSender(cfg, logger)
	if sender == nil {
		logger.Warn("whatsapp provider unavailable; confirmations will need manual follow-up", "reason", reason)
	} else {
		sender = NewThrottledSender(sender, cfg.SendRatePerSecond, cfg.SendBurst)
	}
	return NewWhatsAppConfirmer(sender, provider, reason, brand, logger), provider
}
