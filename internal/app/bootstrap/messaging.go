package bootstrap

import (
	appconfig "github.com/wolfman30/lead-intake/internal/config"
	"github.com/wolfman30/lead-intake/internal/messaging"
	"github.com/wolfman30/lead-intake/pkg/logging"
)

// BuildMessenger creates the WhatsApp confirmer. It is never nil: without a
// usable provider every confirmation is reported for manual follow-up.
func BuildMessenger(cfg *appconfig.Config, logger *logging.Logger) (*messaging.WhatsAppConfirmer, string) {
	messengerCfg := messaging.ProviderSelectionConfig{
		Preference:         cfg.WhatsAppProvider,
		MetaToken:          cfg.MetaWhatsAppToken,
		MetaPhoneNumberID:  cfg.MetaWhatsAppPhoneID,
		TwilioAccountSID:   cfg.TwilioAccountSID,
		TwilioAuthToken:    cfg.TwilioAuthToken,
		TwilioWhatsAppFrom: cfg.TwilioWhatsAppFrom,
		SendRatePerSecond:  cfg.WhatsAppSendRPS,
		SendBurst:          cfg.WhatsAppSendBurst,
	}
	return messaging.BuildMessenger(messengerCfg, cfg.BrandName, logger)
}
