package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/lead-intake/pkg/logging"
)

var twilioSendTracer = otel.Tracer("leadintake.internal.messaging.twilio_send")

const twilioBaseURL = "https://api.twilio.com"

// TwilioSender posts WhatsApp messages using Twilio's REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	backoff    func(int) time.Duration
	logger     *logging.Logger
}

// NewTwilioSender builds a sender with sane defaults. from is the WhatsApp
// enabled sender number, with or without the whatsapp: prefix.
func NewTwilioSender(accountSID, authToken, from string, logger *logging.Logger) *TwilioSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       whatsAppAddress(from),
		baseURL:    twilioBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff: defaultBackoff,
		logger:  logger,
	}
}

var _ TextSender = (*TwilioSender)(nil)

// SendText dispatches a single WhatsApp message, retrying transient failures.
func (s *TwilioSender) SendText(ctx context.Context, to, body string) (string, error) {
	if s.accountSID == "" || s.authToken == "" {
		return "", errors.New("twilio credentials missing")
	}
	if s.from == "" {
		return "", errors.New("twilio from required")
	}
	if to == "" {
		return "", errors.New("to required")
	}
	if strings.TrimSpace(body) == "" {
		return "", errors.New("body required")
	}

	ctx, span := twilioSendTracer.Start(ctx, "messaging.twilio.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.provider", ProviderTwilio),
		attribute.String("messaging.to", logging.MaskPhone(to)),
	)

	payload := url.Values{}
	payload.Set("To", whatsAppAddress(to))
	payload.Set("From", s.from)
	payload.Set("Body", body)
	encoded := payload.Encode()

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)

	respBody, err := postWithRetry(ctx, s.httpClient, s.backoff, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(s.accountSID, s.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, formatTwilioError)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "twilio send failed")
		return "", fmt.Errorf("twilio send failed: %w", err)
	}

	var parsed struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	_ = json.Unmarshal(respBody, &parsed)
	s.logger.Info("twilio whatsapp sent", "to", logging.MaskPhone(to), "sid", parsed.SID, "status", parsed.Status)
	return parsed.SID, nil
}

type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatTwilioError(status int, body []byte) string {
	body = bytesTrimSpace(body)
	if len(body) == 0 {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, string(body))
}

func bytesTrimSpace(b []byte) []byte {
	return []byte(strings.TrimSpace(string(b)))
}
