package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/lead-intake/pkg/logging"
)

var metaSendTracer = otel.Tracer("leadintake.internal.messaging.meta_send")

const (
	metaGraphBaseURL = "https://graph.facebook.com"
	metaGraphVersion = "v18.0"
)

// MetaSender posts text messages through the WhatsApp Cloud API.
type MetaSender struct {
	token      string
	phoneID    string
	baseURL    string
	httpClient *http.Client
	backoff    func(int) time.Duration
	logger     *logging.Logger
}

// NewMetaSender builds a Cloud API sender for the given business phone number ID.
func NewMetaSender(token, phoneNumberID string, logger *logging.Logger) *MetaSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &MetaSender{
		token:   token,
		phoneID: phoneNumberID,
		baseURL: metaGraphBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff: defaultBackoff,
		logger:  logger,
	}
}

var _ TextSender = (*MetaSender)(nil)

type metaTextRequest struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type metaTextResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText dispatches a single WhatsApp text, retrying transient failures.
func (s *MetaSender) SendText(ctx context.Context, to, body string) (string, error) {
	if s.token == "" || s.phoneID == "" {
		return "", errors.New("meta whatsapp credentials missing")
	}
	recipient := strings.TrimPrefix(NormalizeE164(to), "+")
	if recipient == "" {
		return "", errors.New("to required")
	}
	if strings.TrimSpace(body) == "" {
		return "", errors.New("body required")
	}

	ctx, span := metaSendTracer.Start(ctx, "messaging.meta.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.provider", ProviderMeta),
		attribute.String("messaging.to", logging.MaskPhone(to)),
	)

	payload := metaTextRequest{MessagingProduct: "whatsapp", To: recipient, Type: "text"}
	payload.Text.Body = body
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/messages", s.baseURL, metaGraphVersion, s.phoneID)

	respBody, err := postWithRetry(ctx, s.httpClient, s.backoff, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+s.token)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, formatMetaError)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "meta send failed")
		return "", fmt.Errorf("meta send failed: %w", err)
	}

	var parsed metaTextResponse
	_ = json.Unmarshal(respBody, &parsed)
	var id string
	if len(parsed.Messages) > 0 {
		id = parsed.Messages[0].ID
	}
	s.logger.Info("meta whatsapp sent", "to", logging.MaskPhone(to), "message_id", id)
	return id, nil
}

func formatMetaError(status int, body []byte) string {
	body = bytesTrimSpace(body)
	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return fmt.Sprintf("status %d code %d: %s", status, parsed.Error.Code, parsed.Error.Message)
	}
	if len(body) == 0 {
		return fmt.Sprintf("status %d", status)
	}
	return fmt.Sprintf("status %d: %s", status, string(body))
}
