package messaging

import (
	"context"
	"errors"

	"github.com/wolfman30/lead-intake/pkg/logging"
)

// FailoverSender attempts a primary send, then falls back to a secondary provider on error.
type FailoverSender struct {
	primary       TextSender
	secondary     TextSender
	primaryName   string
	secondaryName string
	logger        *logging.Logger
}

// NewFailoverSender builds a failover sender with named providers.
func NewFailoverSender(primary TextSender, primaryName string, secondary TextSender, secondaryName string, logger *logging.Logger) *FailoverSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &FailoverSender{
		primary:       primary,
		secondary:     secondary,
		primaryName:   primaryName,
		secondaryName: secondaryName,
		logger:        logger,
	}
}

var _ TextSender = (*FailoverSender)(nil)

// SendText tries the primary provider first, then the secondary on failure.
func (f *FailoverSender) SendText(ctx context.Context, to, body string) (string, error) {
	if f == nil || f.primary == nil {
		return "", errors.New("failover primary sender not configured")
	}
	id, err := f.primary.SendText(ctx, to, body)
	if err == nil {
		return id, nil
	}
	if f.secondary == nil {
		return "", err
	}
	f.logger.Warn("primary whatsapp send failed; attempting fallback",
		"provider", f.primaryName,
		"fallback", f.secondaryName,
		"error", err,
		"to", logging.MaskPhone(to),
	)
	id, fallbackErr := f.secondary.SendText(ctx, to, body)
	if fallbackErr != nil {
		f.logger.Error("fallback whatsapp send failed",
			"provider", f.secondaryName,
			"error", fallbackErr,
			"to", logging.MaskPhone(to),
		)
		return "", errors.Join(err, fallbackErr)
	}
	return id, nil
}
