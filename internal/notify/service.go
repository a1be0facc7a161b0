package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/lead-intake/internal/leads"
	"github.com/wolfman30/lead-intake/pkg/logging"
)

// ErrNotification wraps every failed notification so callers can tell it
// apart from programming errors.
var ErrNotification = errors.New("notify: notification failed")

// Config holds the addresses the service writes to.
type Config struct {
	InternalEmail string
	Brand         string
}

// Service sends the internal lead alert and the submitter confirmation email.
type Service struct {
	email    EmailSender
	internal string
	brand    string
	logger   *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, cfg Config, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Brand == "" {
		cfg.Brand = DefaultFromName
	}
	return &Service{
		email:    email,
		internal: cfg.InternalEmail,
		brand:    cfg.Brand,
		logger:   logger,
	}
}

// NotifyInternal alerts the sales inbox about a new lead. location points
// at the stored lead and may be empty.
func (s *Service) NotifyInternal(ctx context.Context, rec *leads.Record, location string) error {
	if s.email == nil {
		return fmt.Errorf("%w: email sender not configured", ErrNotification)
	}
	if s.internal == "" {
		return fmt.Errorf("%w: internal recipient not configured", ErrNotification)
	}

	view := newLeadView(rec, s.brand, location)
	html, err := renderHTML("internal.html", view)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotification, err)
	}

	msg := EmailMessage{
		To:       s.internal,
		FromName: s.brand + " Website",
		Subject:  InternalSubject(rec),
		Body:     internalText(view),
		HTML:     html,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrNotification, err)
	}
	s.logger.Info("notify: internal lead email sent", "lead_id", rec.ID)
	return nil
}

// NotifyUser emails the submitter a summary of their request.
func (s *Service) NotifyUser(ctx context.Context, rec *leads.Record) error {
	if s.email == nil {
		return fmt.Errorf("%w: email sender not configured", ErrNotification)
	}
	if rec.Email == "" {
		return fmt.Errorf("%w: submitter email missing", ErrNotification)
	}

	view := newLeadView(rec, s.brand, "")
	html, err := renderHTML("confirmation.html", view)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotification, err)
	}

	msg := EmailMessage{
		To:       rec.Email,
		ToName:   rec.Name,
		FromName: s.brand,
		Subject:  ConfirmationSubject(s.brand),
		Body:     confirmationText(view),
		HTML:     html,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrNotification, err)
	}
	s.logger.Info("notify: confirmation email sent", "lead_id", rec.ID)
	return nil
}

// InternalSubject is the subject line of the sales alert.
func InternalSubject(rec *leads.Record) string {
	return fmt.Sprintf("Nuevo contacto web – %s – %s", rec.Service, rec.Name)
}

// ConfirmationSubject is the subject line of the submitter confirmation.
func ConfirmationSubject(brand string) string {
	return "Recibimos tu solicitud – " + brand
}
