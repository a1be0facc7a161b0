package intake

import (
	"context"

	"github.com/wolfman30/lead-intake/internal/leads"
	"github.com/wolfman30/lead-intake/internal/messaging"
)

// Confirmer acknowledges a lead to its submitter. pendingManual means the
// collaborator could not send and a human has to follow up; it is not an error.
type Confirmer interface {
	Confirm(ctx context.Context, rec *leads.Record) (pendingManual bool, err error)
}

// EmailConfirmation confirms through the Notifier.
type EmailConfirmation struct {
	Notifier Notifier
}

func (c EmailConfirmation) Confirm(ctx context.Context, rec *leads.Record) (bool, error) {
	return false, c.Notifier.NotifyUser(ctx, rec)
}

// MessageConfirmation confirms through the Messenger.
type MessageConfirmation struct {
	Messenger Messenger
}

func (c MessageConfirmation) Confirm(ctx context.Context, rec *leads.Record) (bool, error) {
	res, err := c.Messenger.Confirm(ctx, rec)
	if err != nil {
		return false, err
	}
	return res.Fallback, nil
}

var (
	_ Confirmer = EmailConfirmation{}
	_ Confirmer = MessageConfirmation{}
	_ Messenger = (messaging.Messenger)(nil)
)
