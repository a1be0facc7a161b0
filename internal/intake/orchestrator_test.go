package intake

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lead-intake/internal/files"
	"github.com/wolfman30/lead-intake/internal/leads"
	"github.com/wolfman30/lead-intake/internal/messaging"
)

func TestOrchestrator_Success(t *testing.T) {
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	h := newHarness(WithLocation(loc))

	res := h.orch.Run(context.Background(), emailSubmission(), nil)

	require.True(t, res.Success)
	assert.Equal(t, "LEAD-1772649005000-AB12", res.LeadID)
	assert.Equal(t, MessageSuccess, res.Message)

	require.Len(t, h.store.appended, 1)
	rec := h.store.appended[0]
	assert.Equal(t, leads.StatusNew, rec.Status)
	assert.Equal(t, "04/03/2026 15:30:05", rec.Timestamp())
	assert.Empty(t, rec.InternalNotes)
	assert.False(t, rec.HasAttachment())

	assert.Equal(t, 0, h.files.calls)
	assert.Equal(t, 1, h.notifier.internalCalls)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/sheet", h.notifier.location)
	assert.Equal(t, 1, h.notifier.userCalls)
	assert.Equal(t, 0, h.messenger.calls)
	assert.Equal(t, 1, h.events.calls)
	assert.Empty(t, h.store.notes, "no diagnostics expected")
}

func TestOrchestrator_TolerableFailuresNeverSurface(t *testing.T) {
	h := newHarness()
	h.notifier.internalErr = errBoom
	h.notifier.userErr = errBoom
	h.events.err = errBoom

	res := h.orch.Run(context.Background(), emailSubmission(), nil)

	require.True(t, res.Success)
	assert.NotEmpty(t, res.LeadID)
	assert.Equal(t,
		"Error email interno: boom | Error evento: boom | Error confirmación: boom",
		h.store.notes[res.LeadID],
	)
}

func TestOrchestrator_PersistenceFailureAborts(t *testing.T) {
	h := newHarness()
	h.store.appendErr = leads.ErrPersistence

	res := h.orch.Run(context.Background(), messageSubmission(), &files.Attachment{
		Filename: "a.png", ContentType: "image/png", Size: 1, Content: strings.NewReader("x"),
	})

	assert.False(t, res.Success)
	assert.Equal(t, CodePersistenceFailed, res.Code)
	assert.Equal(t, MessagePersistenceFailed, res.Message)
	assert.Equal(t, 500, res.HTTPStatus())
	assert.Empty(t, res.LeadID)

	assert.Equal(t, 1, h.files.calls, "attachment stage runs before persistence")
	assert.Equal(t, 0, h.notifier.internalCalls)
	assert.Equal(t, 0, h.notifier.userCalls)
	assert.Equal(t, 0, h.messenger.calls)
	assert.Equal(t, 0, h.events.calls)
}

func TestOrchestrator_AttachmentStored(t *testing.T) {
	h := newHarness()
	att := &files.Attachment{Filename: "plano.pdf", ContentType: "application/pdf", Size: 4, Content: strings.NewReader("%PDF")}

	res := h.orch.Run(context.Background(), emailSubmission(), att)

	require.True(t, res.Success)
	assert.Equal(t, "TEMP-1772649005000", h.files.hint)
	assert.Equal(t, "%PDF", h.files.body)
	rec := h.store.appended[0]
	assert.Equal(t, "https://files.example/f-1", rec.AttachmentURL)
	assert.Equal(t, "TEMP-1772649005000_plano.pdf", rec.AttachmentName)
}

func TestOrchestrator_AttachmentFailureIsNoted(t *testing.T) {
	h := newHarness()
	h.files.err = errBoom
	att := &files.Attachment{Filename: "plano.pdf", ContentType: "application/pdf", Size: 4, Content: strings.NewReader("%PDF")}

	res := h.orch.Run(context.Background(), emailSubmission(), att)

	require.True(t, res.Success)
	rec := h.store.appended[0]
	assert.False(t, rec.HasAttachment())
	assert.Empty(t, rec.AttachmentName)
	assert.Equal(t, "Error al subir archivo: boom", rec.InternalNotes)
	assert.Empty(t, h.store.notes, "upload note travels with the record")
}

func TestOrchestrator_MessageChannelUsesMessenger(t *testing.T) {
	h := newHarness()

	res := h.orch.Run(context.Background(), messageSubmission(), nil)

	require.True(t, res.Success)
	assert.Equal(t, 1, h.messenger.calls)
	assert.Equal(t, 0, h.notifier.userCalls)
	assert.Equal(t, 1, h.notifier.internalCalls)
}

func TestOrchestrator_MessengerFallbackRecordsManualFollowUp(t *testing.T) {
	h := newHarness()
	h.messenger.result = messaging.ConfirmResult{Fallback: true, Reason: "provider not configured"}

	res := h.orch.Run(context.Background(), messageSubmission(), nil)

	require.True(t, res.Success)
	assert.Equal(t, "Error confirmación: WhatsApp pendiente de envío manual", h.store.notes[res.LeadID])
}

func TestOrchestrator_MessengerErrorRecordsErrorText(t *testing.T) {
	h := newHarness()
	h.messenger.err = errBoom

	res := h.orch.Run(context.Background(), messageSubmission(), nil)

	require.True(t, res.Success)
	assert.Equal(t, "Error confirmación: boom", h.store.notes[res.LeadID])
}

func TestOrchestrator_NotesWriteFailureIsIgnored(t *testing.T) {
	h := newHarness()
	h.notifier.internalErr = errBoom
	h.store.notesErr = leads.ErrLeadNotFound

	res := h.orch.Run(context.Background(), emailSubmission(), nil)
	assert.True(t, res.Success)
}

func TestOrchestrator_StageTimeout(t *testing.T) {
	h := newHarness(WithStageTimeout(10 * time.Millisecond))
	h.notifier.block = true

	start := time.Now()
	res := h.orch.Run(context.Background(), emailSubmission(), nil)

	require.True(t, res.Success)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Contains(t, h.store.notes[res.LeadID], "Error email interno: context deadline exceeded")
	assert.Equal(t, 1, h.notifier.userCalls, "later stages still run")
}

func TestOrchestrator_CancelledCallerStillNotifies(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	store := &cancelOnAppend{fakeLeadStore: h.store, cancel: cancel}
	h.orch.leads = store

	res := h.orch.Run(ctx, emailSubmission(), nil)

	require.True(t, res.Success)
	assert.Equal(t, 1, h.notifier.internalCalls)
	assert.Empty(t, h.store.notes)
}

type cancelOnAppend struct {
	*fakeLeadStore
	cancel context.CancelFunc
}

func (c *cancelOnAppend) Append(ctx context.Context, rec *leads.Record) (leads.AppendResult, error) {
	res, err := c.fakeLeadStore.Append(ctx, rec)
	c.cancel()
	return res, err
}

func TestOrchestrator_WithoutOptionalCollaborators(t *testing.T) {
	store := &fakeLeadStore{}
	orch := NewOrchestrator(Dependencies{Leads: store}, nil)

	res := orch.Run(context.Background(), messageSubmission(), &files.Attachment{
		Filename: "a.png", ContentType: "image/png", Size: 1, Content: strings.NewReader("x"),
	})

	require.True(t, res.Success)
	require.Len(t, store.appended, 1)
	assert.Contains(t, store.appended[0].InternalNotes, "Error al subir archivo: ")
	notes := store.notes[res.LeadID]
	assert.Contains(t, notes, "Error email interno: notifier not configured")
	assert.Contains(t, notes, "Error confirmación: no confirmation configured")
}

func TestNewOrchestrator_RequiresLeadStore(t *testing.T) {
	assert.Panics(t, func() { NewOrchestrator(Dependencies{}, nil) })
}
