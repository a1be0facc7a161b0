package intake

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/lead-intake/internal/files"
	"github.com/wolfman30/lead-intake/internal/leads"
	"github.com/wolfman30/lead-intake/internal/messaging"
	"github.com/wolfman30/lead-intake/internal/observability/metrics"
	"github.com/wolfman30/lead-intake/pkg/logging"
)

var tracer = otel.Tracer("leadintake.internal.intake")

// LeadStore durably records leads. Append failure aborts the submission.
type LeadStore interface {
	Append(ctx context.Context, rec *leads.Record) (leads.AppendResult, error)
	AppendNotes(ctx context.Context, leadID, notes string) error
}

// FileStore stores attachments.
type FileStore interface {
	Upload(ctx context.Context, att files.Attachment, hint string) (files.StoredFile, error)
}

// Notifier sends email notifications.
type Notifier interface {
	NotifyInternal(ctx context.Context, rec *leads.Record, location string) error
	NotifyUser(ctx context.Context, rec *leads.Record) error
}

// Messenger confirms a lead over chat.
type Messenger interface {
	Confirm(ctx context.Context, rec *leads.Record) (messaging.ConfirmResult, error)
}

// EventPublisher announces persisted leads to downstream consumers.
type EventPublisher interface {
	PublishLeadCreated(ctx context.Context, rec *leads.Record, location string) error
}

// Stage names used in spans, metrics and logs.
const (
	StageAttachment = "attachment"
	StagePersist    = "persist"
	StageNotify     = "notify_internal"
	StagePublish    = "publish_event"
	StageConfirm    = "confirm"
	StageNotes      = "append_notes"
)

// Prefixes of the internal notes recorded for tolerable failures.
const (
	NoteUploadFailed   = "Error al subir archivo: "
	NoteInternalFailed = "Error email interno: "
	NoteEventFailed    = "Error evento: "
	NoteConfirmFailed  = "Error confirmación: "
	// NoteManualFollowUp replaces the error text when a confirmation
	// collaborator asks for a human to send it.
	NoteManualFollowUp = "WhatsApp pendiente de envío manual"
)

// DefaultStageTimeout bounds each collaborator call.
const DefaultStageTimeout = 15 * time.Second

// Dependencies are the collaborators driven by the orchestrator. Leads is
// required; Files defaults to a store that rejects every upload; Events is optional.
type Dependencies struct {
	Leads     LeadStore
	Files     FileStore
	Notifier  Notifier
	Messenger Messenger
	Events    EventPublisher
}

// Orchestrator sequences the side effects of an accepted submission.
type Orchestrator struct {
	leads      LeadStore
	files      FileStore
	notifier   Notifier
	events     EventPublisher
	confirmers map[Channel]Confirmer

	stageTimeout time.Duration
	location     *time.Location
	now          func() time.Time
	newID        func(time.Time) string
	metrics      *metrics.IntakeMetrics
	logger       *logging.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithStageTimeout bounds each collaborator call. Zero disables the bound.
func WithStageTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.stageTimeout = d }
}

// WithLocation sets the timezone lead timestamps are recorded in.
func WithLocation(loc *time.Location) Option {
	return func(o *Orchestrator) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides lead ID generation.
func WithIDGenerator(fn func(time.Time) string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithMetrics records stage latency and failures.
func WithMetrics(m *metrics.IntakeMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator wires the collaborators.
func NewOrchestrator(deps Dependencies, logger *logging.Logger, opts ...Option) *Orchestrator {
	if deps.Leads == nil {
		panic("intake: lead store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if deps.Files == nil {
		deps.Files = files.DisabledStore{}
	}
	o := &Orchestrator{
		leads:        deps.Leads,
		files:        deps.Files,
		notifier:     deps.Notifier,
		events:       deps.Events,
		confirmers:   map[Channel]Confirmer{},
		stageTimeout: DefaultStageTimeout,
		location:     time.UTC,
		now:          time.Now,
		newID:        leads.NewID,
		logger:       logger,
	}
	if deps.Notifier != nil {
		o.confirmers[ChannelEmail] = EmailConfirmation{Notifier: deps.Notifier}
	}
	if deps.Messenger != nil {
		o.confirmers[ChannelMessage] = MessageConfirmation{Messenger: deps.Messenger}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run drives the stages for an accepted submission and an attachment that
// already passed CheckAttachment. Only persistence failure fails the result.
func (o *Orchestrator) Run(ctx context.Context, sub Submission, att *files.Attachment) Result {
	ctx, span := tracer.Start(ctx, "intake.orchestrate")
	defer span.End()

	now := o.now().In(o.location)

	// 1. Attachment store (tolerable).
	var (
		stored    files.StoredFile
		uploadErr error
	)
	if att != nil {
		hint := fmt.Sprintf("TEMP-%d", now.UnixMilli())
		uploadErr = o.stage(ctx, StageAttachment, func(ctx context.Context) error {
			var err error
			stored, err = o.files.Upload(ctx, *att, hint)
			return err
		})
	}

	// 2. Persistence (critical).
	rec := o.buildRecord(sub, now, stored, uploadErr)
	var appended leads.AppendResult
	if err := o.stage(ctx, StagePersist, func(ctx context.Context) error {
		var err error
		appended, err = o.leads.Append(ctx, rec)
		return err
	}); err != nil {
		span.SetStatus(codes.Error, "persistence failed")
		o.logger.Error("lead persistence failed", "lead_id", rec.ID, "error", err)
		return failure(CodePersistenceFailed, MessagePersistenceFailed)
	}
	leadID := rec.ID
	if appended.LeadID != "" {
		leadID = appended.LeadID
	}
	span.SetAttributes(attribute.String("lead.id", leadID))

	// The lead is saved; the remaining stages must not be cut short by the
	// caller going away.
	ctx = context.WithoutCancel(ctx)
	var notes []string

	// 3. Internal notification (tolerable).
	if err := o.stage(ctx, StageNotify, func(ctx context.Context) error {
		if o.notifier == nil {
			return fmt.Errorf("notifier not configured")
		}
		return o.notifier.NotifyInternal(ctx, rec, appended.Location)
	}); err != nil {
		notes = append(notes, NoteInternalFailed+err.Error())
	}

	// 3b. Lead event (tolerable, optional).
	if o.events != nil {
		if err := o.stage(ctx, StagePublish, func(ctx context.Context) error {
			return o.events.PublishLeadCreated(ctx, rec, appended.Location)
		}); err != nil {
			notes = append(notes, NoteEventFailed+err.Error())
		}
	}

	// 4. Submitter confirmation (tolerable), strategy chosen by channel.
	var pendingManual bool
	if err := o.stage(ctx, StageConfirm, func(ctx context.Context) error {
		confirmer, ok := o.confirmers[sub.Channel]
		if !ok {
			return fmt.Errorf("no confirmation configured for channel %q", sub.Channel)
		}
		var err error
		pendingManual, err = confirmer.Confirm(ctx, rec)
		return err
	}); err != nil {
		notes = append(notes, NoteConfirmFailed+err.Error())
	} else if pendingManual {
		notes = append(notes, NoteConfirmFailed+NoteManualFollowUp)
	}

	// 5. Diagnostics written back onto the stored lead (informational).
	if len(notes) > 0 {
		joined := leads.JoinNotes(notes...)
		o.logger.Warn("lead stored with diagnostics", "lead_id", leadID, "notes", joined)
		if err := o.stage(ctx, StageNotes, func(ctx context.Context) error {
			return o.leads.AppendNotes(ctx, leadID, joined)
		}); err != nil {
			o.logger.Warn("could not record diagnostics on lead", "lead_id", leadID, "error", err)
		}
	}

	o.logger.Info("lead captured", "lead_id", leadID, "channel", string(sub.Channel), "diagnostics", len(notes))
	return success(leadID)
}

func (o *Orchestrator) buildRecord(sub Submission, now time.Time, stored files.StoredFile, uploadErr error) *leads.Record {
	rec := &leads.Record{
		ID:             o.newID(now),
		CreatedAt:      now,
		Name:           sub.Name,
		Company:        sub.Company,
		Email:          sub.Email,
		Phone:          sub.Phone,
		Channel:        string(sub.Channel),
		Service:        sub.Service,
		Quantity:       sub.Quantity,
		RequiredDate:   sub.RequiredDate,
		Description:    sub.Description,
		AttachmentURL:  stored.URL,
		AttachmentName: stored.DisplayName,
		SourcePage:     sub.SourcePage,
		UTMSource:      sub.UTMSource,
		UTMMedium:      sub.UTMMedium,
		UTMCampaign:    sub.UTMCampaign,
		IP:             sub.IP,
		UserAgent:      sub.UserAgent,
		Status:         leads.StatusNew,
	}
	if uploadErr != nil {
		rec.AttachmentURL, rec.AttachmentName = "", ""
		rec.InternalNotes = NoteUploadFailed + uploadErr.Error()
	}
	return rec
}

// stage runs fn under its own deadline and span, recording latency and failure.
func (o *Orchestrator) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "intake.stage."+name)
	defer span.End()

	if o.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.stageTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	o.metrics.ObserveStage(name, elapsed, err != nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
		o.logger.Warn("intake stage failed", "stage", name, "error", err, "duration_ms", elapsed.Milliseconds())
		return err
	}
	o.logger.Debug("intake stage completed", "stage", name, "duration_ms", elapsed.Milliseconds())
	return nil
}
