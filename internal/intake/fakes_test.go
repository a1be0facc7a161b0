package intake

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/wolfman30/lead-intake/internal/files"
	"github.com/wolfman30/lead-intake/internal/leads"
	"github.com/wolfman30/lead-intake/internal/messaging"
)

type fakeLeadStore struct {
	mu        sync.Mutex
	appended  []*leads.Record
	notes     map[string]string
	appendErr error
	notesErr  error
	location  string
}

func (f *fakeLeadStore) Append(_ context.Context, rec *leads.Record) (leads.AppendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return leads.AppendResult{}, f.appendErr
	}
	cp := *rec
	f.appended = append(f.appended, &cp)
	return leads.AppendResult{LeadID: rec.ID, Location: f.location}, nil
}

func (f *fakeLeadStore) AppendNotes(_ context.Context, leadID, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notes == nil {
		f.notes = map[string]string{}
	}
	f.notes[leadID] = notes
	return f.notesErr
}

type fakeFileStore struct {
	calls int
	hint  string
	body  string
	err   error
}

func (f *fakeFileStore) Upload(_ context.Context, att files.Attachment, hint string) (files.StoredFile, error) {
	f.calls++
	f.hint = hint
	if att.Content != nil {
		b, _ := io.ReadAll(att.Content)
		f.body = string(b)
	}
	if f.err != nil {
		return files.StoredFile{}, f.err
	}
	return files.StoredFile{ID: "f-1", URL: "https://files.example/f-1", DisplayName: files.ObjectName(hint, att.Filename)}, nil
}

type fakeNotifier struct {
	internalCalls int
	userCalls     int
	location      string
	internalErr   error
	userErr       error
	block         bool
}

func (f *fakeNotifier) NotifyInternal(ctx context.Context, _ *leads.Record, location string) error {
	f.internalCalls++
	f.location = location
	if f.block {
		<-ctx.Done()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.internalErr
}

func (f *fakeNotifier) NotifyUser(context.Context, *leads.Record) error {
	f.userCalls++
	return f.userErr
}

type fakeMessenger struct {
	calls  int
	result messaging.ConfirmResult
	err    error
}

func (f *fakeMessenger) Confirm(context.Context, *leads.Record) (messaging.ConfirmResult, error) {
	f.calls++
	return f.result, f.err
}

type fakePublisher struct {
	calls int
	err   error
}

func (f *fakePublisher) PublishLeadCreated(context.Context, *leads.Record, string) error {
	f.calls++
	return f.err
}

type fakeGuard struct {
	blocked bool
	calls   []string
}

func (f *fakeGuard) Check(_ context.Context, identity string, _ int, _ time.Duration) bool {
	f.calls = append(f.calls, identity)
	return f.blocked
}

var errBoom = errors.New("boom")

var fixedNow = time.Date(2026, 3, 4, 18, 30, 5, 0, time.UTC)

type harness struct {
	store     *fakeLeadStore
	files     *fakeFileStore
	notifier  *fakeNotifier
	messenger *fakeMessenger
	events    *fakePublisher
	orch      *Orchestrator
}

func newHarness(opts ...Option) *harness {
	h := &harness{
		store:     &fakeLeadStore{location: "https://docs.google.com/spreadsheets/d/sheet"},
		files:     &fakeFileStore{},
		notifier:  &fakeNotifier{},
		messenger: &fakeMessenger{result: messaging.ConfirmResult{Provider: "meta"}},
		events:    &fakePublisher{},
	}
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func(time.Time) string { return "LEAD-1772649005000-AB12" }),
	}
	h.orch = NewOrchestrator(Dependencies{
		Leads:     h.store,
		Files:     h.files,
		Notifier:  h.notifier,
		Messenger: h.messenger,
		Events:    h.events,
	}, nil, append(base, opts...)...)
	return h
}

func emailSubmission() Submission {
	return Submission{
		Name:           "Ana Pérez",
		Email:          "ana@example.cl",
		Channel:        ChannelEmail,
		Service:        "Impresión 3D",
		Description:    "Necesito imprimir 20 piezas para un prototipo",
		PolicyAccepted: true,
	}
}

func messageSubmission() Submission {
	sub := emailSubmission()
	sub.Email = ""
	sub.Phone = "+56912345678"
	sub.Channel = ChannelMessage
	return sub
}
