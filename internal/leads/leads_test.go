package leads

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

func sampleRecord(id string) *Record {
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		loc = time.UTC
	}
	return &Record{
		ID:          id,
		CreatedAt:   time.Date(2026, 3, 4, 15, 30, 5, 0, loc),
		Name:        "Ana Pérez",
		Email:       "ana@example.cl",
		Channel:     ChannelEmail,
		Service:     "Impresión 3D",
		Description: "Necesito 20 piezas impresas para un prototipo",
		Status:      StatusNew,
	}
}

func TestNewID_Shape(t *testing.T) {
	now := time.UnixMilli(1767225600123)
	id := NewID(now)
	if !regexp.MustCompile(`^LEAD-1767225600123-[0-9A-Z]{4}$`).MatchString(id) {
		t.Fatalf("unexpected id shape %q", id)
	}
}

func TestRecord_Timestamp(t *testing.T) {
	rec := sampleRecord("LEAD-1")
	if got := rec.Timestamp(); got != "04/03/2026 15:30:05" {
		t.Fatalf("unexpected timestamp %q", got)
	}
}

func TestJoinNotes(t *testing.T) {
	if got := JoinNotes("", " a ", "", "b"); got != "a | b" {
		t.Fatalf("unexpected join %q", got)
	}
	if got := JoinNotes(); got != "" {
		t.Fatalf("expected empty join, got %q", got)
	}
}

func TestRow_MatchesHeaders(t *testing.T) {
	rec := sampleRecord("LEAD-1")
	rec.InternalNotes = "Error al subir archivo: boom"
	row := Row(rec)
	if len(row) != len(SheetHeaders) {
		t.Fatalf("row has %d columns, headers have %d", len(row), len(SheetHeaders))
	}
	if row[0] != "LEAD-1" || row[19] != StatusNew || row[20] != rec.InternalNotes {
		t.Fatalf("unexpected row layout: %v", row)
	}
}

func TestMemoryStore_AppendAndNotes(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := sampleRecord("LEAD-1")
	rec.InternalNotes = "Error al subir archivo: timeout"
	res, err := store.Append(ctx, rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.LeadID != "LEAD-1" {
		t.Fatalf("expected lead id echoed, got %q", res.LeadID)
	}

	if err := store.AppendNotes(ctx, "LEAD-1", "Error email interno: smtp down"); err != nil {
		t.Fatalf("append notes: %v", err)
	}
	got, err := store.GetByID(ctx, "LEAD-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.InternalNotes != "Error al subir archivo: timeout | Error email interno: smtp down" {
		t.Fatalf("unexpected notes %q", got.InternalNotes)
	}
	// The caller's record is not mutated by the store.
	if rec.InternalNotes != "Error al subir archivo: timeout" {
		t.Fatalf("store mutated caller record: %q", rec.InternalNotes)
	}
}

func TestMemoryStore_Errors(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Append(ctx, &Record{}); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence for missing id, got %v", err)
	}
	if _, err := store.Append(ctx, sampleRecord("dup")); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if _, err := store.Append(ctx, sampleRecord("dup")); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	if err := store.AppendNotes(ctx, "missing", "x"); err != ErrLeadNotFound {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
	if _, err := store.GetByID(ctx, "missing"); err != ErrLeadNotFound {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
	if n := len(store.List()); n != 1 {
		t.Fatalf("expected one stored lead, got %d", n)
	}
}

// fakeSheets is an in-memory grid implementing sheetsAPI.
type fakeSheets struct {
	mu          sync.Mutex
	rows        [][]any
	formatted   int
	formattedID int64
	sheetIDs    map[string]int64
	appendErr   error
	lastRanges  []string
}

func (f *fakeSheets) GetValues(_ context.Context, _ string, rng string) ([][]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRanges = append(f.lastRanges, rng)
	switch {
	case strings.HasSuffix(rng, "!A1:U1"):
		if len(f.rows) == 0 {
			return nil, nil
		}
		return [][]any{f.rows[0]}, nil
	case strings.HasSuffix(rng, "!A:A"):
		out := make([][]any, len(f.rows))
		for i, r := range f.rows {
			out[i] = []any{r[0]}
		}
		return out, nil
	default:
		row, err := notesRow(rng)
		if err != nil {
			return nil, err
		}
		return [][]any{{f.rows[row-1][20]}}, nil
	}
}

func (f *fakeSheets) UpdateValues(_ context.Context, _ string, rng string, values [][]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.HasSuffix(rng, "!A1:U1") {
		f.rows = append([][]any{values[0]}, f.rows...)
		return nil
	}
	row, err := notesRow(rng)
	if err != nil {
		return err
	}
	f.rows[row-1][20] = values[0][0]
	return nil
}

func (f *fakeSheets) AppendValues(_ context.Context, _ string, _ string, values [][]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows = append(f.rows, values...)
	return nil
}

func (f *fakeSheets) SheetID(_ context.Context, _ string, title string) (int64, error) {
	id, ok := f.sheetIDs[title]
	if !ok && f.sheetIDs != nil {
		return 0, errors.New("tab not found: " + title)
	}
	return id, nil
}

func (f *fakeSheets) FormatHeader(_ context.Context, _ string, sheetID int64) error {
	f.formatted++
	f.formattedID = sheetID
	return nil
}

func notesRow(rng string) (int, error) {
	m := regexp.MustCompile(`!U(\d+)$`).FindStringSubmatch(rng)
	if m == nil {
		return 0, errors.New("unexpected range " + rng)
	}
	return strconv.Atoi(m[1])
}

func TestSheetsStore_AppendBootstrapsHeadersOnce(t *testing.T) {
	api := &fakeSheets{}
	store := newSheetsStore(api, "sheet-123", "")
	ctx := context.Background()

	res, err := store.Append(ctx, sampleRecord("LEAD-1"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if res.Location != "https://docs.google.com/spreadsheets/d/sheet-123/edit" {
		t.Fatalf("unexpected location %q", res.Location)
	}
	if _, err := store.Append(ctx, sampleRecord("LEAD-2")); err != nil {
		t.Fatalf("second append: %v", err)
	}

	if api.formatted != 1 {
		t.Fatalf("expected header formatting once, got %d", api.formatted)
	}
	if len(api.rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(api.rows))
	}
	if api.rows[0][0] != "ID" || api.rows[2][0] != "LEAD-2" {
		t.Fatalf("unexpected sheet contents: %v", api.rows)
	}
}

func TestSheetsStore_AppendFailureIsPersistenceError(t *testing.T) {
	api := &fakeSheets{appendErr: errors.New("quota exceeded")}
	store := newSheetsStore(api, "sheet-123", "Leads")

	_, err := store.Append(context.Background(), sampleRecord("LEAD-1"))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected cause in message, got %v", err)
	}
}

func TestSheetsStore_AppendNotes(t *testing.T) {
	api := &fakeSheets{}
	store := newSheetsStore(api, "sheet-123", "Leads")
	ctx := context.Background()

	rec := sampleRecord("LEAD-7")
	rec.InternalNotes = "Error al subir archivo: boom"
	if _, err := store.Append(ctx, rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendNotes(ctx, "LEAD-7", "Error confirmación: WhatsApp pendiente de envío manual"); err != nil {
		t.Fatalf("append notes: %v", err)
	}
	want := "Error al subir archivo: boom | Error confirmación: WhatsApp pendiente de envío manual"
	if api.rows[1][20] != want {
		t.Fatalf("unexpected notes %q", api.rows[1][20])
	}
	if err := store.AppendNotes(ctx, "LEAD-404", "x"); err != ErrLeadNotFound {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
}

func TestSheetsStore_FormatsHeaderOnConfiguredTab(t *testing.T) {
	api := &fakeSheets{sheetIDs: map[string]int64{"Resumen": 0, "Cotizaciones": 918273645}}
	store := newSheetsStore(api, "sheet-123", "Cotizaciones")

	if _, err := store.Append(context.Background(), sampleRecord("LEAD-1")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if api.formatted != 1 || api.formattedID != 918273645 {
		t.Fatalf("expected header formatted on sheet 918273645, got %d calls on %d", api.formatted, api.formattedID)
	}
}

func TestSheetsStore_UnknownTabFailsHeaderBootstrap(t *testing.T) {
	api := &fakeSheets{sheetIDs: map[string]int64{"Hoja 1": 0}}
	store := newSheetsStore(api, "sheet-123", "Leads")

	_, err := store.Append(context.Background(), sampleRecord("LEAD-1"))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if api.formatted != 0 {
		t.Fatalf("header must not be formatted on an unknown tab")
	}
}

func TestSheetsStore_ConcurrentAppendNotesKeepsEveryFragment(t *testing.T) {
	api := &fakeSheets{}
	store := newSheetsStore(api, "sheet-123", "Leads")
	ctx := context.Background()
	if _, err := store.Append(ctx, sampleRecord("LEAD-9")); err != nil {
		t.Fatalf("append: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.AppendNotes(ctx, "LEAD-9", "nota-"+strconv.Itoa(i)); err != nil {
				t.Errorf("append notes %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	notes, _ := api.rows[1][20].(string)
	for i := 0; i < writers; i++ {
		if !strings.Contains(notes, "nota-"+strconv.Itoa(i)) {
			t.Fatalf("fragment %d lost: %q", i, notes)
		}
	}
	if got := strings.Count(notes, " | "); got != writers-1 {
		t.Fatalf("expected %d separators, got %d in %q", writers-1, got, notes)
	}
}
