package leads

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetHeaders are the column titles of the leads sheet, A through U.
var SheetHeaders = []any{
	"ID",
	"Fecha/Hora",
	"Nombre",
	"Empresa",
	"Email",
	"WhatsApp",
	"Canal preferido",
	"Servicio interés",
	"Cantidad",
	"Fecha requerida",
	"Descripción",
	"Archivo (link)",
	"Archivo (nombre)",
	"Página origen",
	"UTM Source",
	"UTM Medium",
	"UTM Campaign",
	"IP",
	"User Agent",
	"Estado",
	"Notas internas",
}

// notesColumn is the column letter holding "Notas internas".
const notesColumn = "U"

// sheetsAPI is the subset of the Sheets v4 API the store needs.
type sheetsAPI interface {
	GetValues(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]any) error
	AppendValues(ctx context.Context, spreadsheetID, rng string, values [][]any) error
	SheetID(ctx context.Context, spreadsheetID, title string) (int64, error)
	FormatHeader(ctx context.Context, spreadsheetID string, sheetID int64) error
}

// SheetsStore appends leads as rows of a Google Sheet, the CRM of record.
type SheetsStore struct {
	api           sheetsAPI
	spreadsheetID string
	tab           string

	mu           sync.Mutex
	headersReady bool

	// notesMu serializes the read-modify-write of notes cells.
	notesMu sync.Mutex
}

// NewSheetsStore authenticates with a service account JSON and returns a
// store writing to the given spreadsheet tab.
func NewSheetsStore(ctx context.Context, credentialsJSON, spreadsheetID, tab string) (*SheetsStore, error) {
	if credentialsJSON == "" {
		return nil, fmt.Errorf("leads: google service account credentials required")
	}
	if spreadsheetID == "" {
		return nil, fmt.Errorf("leads: spreadsheet id required")
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON([]byte(credentialsJSON)),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("leads: sheets client: %w", err)
	}
	return newSheetsStore(&googleSheets{svc: svc}, spreadsheetID, tab), nil
}

func newSheetsStore(api sheetsAPI, spreadsheetID, tab string) *SheetsStore {
	if tab == "" {
		tab = "Leads"
	}
	return &SheetsStore{api: api, spreadsheetID: spreadsheetID, tab: tab}
}

var _ Store = (*SheetsStore)(nil)

// URL is the browser link to the spreadsheet.
func (s *SheetsStore) URL() string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit", s.spreadsheetID)
}

// Append makes sure the header row exists, then appends the lead as a row.
func (s *SheetsStore) Append(ctx context.Context, rec *Record) (AppendResult, error) {
	if rec == nil || rec.ID == "" {
		return AppendResult{}, fmt.Errorf("%w: record id required", ErrPersistence)
	}
	if err := s.ensureHeaders(ctx); err != nil {
		return AppendResult{}, fmt.Errorf("%w: headers: %v", ErrPersistence, err)
	}
	rng := fmt.Sprintf("%s!A:%s", s.tab, notesColumn)
	if err := s.api.AppendValues(ctx, s.spreadsheetID, rng, [][]any{Row(rec)}); err != nil {
		return AppendResult{}, fmt.Errorf("%w: append row: %v", ErrPersistence, err)
	}
	return AppendResult{LeadID: rec.ID, Location: s.URL()}, nil
}

// AppendNotes locates the lead's row by ID and extends its notes cell.
// The row is looked up on every call since rows may be sorted or removed by
// hand in the sheet.
func (s *SheetsStore) AppendNotes(ctx context.Context, leadID, notes string) error {
	s.notesMu.Lock()
	defer s.notesMu.Unlock()

	ids, err := s.api.GetValues(ctx, s.spreadsheetID, fmt.Sprintf("%s!A:A", s.tab))
	if err != nil {
		return fmt.Errorf("leads: read ids: %w", err)
	}
	row := 0
	for i, r := range ids {
		if len(r) > 0 && fmt.Sprint(r[0]) == leadID {
			row = i + 1
			break
		}
	}
	if row == 0 {
		return ErrLeadNotFound
	}

	cell := fmt.Sprintf("%s!%s%d", s.tab, notesColumn, row)
	current, err := s.api.GetValues(ctx, s.spreadsheetID, cell)
	if err != nil {
		return fmt.Errorf("leads: read notes: %w", err)
	}
	existing := ""
	if len(current) > 0 && len(current[0]) > 0 {
		existing = fmt.Sprint(current[0][0])
	}
	if err := s.api.UpdateValues(ctx, s.spreadsheetID, cell, [][]any{{JoinNotes(existing, notes)}}); err != nil {
		return fmt.Errorf("leads: write notes: %w", err)
	}
	return nil
}

func (s *SheetsStore) ensureHeaders(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.headersReady {
		return nil
	}

	rng := fmt.Sprintf("%s!A1:%s1", s.tab, notesColumn)
	existing, err := s.api.GetValues(ctx, s.spreadsheetID, rng)
	if err != nil {
		return err
	}
	if len(existing) == 0 || len(existing[0]) == 0 {
		if err := s.api.UpdateValues(ctx, s.spreadsheetID, rng, [][]any{SheetHeaders}); err != nil {
			return err
		}
		sheetID, err := s.api.SheetID(ctx, s.spreadsheetID, s.tab)
		if err != nil {
			return err
		}
		if err := s.api.FormatHeader(ctx, s.spreadsheetID, sheetID); err != nil {
			return err
		}
	}
	s.headersReady = true
	return nil
}

// Row lays a record out in SheetHeaders order.
func Row(rec *Record) []any {
	return []any{
		rec.ID,
		rec.Timestamp(),
		rec.Name,
		rec.Company,
		rec.Email,
		rec.Phone,
		rec.Channel,
		rec.Service,
		rec.Quantity,
		rec.RequiredDate,
		rec.Description,
		rec.AttachmentURL,
		rec.AttachmentName,
		rec.SourcePage,
		rec.UTMSource,
		rec.UTMMedium,
		rec.UTMCampaign,
		rec.IP,
		rec.UserAgent,
		rec.Status,
		rec.InternalNotes,
	}
}

// googleSheets adapts *sheets.Service to sheetsAPI.
type googleSheets struct {
	svc *sheets.Service
}

func (g *googleSheets) GetValues(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (g *googleSheets) UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	_, err := g.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

func (g *googleSheets) AppendValues(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	_, err := g.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// SheetID resolves a tab title to its numeric sheet id.
func (g *googleSheets) SheetID(ctx context.Context, spreadsheetID, title string) (int64, error) {
	resp, err := g.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for _, sh := range resp.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("tab %q not found", title)
}

// FormatHeader bolds, shades and freezes the first row.
func (g *googleSheets) FormatHeader(ctx context.Context, spreadsheetID string, sheetID int64) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:         sheetID,
						StartRowIndex:   0,
						EndRowIndex:     1,
						ForceSendFields: []string{"SheetId", "StartRowIndex"},
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat:      &sheets.TextFormat{Bold: true},
							BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
						},
					},
					Fields: "userEnteredFormat(textFormat,backgroundColor)",
				},
			},
			{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId:         sheetID,
						GridProperties:  &sheets.GridProperties{FrozenRowCount: 1},
						ForceSendFields: []string{"SheetId"},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
		},
	}
	_, err := g.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	return err
}
