package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finanzapp/internal/log"
	ports "finanzapp/internal/sheets"
)

// Ensure interface conformance
var (
	_ ports.RowWriter = (*Client)(nil)
	_ ports.RowReader = (*Client)(nil)
)

const (
	defaultSheetName  = "Gastos"
	defaultCacheValid = 2 * time.Minute
	lastColumn        = "I"
)

// Config selects the spreadsheet and the service account used to reach it.
// CredentialsJSON wins over CredentialsFile; with neither set the
// GOOGLE_APPLICATION_CREDENTIALS file is used.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client exports rows to one sheet of a spreadsheet. It keeps a short-lived
// index of expense id to row number so upserts do not read the whole id
// column on every call.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger

	mu                 sync.Mutex
	sheetID            *int64
	rowIndex           map[string]int // expense id -> 1-based row
	cachedRowCount     int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		cfg.SheetName = defaultSheetName
	}
	logger = logger.WithComponent(log.ComponentSheets)

	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets export configured",
		"spreadsheet_id", cfg.SpreadsheetID,
		"sheet", cfg.SheetName)

	return &Client{
		svc:                svc,
		spreadsheetID:      cfg.SpreadsheetID,
		sheetName:          cfg.SheetName,
		logger:             logger,
		cacheValidDuration: defaultCacheValid,
	}, nil
}

func credentials(cfg Config) ([]byte, error) {
	if s := strings.TrimSpace(cfg.CredentialsJSON); s != "" {
		return []byte(s), nil
	}
	file := strings.TrimSpace(cfg.CredentialsFile)
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, credentialsJSON []byte) (*gsheet.Service, error) {
	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// UpsertRow rewrites the row holding r.ID, or appends one. The header is
// written first when the sheet is empty.
func (c *Client) UpsertRow(ctx context.Context, r ports.Row) (string, error) {
	if r.ID == "" {
		return "", ports.ErrEmptyRowID
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.refreshIndexLocked(ctx); err != nil {
		return "", err
	}

	if c.cachedRowCount == 0 {
		header := make([]any, len(ports.Header))
		for i, h := range ports.Header {
			header[i] = h
		}
		if err := c.writeRowLocked(ctx, 1, header); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
		c.cachedRowCount = 1
	}

	row, found := c.rowIndex[r.ID]
	if !found {
		row = c.cachedRowCount + 1
	}
	if err := c.writeRowLocked(ctx, row, r.Values()); err != nil {
		c.invalidateLocked()
		return "", err
	}
	c.rowIndex[r.ID] = row
	if row > c.cachedRowCount {
		c.cachedRowCount = row
	}

	ref := rangeFor(c.sheetName, row)
	c.logger.DebugContext(ctx, "Exported row", log.FieldExpenseID, r.ID, "ref", ref, "updated", found)
	return ref, nil
}

// DeleteRow removes the row holding id and shifts the rows below it up.
func (c *Client) DeleteRow(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.refreshIndexLocked(ctx); err != nil {
		return err
	}
	row, ok := c.rowIndex[id]
	if !ok {
		return nil
	}
	sheetID, err := c.sheetIDLocked(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(row - 1),
			EndIndex:   int64(row),
		}},
	}}}
	// Row numbers below the deleted one shift, so the index is rebuilt next time.
	c.invalidateLocked()
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in %s: %w", row, c.sheetName, err)
	}
	c.logger.InfoContext(ctx, "Deleted exported row", log.FieldExpenseID, id, "row", row)
	return nil
}

// Rows reads every exported row below the header.
func (c *Client) Rows(ctx context.Context) ([]ports.Row, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A2:%s", quoteSheet(c.sheetName), lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]ports.Row, 0, len(resp.Values))
	for _, v := range resp.Values {
		cells := toStrings(v)
		if len(cells) == 0 || cells[0] == "" {
			continue
		}
		out = append(out, ports.RowFromValues(cells))
	}
	return out, nil
}

// InvalidateRowCache forces the next write to re-read the id column.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
}

func (c *Client) invalidateLocked() {
	c.cacheExpiresAt = time.Time{}
}

func (c *Client) refreshIndexLocked(ctx context.Context) error {
	if c.rowIndex != nil && time.Now().Before(c.cacheExpiresAt) {
		return nil
	}
	rng := fmt.Sprintf("%s!A:A", quoteSheet(c.sheetName))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read id column of %s: %w", c.sheetName, err)
	}
	c.rowIndex, c.cachedRowCount = buildIndex(resp.Values)
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	return nil
}

func (c *Client) writeRowLocked(ctx context.Context, row int, values []any) error {
	rng := rangeFor(c.sheetName, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) sheetIDLocked(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	id, ok := findSheetID(ss.Sheets, c.sheetName)
	if !ok {
		return 0, fmt.Errorf("sheet %q not found", c.sheetName)
	}
	c.sheetID = &id
	return id, nil
}

func findSheetID(sheets []*gsheet.Sheet, name string) (int64, bool) {
	for _, s := range sheets {
		if s.Properties != nil && strings.EqualFold(s.Properties.Title, name) {
			return s.Properties.SheetId, true
		}
	}
	return 0, false
}

// buildIndex maps ids in column A to 1-based row numbers and returns the
// number of rows in use. Row 1 is the header.
func buildIndex(values [][]any) (map[string]int, int) {
	index := make(map[string]int, len(values))
	for i, v := range values {
		if i == 0 || len(v) == 0 {
			continue
		}
		id := strings.TrimSpace(fmt.Sprint(v[0]))
		if id != "" {
			index[id] = i + 1
		}
	}
	return index, len(values)
}

func rangeFor(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(sheet), row, lastColumn, row)
}

// quoteSheet quotes a sheet title for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
