package google

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	gsheet "google.golang.org/api/sheets/v4"

	"finanzapp/internal/log"
	ports "finanzapp/internal/sheets"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{CredentialsJSON: "{}"}, testLogger())
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Errorf("New() error = %v", err)
	}
}

func TestCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"type":"service_account"}`), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr string
	}{
		{"inline json wins", Config{CredentialsJSON: ` {"a":1} `, CredentialsFile: file}, `{"a":1}`, ""},
		{"file", Config{CredentialsFile: file}, `{"type":"service_account"}`, ""},
		{"missing file", Config{CredentialsFile: "/nope/sa.json"}, "", "read service account file"},
		{"nothing set", Config{}, "", "missing service account credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := credentials(tt.cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("credentials() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil || string(got) != tt.want {
				t.Errorf("credentials() = %q, %v", got, err)
			}
		})
	}
}

func TestUninitializedClient(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Gastos"}
	ctx := context.Background()

	if _, err := c.UpsertRow(ctx, ports.Row{}); err != ports.ErrEmptyRowID {
		t.Errorf("UpsertRow(no id) = %v", err)
	}
	if _, err := c.UpsertRow(ctx, ports.Row{ID: "x"}); err == nil {
		t.Error("UpsertRow without service should fail")
	}
	if err := c.DeleteRow(ctx, "x"); err == nil {
		t.Error("DeleteRow without service should fail")
	}
	if _, err := c.Rows(ctx); err == nil {
		t.Error("Rows without service should fail")
	}
}

func TestBuildIndex(t *testing.T) {
	values := [][]any{
		{"ID"},
		{"e-1"},
		{},
		{" e-3 "},
		{""},
	}
	index, count := buildIndex(values)
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
	want := map[string]int{"e-1": 2, "e-3": 4}
	if diff := cmp.Diff(want, index); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}

	index, count = buildIndex(nil)
	if count != 0 || len(index) != 0 {
		t.Errorf("empty sheet = %v, %d", index, count)
	}
}

func TestRangeFor(t *testing.T) {
	tests := []struct {
		sheet string
		row   int
		want  string
	}{
		{"Gastos", 2, "'Gastos'!A2:I2"},
		{"2024 Gastos", 10, "'2024 Gastos'!A10:I10"},
		{"Mario's", 1, "'Mario''s'!A1:I1"},
	}
	for _, tt := range tests {
		if got := rangeFor(tt.sheet, tt.row); got != tt.want {
			t.Errorf("rangeFor(%q, %d) = %q, want %q", tt.sheet, tt.row, got, tt.want)
		}
	}
}

func TestFindSheetID(t *testing.T) {
	sheets := []*gsheet.Sheet{
		{Properties: &gsheet.SheetProperties{Title: "Resumen", SheetId: 0}},
		{},
		{Properties: &gsheet.SheetProperties{Title: "Gastos", SheetId: 918273}},
	}
	if id, ok := findSheetID(sheets, "gastos"); !ok || id != 918273 {
		t.Errorf("findSheetID = %d, %v", id, ok)
	}
	if _, ok := findSheetID(sheets, "Ingresos"); ok {
		t.Error("findSheetID found a missing sheet")
	}
}

func TestRowCacheExpiration(t *testing.T) {
	c := &Client{cacheValidDuration: 100 * time.Millisecond}

	c.mu.Lock()
	isValid := time.Now().Before(c.cacheExpiresAt)
	c.mu.Unlock()
	if isValid {
		t.Error("cache should start expired")
	}

	c.mu.Lock()
	c.rowIndex, c.cachedRowCount = buildIndex([][]any{{"ID"}, {"a"}})
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()

	// A valid cache is served without touching the (nil) service.
	c.mu.Lock()
	err := c.refreshIndexLocked(context.Background())
	c.mu.Unlock()
	if err != nil {
		t.Fatalf("refresh with valid cache = %v", err)
	}

	c.InvalidateRowCache()
	c.mu.Lock()
	isValid = time.Now().Before(c.cacheExpiresAt)
	c.mu.Unlock()
	if isValid {
		t.Error("cache should be expired after invalidation")
	}
}
