package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"finanzapp/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func expense(name, category string, cents int64, date core.Date) core.Expense {
	return core.Expense{
		ProjectID: "p1",
		Name:      name,
		Category:  category,
		Amount:    core.Money{Cents: cents},
		Date:      date,
	}
}

func TestCreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	in := expense("Tacos", "Comida", 15000, core.NewDate(2024, 3, 5))
	in.Merchant = "Taquería El Güero"
	in.PaymentMethod = core.PaymentCash
	in.RFC = "XAXX010101000"
	in.TaxAmount = core.Money{Cents: 2069}

	created, err := repo.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("Create did not assign id/timestamps: %+v", created)
	}

	got, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}

	got.Amount = core.Money{Cents: 18000}
	got.Name = "Tacos al pastor"
	updated, err := repo.Update(ctx, got)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Amount.Cents != 18000 || updated.Name != "Tacos al pastor" {
		t.Errorf("Update = %+v", updated)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Errorf("UpdatedAt %v not after CreatedAt %v", updated.UpdatedAt, updated.CreatedAt)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
	if _, err := repo.Update(ctx, created); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update missing = %v, want ErrNotFound", err)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	seed := []core.Expense{
		expense("Uber aeropuerto", "Transporte", 35000, core.NewDate(2024, 2, 28)),
		expense("Súper", "Compras", 120000, core.NewDate(2024, 3, 2)),
		expense("Café 100%", "Comida", 6500, core.NewDate(2024, 3, 10)),
		expense("Comida equipo", "Comida", 98000, core.NewDate(2024, 3, 15)),
	}
	other := expense("Otro proyecto", "Comida", 100, core.NewDate(2024, 3, 15))
	other.ProjectID = "p2"
	seed = append(seed, other)
	for _, e := range seed {
		if _, err := repo.Create(ctx, e); err != nil {
			t.Fatalf("seed %s: %v", e.Name, err)
		}
	}

	names := func(es []core.Expense) []string {
		out := make([]string, len(es))
		for i, e := range es {
			out[i] = e.Name
		}
		return out
	}

	tests := []struct {
		name   string
		filter core.Filter
		want   []string
	}{
		{"project ordered by date desc", core.Filter{ProjectID: "p1"},
			[]string{"Comida equipo", "Café 100%", "Súper", "Uber aeropuerto"}},
		{"category", core.Filter{ProjectID: "p1", Category: "Comida"},
			[]string{"Comida equipo", "Café 100%"}},
		{"date range", core.Filter{From: core.NewDate(2024, 3, 1), To: core.NewDate(2024, 3, 10)},
			[]string{"Café 100%", "Súper"}},
		{"search escapes wildcards", core.Filter{Search: "100%"}, []string{"Café 100%"}},
		{"search is a substring match", core.Filter{Search: "aero"}, []string{"Uber aeropuerto"}},
		{"paging", core.Filter{ProjectID: "p1", Limit: 2, Offset: 1}, []string{"Café 100%", "Súper"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if diff := cmp.Diff(tt.want, names(got), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("List mismatch (-want +got):\n%s", diff)
			}
		})
	}

	n, err := repo.Count(ctx, core.Filter{ProjectID: "p1"})
	if err != nil || n != 4 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestCategoryTotalsAndOverview(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, e := range []core.Expense{
		expense("a", "Comida", 1000, core.NewDate(2024, 3, 1)),
		expense("b", "Comida", 2000, core.NewDate(2024, 3, 31)),
		expense("c", "Transporte", 1000, core.NewDate(2024, 3, 15)),
		expense("d", "Comida", 5000, core.NewDate(2024, 4, 1)),
	} {
		if _, err := repo.Create(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	totals, err := repo.CategoryTotals(ctx, "p1", 2024, 3)
	if err != nil {
		t.Fatalf("CategoryTotals: %v", err)
	}
	want := []core.CategoryAmount{
		{Name: "Comida", Amount: core.Money{Cents: 3000}, Count: 2},
		{Name: "Transporte", Amount: core.Money{Cents: 1000}, Count: 1},
	}
	if diff := cmp.Diff(want, totals, cmpopts.IgnoreFields(core.CategoryAmount{}, "Share")); diff != "" {
		t.Errorf("CategoryTotals mismatch (-want +got):\n%s", diff)
	}

	ov, err := repo.ReadMonthOverview(ctx, "p1", 2024, 3)
	if err != nil {
		t.Fatal(err)
	}
	if ov.Total.Cents != 4000 || ov.ByCategory[0].Share.StringFixed(1) != "75.0" {
		t.Errorf("overview = %+v", ov)
	}
}

func TestExportStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	e, err := repo.Create(ctx, expense("x", "", 100, core.NewDate(2024, 1, 1)))
	if err != nil {
		t.Fatal(err)
	}

	pending, err := repo.GetPendingExports(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0].ID != e.ID || pending[0].Version != 1 {
		t.Fatalf("GetPendingExports = %+v, %v", pending, err)
	}

	if err := repo.MarkExportError(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if status, _ := repo.ExportStatus(ctx, e.ID); status != ExportError {
		t.Errorf("status = %s", status)
	}
	if pending, _ := repo.GetPendingExports(ctx, 10); len(pending) != 0 {
		t.Errorf("errored export still pending: %+v", pending)
	}
	stats, err := repo.ExportStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]int{ExportPending: 0, ExportDone: 0, ExportError: 1}, stats); diff != "" {
		t.Errorf("ExportStats mismatch (-want +got):\n%s", diff)
	}
	if n, err := repo.RetryFailedExports(ctx); err != nil || n != 1 {
		t.Errorf("RetryFailedExports = %d, %v", n, err)
	}
	if pending, _ := repo.GetPendingExports(ctx, 10); len(pending) != 1 {
		t.Errorf("retried export not pending: %+v", pending)
	}

	if err := repo.MarkExported(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if pending, _ := repo.GetPendingExports(ctx, 10); len(pending) != 0 {
		t.Errorf("still pending: %+v", pending)
	}

	if _, err := repo.Update(ctx, e); err != nil {
		t.Fatal(err)
	}
	pending, _ = repo.GetPendingExports(ctx, 10)
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Errorf("update did not re-queue export: %+v", pending)
	}

	if _, err := repo.ExportStatus(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("ExportStatus(missing) = %v", err)
	}
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	v, dirty, err := SchemaVersion(path)
	if err != nil || dirty || v != 3 {
		t.Errorf("SchemaVersion = %d, %v, %v", v, dirty, err)
	}
}
