package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"finanzapp/internal/core"
	"finanzapp/internal/format"
	"finanzapp/internal/locale"
	"finanzapp/internal/log"
	"finanzapp/internal/services"
)

var testNow = time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)

type fakeExpenses struct {
	mu    sync.Mutex
	items map[string]core.Expense
	seq   int
	fail  error
}

func newFakeExpenses() *fakeExpenses {
	return &fakeExpenses{items: map[string]core.Expense{}}
}

func (f *fakeExpenses) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return core.Expense{}, f.fail
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	f.seq++
	e.ID = fmt.Sprintf("exp_%d", f.seq)
	e.CreatedAt, e.UpdatedAt = testNow.Add(-time.Hour), testNow.Add(-time.Hour)
	f.items[e.ID] = e
	return e, nil
}

func (f *fakeExpenses) GetExpense(_ context.Context, id string) (core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.items[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (f *fakeExpenses) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.items[e.ID]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.CreatedAt, e.UpdatedAt = old.CreatedAt, testNow
	f.items[e.ID] = e
	return e, nil
}

func (f *fakeExpenses) DeleteExpense(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeExpenses) ListExpenses(_ context.Context, filter core.Filter) (services.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return services.Page{}, f.fail
	}
	filter = filter.Normalized()
	page := services.Page{Limit: filter.Limit, Offset: filter.Offset}
	for _, e := range f.items {
		if filter.ProjectID == "" || e.ProjectID == filter.ProjectID {
			page.Items = append(page.Items, e)
		}
	}
	page.Total = len(page.Items)
	return page, nil
}

func (f *fakeExpenses) MonthSummary(_ context.Context, projectID string, year, month int) (services.MonthSummary, error) {
	if projectID == "" {
		return services.MonthSummary{}, core.ErrEmptyProject
	}
	if month < 1 || month > 12 {
		return services.MonthSummary{}, fmt.Errorf("%w: %04d-%02d", services.ErrInvalidPeriod, year, month)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	totals := map[string]core.CategoryAmount{}
	for _, e := range f.items {
		if e.ProjectID != projectID || e.Date.Year() != year || int(e.Date.Month()) != month {
			continue
		}
		c := totals[e.Category]
		c.Name = e.Category
		c.Amount = c.Amount.Add(e.Amount)
		c.Count++
		totals[e.Category] = c
	}
	var cats []core.CategoryAmount
	for _, c := range totals {
		cats = append(cats, c)
	}
	cur := core.NewMonthOverview(year, month, cats)
	prev := core.NewMonthOverview(year, month-1, nil)
	return services.MonthSummary{Current: cur, Previous: prev, Change: cur.Total}, nil
}

func newTestServer(t *testing.T, svc ExpenseService, rateLimit int) *Server {
	t.Helper()
	return newTestServerWith(t, Deps{Expenses: svc, RateLimitPerMinute: rateLimit})
}

// newTestServerWith fills the en-US formatter, a silent logger and the
// fixed clock into deps where they are unset.
func newTestServerWith(t *testing.T, deps Deps) *Server {
	t.Helper()
	reg, err := locale.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	p, err := reg.Resolve("en-US", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if deps.Formatter == nil {
		deps.Formatter = format.New(p)
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.Config{Output: io.Discard})
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return testNow }
	}
	srv := NewServer(":0", deps)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

type apiResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func do(t *testing.T, srv *Server, method, target, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	} else if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	var resp apiResponse
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: invalid JSON %q: %v", method, target, rr.Body.String(), err)
		}
	}
	return rr, resp
}

func dataInto[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(resp.Data, &v); err != nil {
		t.Fatalf("decode data %s: %v", resp.Data, err)
	}
	return v
}

func TestHealthAndMiddleware(t *testing.T) {
	srv := newTestServer(t, newFakeExpenses(), 0)

	rr, resp := do(t, srv, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || !resp.Success {
		t.Fatalf("health = %d %+v", rr.Code, resp)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers not applied")
	}

	rr, resp = do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusOK || !resp.Success {
		t.Errorf("readyz = %d %+v", rr.Code, resp)
	}

	rr, resp = do(t, srv, http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound || resp.Success {
		t.Errorf("unknown route = %d %+v", rr.Code, resp)
	}

	rr, resp = do(t, srv, http.MethodPatch, "/api/expenses/exp_1", "")
	if rr.Code != http.StatusMethodNotAllowed || resp.Success || resp.Message != "Method not allowed" {
		t.Errorf("PATCH = %d %+v, want 405 envelope", rr.Code, resp)
	}

	rr, resp = do(t, srv, http.MethodGet, "/api/nope", "")
	if rr.Code != http.StatusNotFound || resp.Success || resp.Message != "Not found" {
		t.Errorf("unknown api route = %d %+v, want 404 envelope", rr.Code, resp)
	}
}

func TestReadinessFailure(t *testing.T) {
	srv := newTestServer(t, newFakeExpenses(), 0)
	srv.ready = func(context.Context) error { return errors.New("database is locked") }

	rr, resp := do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable || resp.Success {
		t.Errorf("readyz = %d %+v", rr.Code, resp)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	svc := newFakeExpenses()
	srv := newTestServer(t, svc, 0)

	// Invalid input reports every failing field.
	rr, resp := do(t, srv, http.MethodPost, "/api/expenses", `{"project_id":"p1","name":"","amount":"abc"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid create = %d", rr.Code)
	}
	if diff := cmp.Diff(map[string]string{
		services.FieldName:   "This field is required",
		services.FieldAmount: services.MsgAmountPositive,
	}, resp.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}

	rr, resp = do(t, srv, http.MethodPost, "/api/expenses",
		`{"project_id":"p1","name":"<b>Tacos</b> & más","amount":"1234.50","merchant":"OXXO Centro","payment_method":"cash"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rr.Code, rr.Body.String())
	}
	created := dataInto[expenseResponse](t, resp)
	if rr.Header().Get("Location") != "/api/expenses/"+created.ID {
		t.Errorf("Location = %q", rr.Header().Get("Location"))
	}
	want := expenseResponse{
		ID:              created.ID,
		ProjectID:       "p1",
		Name:            "Tacos & más",
		Category:        core.SuggestCategory("OXXO Centro"),
		Merchant:        "OXXO Centro",
		Amount:          "1234.50",
		AmountCents:     123450,
		AmountFormatted: "$1,234.50",
		Date:            "2024-03-15",
		DateDisplay:     created.DateDisplay,
		PaymentMethod:   "cash",
		CreatedAt:       created.CreatedAt,
		UpdatedAt:       created.UpdatedAt,
		CreatedAgo:      "1 hour ago",
	}
	if diff := cmp.Diff(want, created); diff != "" {
		t.Errorf("created mismatch (-want +got):\n%s", diff)
	}

	rr, resp = do(t, srv, http.MethodGet, "/api/expenses/"+created.ID, "")
	if rr.Code != http.StatusOK || dataInto[expenseResponse](t, resp).Name != "Tacos & más" {
		t.Errorf("get = %d %s", rr.Code, rr.Body.String())
	}

	// Partial update keeps the fields that were not sent.
	rr, resp = do(t, srv, http.MethodPut, "/api/expenses/"+created.ID, "amount=99")
	if rr.Code != http.StatusOK {
		t.Fatalf("update = %d %s", rr.Code, rr.Body.String())
	}
	updated := dataInto[expenseResponse](t, resp)
	if updated.Amount != "99.00" || updated.Name != "Tacos & más" || updated.PaymentMethod != "cash" {
		t.Errorf("updated = %+v", updated)
	}

	rr, resp = do(t, srv, http.MethodPut, "/api/expenses/"+created.ID, `{"rfc":"nope"}`)
	if rr.Code != http.StatusUnprocessableEntity || resp.Errors[services.FieldRFC] == "" {
		t.Errorf("invalid update = %d %+v", rr.Code, resp)
	}

	rr, _ = do(t, srv, http.MethodPut, "/api/expenses/missing", `{"amount":"1"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("update missing = %d", rr.Code)
	}

	rr, resp = do(t, srv, http.MethodGet, "/api/expenses?project_id=p1", "")
	list := dataInto[struct {
		Items []expenseResponse `json:"items"`
		Total int               `json:"total"`
		Limit int               `json:"limit"`
	}](t, resp)
	if rr.Code != http.StatusOK || list.Total != 1 || len(list.Items) != 1 || list.Limit != core.DefaultListLimit {
		t.Errorf("list = %d %+v", rr.Code, list)
	}

	rr, _ = do(t, srv, http.MethodGet, "/api/expenses?from=15-03-2024", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad filter = %d", rr.Code)
	}

	rr, resp = do(t, srv, http.MethodDelete, "/api/expenses/"+created.ID, "")
	if rr.Code != http.StatusOK || resp.Message != "Expense deleted" {
		t.Errorf("delete = %d %+v", rr.Code, resp)
	}
	rr, _ = do(t, srv, http.MethodGet, "/api/expenses/"+created.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", rr.Code)
	}

	rr, _ = do(t, srv, http.MethodGet, "/metrics", "")
	for _, line := range []string{"expenses_created_total 1", "expenses_updated_total 1", "expenses_deleted_total 1"} {
		if !strings.Contains(rr.Body.String(), line) {
			t.Errorf("metrics missing %q", line)
		}
	}
}

func TestMonthSummary(t *testing.T) {
	svc := newFakeExpenses()
	srv := newTestServer(t, svc, 0)

	for _, body := range []string{
		`{"project_id":"p1","name":"a","amount":"30","category":"Comida","date":"2024-03-02"}`,
		`{"project_id":"p1","name":"b","amount":"10","category":"Transporte","date":"2024-03-03"}`,
	} {
		if rr, _ := do(t, srv, http.MethodPost, "/api/expenses", body); rr.Code != http.StatusCreated {
			t.Fatalf("seed = %d %s", rr.Code, rr.Body.String())
		}
	}

	rr, resp := do(t, srv, http.MethodGet, "/api/expenses/summary?project_id=p1&year=2024&month=3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary = %d %s", rr.Code, rr.Body.String())
	}
	sum := dataInto[summaryResponse](t, resp)
	if sum.Current.Total != "40.00" || sum.Current.MonthName != "March" || sum.Current.TotalFormatted != "$40.00" {
		t.Errorf("current = %+v", sum.Current)
	}
	if len(sum.Current.Categories) != 2 || sum.Current.Categories[0].Name != "Comida" || sum.Current.Categories[0].Share != "75.0" {
		t.Errorf("categories = %+v", sum.Current.Categories)
	}
	if sum.ChangePercent != "0.0" {
		t.Errorf("change percent = %s", sum.ChangePercent)
	}

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"defaults to current month", "/api/expenses/summary?project_id=p1", http.StatusOK},
		{"missing project", "/api/expenses/summary?year=2024&month=3", http.StatusUnprocessableEntity},
		{"invalid month", "/api/expenses/summary?project_id=p1&month=13", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr, _ := do(t, srv, http.MethodGet, tt.target, ""); rr.Code != tt.code {
				t.Errorf("status = %d, want %d", rr.Code, tt.code)
			}
		})
	}
}

func TestExpenseBlur(t *testing.T) {
	srv := newTestServer(t, newFakeExpenses(), 0)

	tests := []struct {
		name       string
		body       string
		code       int
		wantErrors map[string]string
	}{
		{
			name:       "invalid amount",
			body:       `{"field":"amount","amount":"0"}`,
			code:       http.StatusOK,
			wantErrors: map[string]string{services.FieldAmount: services.MsgAmountPositive},
		},
		{
			name:       "valid field has no error",
			body:       `{"field":"amount","amount":"12.50"}`,
			code:       http.StatusOK,
			wantErrors: map[string]string{},
		},
		{
			name: "earlier touched fields are reported",
			body: "field=amount&amount=5&touched=name,date&name=&date=not-a-date",
			code: http.StatusOK,
			wantErrors: map[string]string{
				services.FieldName: "This field is required",
				services.FieldDate: services.MsgInvalidDate,
			},
		},
		{
			name: "unknown field",
			body: `{"field":"password"}`,
			code: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, resp := do(t, srv, http.MethodPost, "/api/forms/expense/blur", tt.body)
			if rr.Code != tt.code {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.code, rr.Body.String())
			}
			if tt.code != http.StatusOK {
				return
			}
			got := dataInto[struct {
				Errors map[string]string `json:"errors"`
			}](t, resp)
			if got.Errors == nil {
				got.Errors = map[string]string{}
			}
			if diff := cmp.Diff(tt.wantErrors, got.Errors); diff != "" {
				t.Errorf("errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatCurrency(t *testing.T) {
	srv := newTestServer(t, newFakeExpenses(), 0)

	rr, resp := do(t, srv, http.MethodGet, "/api/format/currency?amount=1234.5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := dataInto[map[string]any](t, resp)
	if got["formatted"] != "$1,234.50" || got["currency"] != "USD" || got["locale"] != "en-US" {
		t.Errorf("data = %v", got)
	}

	rr, resp = do(t, srv, http.MethodGet, "/api/format/currency", "")
	if rr.Code != http.StatusUnprocessableEntity || resp.Errors["amount"] == "" {
		t.Errorf("missing amount = %d %+v", rr.Code, resp)
	}
}

func TestRateLimitAppliesToAPIOnly(t *testing.T) {
	srv := newTestServer(t, newFakeExpenses(), 1)

	if rr, _ := do(t, srv, http.MethodGet, "/api/expenses", ""); rr.Code != http.StatusOK {
		t.Fatalf("first = %d", rr.Code)
	}
	rr, resp := do(t, srv, http.MethodGet, "/api/expenses", "")
	if rr.Code != http.StatusTooManyRequests || resp.Success || rr.Header().Get("Retry-After") == "" {
		t.Errorf("second = %d %+v", rr.Code, resp)
	}
	if rr, _ := do(t, srv, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("health limited: %d", rr.Code)
	}
}

func TestServiceFailureIsHidden(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType string
	}{
		{"internal", errors.New("disk I/O error"), "internal"},
		{"timeout", fmt.Errorf("list expenses: %w", context.DeadlineExceeded), "timeout"},
		{"canceled", fmt.Errorf("list expenses: %w", context.Canceled), "canceled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			svc := newFakeExpenses()
			svc.fail = tt.err
			srv := newTestServerWith(t, Deps{
				Expenses: svc,
				Logger:   log.New(log.Config{Output: &buf, JSON: true}),
			})

			rr, resp := do(t, srv, http.MethodGet, "/api/expenses", "")
			if rr.Code != http.StatusInternalServerError || strings.Contains(resp.Message, "disk") {
				t.Errorf("failure = %d %+v", rr.Code, resp)
			}

			var logged map[string]any
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				var m map[string]any
				if err := json.Unmarshal([]byte(line), &m); err == nil && m["msg"] == "Expense operation failed" {
					logged = m
				}
			}
			if logged == nil {
				t.Fatalf("no error record in log:\n%s", buf.String())
			}
			if logged[log.FieldErrorType] != tt.wantType || logged[log.FieldOperation] != log.OpList {
				t.Errorf("error record = %v, want %s=%q", logged, log.FieldErrorType, tt.wantType)
			}
		})
	}
}

type fakeComments struct {
	mu       sync.Mutex
	expenses *fakeExpenses
	items    []core.Comment
	seq      int
}

func (f *fakeComments) AddComment(ctx context.Context, expenseID, author, text string) (core.Comment, error) {
	c := core.Comment{ExpenseID: expenseID, Author: author, Text: text}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return core.Comment{}, err
	}
	if _, err := f.expenses.GetExpense(ctx, expenseID); err != nil {
		return core.Comment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	c.ID = fmt.Sprintf("cmt_%d", f.seq)
	c.CreatedAt = testNow.Add(-2 * time.Minute)
	f.items = append(f.items, c)
	return c, nil
}

func (f *fakeComments) Comments(ctx context.Context, expenseID string) ([]core.Comment, error) {
	if _, err := f.expenses.GetExpense(ctx, expenseID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Comment
	for _, c := range f.items {
		if c.ExpenseID == expenseID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeComments) DeleteComment(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.items {
		if c.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return core.ErrCommentNotFound
}

func TestExpenseComments(t *testing.T) {
	expenses := newFakeExpenses()
	expenses.items["exp_1"] = core.Expense{ID: "exp_1", ProjectID: "p1", Name: "Despensa"}
	srv := newTestServerWith(t, Deps{
		Expenses: expenses,
		Comments: &fakeComments{expenses: expenses},
	})

	rr, resp := do(t, srv, http.MethodPost, "/api/expenses/exp_1/comments", `{"author":"Ana","text":"  <i>Pagado</i> con vales  "}`)
	if rr.Code != http.StatusCreated || resp.Message != "Comment added" {
		t.Fatalf("add = %d %s", rr.Code, rr.Body.String())
	}
	added := dataInto[commentResponse](t, resp)
	want := commentResponse{
		ID:         added.ID,
		ExpenseID:  "exp_1",
		Author:     "Ana",
		Text:       "Pagado con vales",
		CreatedAt:  testNow.Add(-2 * time.Minute),
		CreatedAgo: "2 minutes ago",
	}
	if diff := cmp.Diff(want, added); diff != "" {
		t.Errorf("added mismatch (-want +got):\n%s", diff)
	}

	errorCases := []struct {
		name       string
		target     string
		body       string
		wantStatus int
		wantErrors map[string]string
	}{
		{"blank text", "/api/expenses/exp_1/comments", "text=+++", http.StatusUnprocessableEntity,
			map[string]string{services.FieldCommentText: "This field is required"}},
		{"text too long", "/api/expenses/exp_1/comments", "text=" + strings.Repeat("a", core.MaxCommentLength+1), http.StatusUnprocessableEntity,
			map[string]string{services.FieldCommentText: "Maximum 1000 characters"}},
		{"unknown expense", "/api/expenses/missing/comments", "text=hola", http.StatusNotFound, nil},
		{"malformed json", "/api/expenses/exp_1/comments", `{"text":`, http.StatusBadRequest, nil},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			rr, resp := do(t, srv, http.MethodPost, tt.target, tt.body)
			if rr.Code != tt.wantStatus || resp.Success {
				t.Fatalf("status = %d %+v, want %d", rr.Code, resp, tt.wantStatus)
			}
			if diff := cmp.Diff(tt.wantErrors, resp.Errors); diff != "" {
				t.Errorf("errors mismatch (-want +got):\n%s", diff)
			}
		})
	}

	rr, resp = do(t, srv, http.MethodGet, "/api/expenses/exp_1/comments", "")
	list := dataInto[struct {
		Items []commentResponse `json:"items"`
		Total int               `json:"total"`
	}](t, resp)
	if rr.Code != http.StatusOK || list.Total != 1 || len(list.Items) != 1 || list.Items[0].ID != added.ID {
		t.Errorf("list = %d %+v", rr.Code, list)
	}

	rr, resp = do(t, srv, http.MethodGet, "/api/expenses/missing/comments", "")
	if rr.Code != http.StatusNotFound || resp.Message != "Expense not found" {
		t.Errorf("list on missing expense = %d %+v", rr.Code, resp)
	}

	rr, resp = do(t, srv, http.MethodDelete, "/api/comments/"+added.ID, "")
	if rr.Code != http.StatusOK || resp.Message != "Comment deleted" {
		t.Errorf("delete = %d %+v", rr.Code, resp)
	}
	rr, resp = do(t, srv, http.MethodDelete, "/api/comments/"+added.ID, "")
	if rr.Code != http.StatusNotFound || resp.Message != "Comment not found" {
		t.Errorf("second delete = %d %+v", rr.Code, resp)
	}
}

func TestCommentRoutesNeedService(t *testing.T) {
	srv := newTestServer(t, newFakeExpenses(), 0)

	rr, resp := do(t, srv, http.MethodGet, "/api/expenses/exp_1/comments", "")
	if rr.Code != http.StatusNotFound || resp.Message != "Not found" {
		t.Errorf("comments without service = %d %+v", rr.Code, resp)
	}
}

func TestTaxRoutes(t *testing.T) {
	srv := newTestServer(t, newFakeExpenses(), 0)

	rr, resp := do(t, srv, http.MethodPost, "/api/tax/calculate-tax", `{"amount":"100"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("calculate-tax = %d %s", rr.Code, rr.Body.String())
	}
	if diff := cmp.Diff(taxResponse{
		Subtotal:          "100.00",
		IVA:               "16.00",
		Total:             "116.00",
		SubtotalFormatted: "$100.00",
		IVAFormatted:      "$16.00",
		TotalFormatted:    "$116.00",
		Rate:              "0.16",
	}, dataInto[taxResponse](t, resp)); diff != "" {
		t.Errorf("calculate-tax mismatch (-want +got):\n%s", diff)
	}

	rr, resp = do(t, srv, http.MethodPost, "/api/tax/calculate-tax", "amount=116&included=true")
	if got := dataInto[taxResponse](t, resp); rr.Code != http.StatusOK || got.Subtotal != "100.00" || got.Total != "116.00" {
		t.Errorf("calculate-tax included = %d %+v", rr.Code, got)
	}

	for body, want := range map[string]string{
		`{"amount":"1,234.56"}`: services.MsgAmountFormat,
		`{"amount":-5}`:         services.MsgAmountPositive,
		"amount=":               "This field is required",
	} {
		rr, resp = do(t, srv, http.MethodPost, "/api/tax/calculate-tax", body)
		if rr.Code != http.StatusUnprocessableEntity || resp.Errors["amount"] != want {
			t.Errorf("calculate-tax %s = %d %+v, want %q", body, rr.Code, resp.Errors, want)
		}
	}

	rfcCases := []struct {
		body string
		want rfcResponse
	}{
		{"rfc=goma800101ab1", rfcResponse{RFC: "GOMA800101AB1", Valid: true, Type: "individual"}},
		{`{"rfc":"ABC800101AB1"}`, rfcResponse{RFC: "ABC800101AB1", Valid: true, Type: "company"}},
		{"rfc=ABC12", rfcResponse{RFC: "ABC12"}},
	}
	for _, tt := range rfcCases {
		rr, resp = do(t, srv, http.MethodPost, "/api/tax/validate-rfc", tt.body)
		if rr.Code != http.StatusOK {
			t.Fatalf("validate-rfc %s = %d", tt.body, rr.Code)
		}
		if diff := cmp.Diff(tt.want, dataInto[rfcResponse](t, resp)); diff != "" {
			t.Errorf("validate-rfc %s mismatch (-want +got):\n%s", tt.body, diff)
		}
	}
	rr, _ = do(t, srv, http.MethodPost, "/api/tax/validate-rfc", "rfc=")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty rfc = %d", rr.Code)
	}

	rr, resp = do(t, srv, http.MethodPost, "/api/tax/check-deductible",
		`{"category":"Transporte","rfc":"ABC800101AB1","invoice":true}`)
	got := dataInto[deductibleResponse](t, resp)
	if rr.Code != http.StatusOK || !got.Deductible {
		t.Errorf("check-deductible = %d %+v", rr.Code, got)
	}
	want := core.CheckDeductible("Entretenimiento", false, false)
	rr, resp = do(t, srv, http.MethodPost, "/api/tax/check-deductible", "category=Entretenimiento&rfc=nope")
	if diff := cmp.Diff(deductibleResponse{
		Deductible:      false,
		Reasons:         want.Reasons,
		Recommendations: []string{},
	}, dataInto[deductibleResponse](t, resp)); rr.Code != http.StatusOK || diff != "" {
		t.Errorf("check-deductible = %d (-want +got):\n%s", rr.Code, diff)
	}

	rr, _ = do(t, srv, http.MethodGet, "/api/tax/calculate-tax", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET calculate-tax = %d", rr.Code)
	}
}
