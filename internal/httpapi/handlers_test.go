package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"passbook/backend/internal/cache"
	"passbook/backend/internal/domain"
	"passbook/backend/internal/events"
	"passbook/backend/internal/service"
	"passbook/backend/internal/store/memory"
	"passbook/backend/internal/upstream"
	"passbook/backend/internal/upstream/fake"
)

type testAPI struct {
	*API
	upstream *fake.Server
	paths    upstream.Paths
	events   *events.Recorder
}

// newTestAPI builds a full API against the fake POS upstream, a real
// AuthManager and a real Service so handler tests exercise the complete
// request path.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	paths := upstream.DefaultPaths()
	srv := fake.New(paths.BankTransactions)
	srv.Load(fake.Demo(), paths.For, paths.Products)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	logger, _ := test.NewNullLogger()
	recorder := events.NewRecorder()
	svc := service.New(service.Deps{
		Upstream: upstream.NewClient(ts.URL, 2*time.Second, paths),
		Repo:     memory.New(),
		Cache:    cache.NewMemoryLedgerCache(16),
		CacheTTL: time.Minute,
		Events:   recorder,
		Logger:   logger,
		Location: time.UTC,
	})
	auth := NewAuthManager("test-secret-key", time.Hour, "123456")

	return &testAPI{
		API:      New(svc, auth, "*", logger),
		upstream: srv,
		paths:    paths,
		events:   recorder,
	}
}

func issueToken(t *testing.T, api *testAPI, username, role string) string {
	t.Helper()
	token, err := api.auth.Issue(username, role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func doRequest(t *testing.T, api *testAPI, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v (body: %s)", err, rec.Body.String())
	}
	return out
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := doRequest(t, api, http.MethodGet, "/healthz", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestPassbookRequiresBearerToken(t *testing.T) {
	api := newTestAPI(t)

	if rec := doRequest(t, api, http.MethodGet, "/api/v1/passbook", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := doRequest(t, api, http.MethodGet, "/api/v1/passbook", "not-a-jwt", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", rec.Code)
	}
}

func TestPassbookReturnsFilteredRows(t *testing.T) {
	api := newTestAPI(t)
	token := issueToken(t, api, "kasir1", "cashier")

	rec := doRequest(t, api, http.MethodGet, "/api/v1/passbook?start=2024-01-01&end=2024-01-31&type=credit&sort=amount&desc=true", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	page := decodeBody[domain.PassbookPage](t, rec)
	if len(page.Rows) != 3 || page.Rows[0].ID != "payment-py-1-0" {
		t.Fatalf("unexpected rows: %+v", page.Rows)
	}
	if page.Totals.TotalCredit.String() != "2700" {
		t.Fatalf("expected total credit 2700, got %s", page.Totals.TotalCredit)
	}
}

func TestPassbookRejectsBadQuery(t *testing.T) {
	api := newTestAPI(t)
	token := issueToken(t, api, "kasir1", "cashier")

	for _, target := range []string{
		"/api/v1/passbook?type=refund",
		"/api/v1/passbook?method=barter",
		"/api/v1/passbook?source=payroll",
		"/api/v1/passbook?min=lots",
		"/api/v1/passbook?start=01-2024",
		"/api/v1/passbook?sort=colour",
	} {
		if rec := doRequest(t, api, http.MethodGet, target, token, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestPassbookReportsDegradedSources(t *testing.T) {
	api := newTestAPI(t)
	token := issueToken(t, api, "kasir1", "cashier")
	api.upstream.Fail(api.paths.Suppliers, http.StatusServiceUnavailable)

	rec := doRequest(t, api, http.MethodGet, "/api/v1/passbook/summary", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite failed source, got %d", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	degraded, _ := body["degraded"].([]any)
	if len(degraded) != 1 || degraded[0] != "supplier" {
		t.Fatalf("expected supplier to be degraded, got %v", body["degraded"])
	}
}

func TestUpstreamSessionExpiryReturns401(t *testing.T) {
	api := newTestAPI(t)
	token := issueToken(t, api, "kasir1", "cashier")
	api.upstream.Authorize(func(string) bool { return false })

	if rec := doRequest(t, api, http.MethodGet, "/api/v1/passbook", token, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when upstream rejects the session, got %d", rec.Code)
	}
}

func TestPassbookMonthlyLabels(t *testing.T) {
	api := newTestAPI(t)
	token := issueToken(t, api, "kasir1", "cashier")

	rec := doRequest(t, api, http.MethodGet, "/api/v1/passbook/monthly", token, nil)
	body := decodeBody[struct {
		Monthly []domain.Bucket `json:"monthly"`
	}](t, rec)
	if len(body.Monthly) != 2 || body.Monthly[0].Label != "January 2024" || body.Monthly[1].Label != "February 2024" {
		t.Fatalf("unexpected monthly buckets: %+v", body.Monthly)
	}
}

func TestDashboardRequiresManager(t *testing.T) {
	api := newTestAPI(t)

	cashier := issueToken(t, api, "kasir1", "cashier")
	if rec := doRequest(t, api, http.MethodGet, "/api/v1/dashboard", cashier, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier, got %d", rec.Code)
	}

	manager := issueToken(t, api, "manajer", "manager")
	rec := doRequest(t, api, http.MethodGet, "/api/v1/dashboard", manager, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for manager, got %d", rec.Code)
	}
	report := decodeBody[domain.DashboardReport](t, rec)
	if report.Totals.TotalCredit.String() != "2625" {
		t.Fatalf("expected dashboard credit 2625, got %s", report.Totals.TotalCredit)
	}
}

func TestExportCSVDownload(t *testing.T) {
	api := newTestAPI(t)
	token := issueToken(t, api, "manajer", "manager")

	rec := doRequest(t, api, http.MethodGet, "/api/v1/passbook/export?format=csv&method=card", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(got, "attachment;") || !strings.Contains(got, ".csv") {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 card rows, got %d lines", len(lines))
	}

	if rec := doRequest(t, api, http.MethodGet, "/api/v1/passbook/export?format=docx", token, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", rec.Code)
	}
}

func TestBankTransactionLifecycle(t *testing.T) {
	api := newTestAPI(t)
	cashier := issueToken(t, api, "kasir1", "cashier")
	manager := issueToken(t, api, "manajer", "manager")

	rec := doRequest(t, api, http.MethodPost, "/api/v1/bank-transactions", cashier, map[string]any{
		"date":          "2024-02-28",
		"description":   "Deposit from till",
		"type":          "Credit",
		"amount":        "125.00",
		"paymentMethod": "Bank-Transfer",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	created := decodeBody[domain.LedgerEntry](t, rec)

	if rec := doRequest(t, api, http.MethodPatch, "/api/v1/bank-transactions/"+created.ID, cashier, map[string]any{
		"date": "2024-02-28", "description": "x", "type": "Credit", "amount": 1,
	}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected cashier update to be forbidden, got %d", rec.Code)
	}

	rec = doRequest(t, api, http.MethodPatch, "/api/v1/bank-transactions/"+created.ID, manager, map[string]any{
		"date": "2024-02-28", "description": "Deposit from till (recount)", "type": "Credit", "amount": 130,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	if rec := doRequest(t, api, http.MethodPatch, "/api/v1/bank-transactions/repair-rp-1-0", manager, map[string]any{
		"date": "2024-02-28", "description": "x", "type": "Credit", "amount": 1,
	}); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for derived entry, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bank-transactions/"+created.ID, nil)
	req.Header.Set("Authorization", "Bearer "+manager)
	req.Header.Set("X-Manager-PIN", "123456")
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d (body: %s)", res.Code, res.Body.String())
	}

	want := []string{events.BankTransactionCreated, events.BankTransactionUpdated, events.BankTransactionDeleted}
	if got := api.events.Types(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected events %v, got %v", want, got)
	}
}

func TestBankTransactionValidationAndUnknownFields(t *testing.T) {
	api := newTestAPI(t)
	token := issueToken(t, api, "kasir1", "cashier")

	if rec := doRequest(t, api, http.MethodPost, "/api/v1/bank-transactions", token, map[string]any{
		"date": "2024-02-28", "description": "Deposit", "type": "Credit", "amount": -5,
	}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative amount, got %d", rec.Code)
	}
	if rec := doRequest(t, api, http.MethodPost, "/api/v1/bank-transactions", token, map[string]any{
		"date": "2024-02-28", "description": "Deposit", "type": "Credit", "amount": 5, "source": "repair",
	}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestProductsSearchAndCategories(t *testing.T) {
	api := newTestAPI(t)
	token := issueToken(t, api, "kasir1", "cashier")

	rec := doRequest(t, api, http.MethodGet, "/api/v1/products?q=galxy&limit=5", token, nil)
	body := decodeBody[struct {
		Products []domain.Product `json:"products"`
	}](t, rec)
	if len(body.Products) != 1 || body.Products[0].Name != "Galaxy S23" {
		t.Fatalf("expected fuzzy match on Galaxy S23, got %+v", body.Products)
	}

	rec = doRequest(t, api, http.MethodGet, "/api/v1/products?stock=out", token, nil)
	body = decodeBody[struct {
		Products []domain.Product `json:"products"`
	}](t, rec)
	if len(body.Products) != 1 || body.Products[0].Name != "USB-C Cable" {
		t.Fatalf("expected only USB-C Cable out of stock, got %+v", body.Products)
	}

	if rec := doRequest(t, api, http.MethodGet, "/api/v1/products?stock=plenty", token, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown stock level, got %d", rec.Code)
	}

	rec = doRequest(t, api, http.MethodGet, "/api/v1/products/categories", token, nil)
	categories := decodeBody[map[string][]string](t, rec)["categories"]
	if strings.Join(categories, ",") != "Accessories,Phones,Services" {
		t.Fatalf("unexpected categories %v", categories)
	}
}

func TestPaymentValidation(t *testing.T) {
	api := newTestAPI(t)
	token := issueToken(t, api, "kasir1", "cashier")

	rec := doRequest(t, api, http.MethodPost, "/api/v1/payments/validate", token, map[string]any{
		"total":  100,
		"splits": []map[string]any{{"method": "card", "amount": 40}, {"method": "cash", "amount": 70}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	outcome := decodeBody[domain.PaymentOutcome](t, rec)
	if outcome.Change.String() != "10" {
		t.Fatalf("expected change 10, got %s", outcome.Change)
	}

	rec = doRequest(t, api, http.MethodPost, "/api/v1/payments/validate", token, map[string]any{
		"total":  100,
		"splits": []map[string]any{{"method": "card", "amount": 60}},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for short payment, got %d", rec.Code)
	}
	body := decodeBody[struct {
		Outcome domain.PaymentOutcome `json:"outcome"`
	}](t, rec)
	if body.Outcome.Remaining.String() != "40" {
		t.Fatalf("expected remaining 40, got %s", body.Outcome.Remaining)
	}
}

func TestSavedFiltersAndSortToggle(t *testing.T) {
	api := newTestAPI(t)
	token := issueToken(t, api, "kasir1", "cashier")

	rec := doRequest(t, api, http.MethodPost, "/api/v1/filters", token, map[string]any{
		"name":     "Manual entries",
		"criteria": map[string]any{"sources": []string{"manual"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	saved := decodeBody[domain.SavedFilter](t, rec)

	if rec := doRequest(t, api, http.MethodPost, "/api/v1/filters", token, map[string]any{"name": "manual ENTRIES"}); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate name, got %d", rec.Code)
	}

	rec = doRequest(t, api, http.MethodGet, "/api/v1/passbook?filter_id="+saved.ID, token, nil)
	page := decodeBody[domain.PassbookPage](t, rec)
	if len(page.Rows) != 2 {
		t.Fatalf("expected the two manual entries, got %d rows", len(page.Rows))
	}

	rec = doRequest(t, api, http.MethodPost, "/api/v1/passbook/sort", token, map[string]string{"key": "amount"})
	if spec := decodeBody[domain.SortSpec](t, rec); spec.Key != "amount" || spec.Desc {
		t.Fatalf("unexpected sort after first toggle: %+v", spec)
	}
	rec = doRequest(t, api, http.MethodPost, "/api/v1/passbook/sort", token, map[string]string{"key": "amount"})
	if spec := decodeBody[domain.SortSpec](t, rec); !spec.Desc {
		t.Fatalf("expected second toggle to flip direction, got %+v", spec)
	}

	other := issueToken(t, api, "kasir2", "cashier")
	if rec := doRequest(t, api, http.MethodDelete, "/api/v1/filters/"+saved.ID, other, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting another user's filter, got %d", rec.Code)
	}
	if rec := doRequest(t, api, http.MethodDelete, "/api/v1/filters/"+saved.ID, token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
