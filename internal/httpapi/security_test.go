package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/bank-transactions/bt-1", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", res.Code)
	}
	if got := res.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "X-Manager-PIN") {
		t.Fatalf("expected X-Manager-PIN to be allowed, got %q", got)
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	api := newTestAPI(t)
	token := issueToken(t, api, "kasir1", "cashier")
	veryLong := strings.Repeat("a", (1<<20)+1024)
	body := fmt.Sprintf(`{"date":"2024-01-01","description":"%s","type":"Credit","amount":1}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bank-transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too large body, got %d", res.Code)
	}
}

func TestManagerPINRateLimitReturns429(t *testing.T) {
	api := newTestAPI(t)
	token := issueToken(t, api, "manajer", "manager")

	for i := 0; i < 9; i++ {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/bank-transactions/bt-1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-Manager-PIN", "000000")
		req.RemoteAddr = "127.0.0.1:5001"
		res := httptest.NewRecorder()

		api.Handler().ServeHTTP(res, req)

		if i < 8 && res.Code != http.StatusForbidden {
			t.Fatalf("attempt %d expected 403 before pin limit, got %d", i+1, res.Code)
		}
		if i == 8 && res.Code != http.StatusTooManyRequests {
			t.Fatalf("attempt 9 expected 429, got %d", res.Code)
		}
	}
	if len(api.upstream.Collection(api.paths.BankTransactions)) != 2 {
		t.Fatalf("expected no entry to be deleted without a valid pin")
	}
}

func TestUpstreamOutageReturnsGenericBadGateway(t *testing.T) {
	api := newTestAPI(t)
	token := issueToken(t, api, "kasir1", "cashier")
	api.upstream.Fail(api.paths.Products, http.StatusInternalServerError)

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.Code)
	}
	if strings.Contains(res.Body.String(), "status 500") {
		t.Fatalf("upstream details must not leak: %s", res.Body.String())
	}
}

func TestParsePositiveLimitCaps(t *testing.T) {
	if got := parsePositiveLimit("9999", 50, 200); got != 200 {
		t.Fatalf("expected capped limit 200, got %d", got)
	}
	if got := parsePositiveLimit("", 50, 200); got != 50 {
		t.Fatalf("expected fallback limit 50, got %d", got)
	}
	if got := parsePositiveLimit("invalid", 50, 200); got != 50 {
		t.Fatalf("expected fallback on invalid input, got %d", got)
	}
}

func TestAttemptLimiterWindowSlides(t *testing.T) {
	limiter := newAttemptLimiter(2, time.Minute)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("pin:a") || !limiter.Allow("pin:a") {
		t.Fatalf("expected first two attempts to pass")
	}
	if limiter.Allow("pin:a") {
		t.Fatalf("expected third attempt inside the window to be refused")
	}
	if !limiter.Allow("pin:b") {
		t.Fatalf("expected keys to be limited independently")
	}

	now = now.Add(61 * time.Second)
	if !limiter.Allow("pin:a") {
		t.Fatalf("expected attempts to be allowed once the window has passed")
	}
}

func TestClientKeyDropsPort(t *testing.T) {
	for remote, want := range map[string]string{
		"10.0.0.7:51234": "10.0.0.7",
		"[::1]:8080":     "::1",
		"kiosk-terminal": "kiosk-terminal",
		"":               "unknown",
	} {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = remote
		if got := clientKey(req); got != want {
			t.Fatalf("clientKey(%q) = %q, want %q", remote, got, want)
		}
	}
}
