package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"passbook/backend/internal/export"
	"passbook/backend/internal/logging"
	"passbook/backend/internal/payment"
	"passbook/backend/internal/service"
	"passbook/backend/internal/store"
	"passbook/backend/internal/upstream"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	pinLimiter    *attemptLimiter
	logger        logrus.FieldLogger
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, logger logrus.FieldLogger) *API {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		pinLimiter:    newAttemptLimiter(8, time.Minute),
		logger:        logger,
	}
}

// attemptLimiter counts attempts per key inside a sliding window.
type attemptLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	attempts map[string][]time.Time
}

func newAttemptLimiter(limit int, window time.Duration) *attemptLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{
		max:      max(limit, 1),
		window:   window,
		now:      time.Now,
		attempts: make(map[string][]time.Time),
	}
}

// Allow records an attempt for key unless the window is already full.
func (l *attemptLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.recent(key, now)
	if len(recent) >= l.max {
		return false
	}
	l.attempts[key] = append(recent, now)
	return true
}

func (l *attemptLimiter) recent(key string, now time.Time) []time.Time {
	history := l.attempts[key]
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(history) && !history[i].After(cutoff) {
		i++
	}
	if i == len(history) {
		delete(l.attempts, key)
		return nil
	}
	return history[i:]
}

// clientKey identifies the terminal by remote IP; ports change per connection.
func clientKey(r *http.Request) string {
	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return remote
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)

	mux.HandleFunc("/api/v1/passbook", a.requireAuth(a.handlePassbook, "cashier", "manager", "admin"))
	mux.HandleFunc("/api/v1/passbook/summary", a.requireAuth(a.handlePassbookSummary, "cashier", "manager", "admin"))
	mux.HandleFunc("/api/v1/passbook/monthly", a.requireAuth(a.handlePassbookMonthly, "cashier", "manager", "admin"))
	mux.HandleFunc("/api/v1/passbook/sort", a.requireAuth(a.handlePassbookSort, "cashier", "manager", "admin"))
	mux.HandleFunc("/api/v1/passbook/export", a.requireAuth(a.handlePassbookExport, "manager", "admin"))
	mux.HandleFunc("/api/v1/bank-transactions", a.requireAuth(a.handleBankTransactions, "cashier", "manager", "admin"))
	mux.HandleFunc("/api/v1/bank-transactions/", a.requireAuth(a.handleBankTransactionActions, "manager", "admin"))
	mux.HandleFunc("/api/v1/dashboard", a.requireAuth(a.handleDashboard, "manager", "admin"))

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, "cashier", "manager", "admin"))
	mux.HandleFunc("/api/v1/products/categories", a.requireAuth(a.handleProductCategories, "cashier", "manager", "admin"))
	mux.HandleFunc("/api/v1/payments/validate", a.requireAuth(a.handlePaymentValidate, "cashier", "manager", "admin"))

	mux.HandleFunc("/api/v1/filters", a.requireAuth(a.handleFilters, "cashier", "manager", "admin"))
	mux.HandleFunc("/api/v1/filters/", a.requireAuth(a.handleFilterActions, "cashier", "manager", "admin"))

	return a.withMiddleware(mux)
}

type tokenContextKey struct{}

func sessionToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}

// requireAuth verifies the bearer token and keeps it on the context so the
// service can forward it to the POS API unchanged.
func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			a.writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			a.writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		ctx := service.WithActor(r.Context(), actor)
		ctx = context.WithValue(ctx, tokenContextKey{}, token)
		next(w, r.WithContext(ctx))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Manager-PIN")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Degraded-Sources")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(startedAt).String(),
		}).Info("request")
	})
}

// writeServiceError maps service and upstream errors onto HTTP statuses.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	var (
		statusErr *upstream.StatusError
		urlErr    *url.Error
	)
	switch {
	case errors.Is(err, upstream.ErrUnauthorized), errors.Is(err, upstream.ErrMissingToken):
		a.writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, service.ErrForbidden):
		a.writeError(w, http.StatusForbidden, err)
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, store.ErrInvalidFilter),
		errors.Is(err, export.ErrUnknownFormat):
		a.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrNotFound):
		a.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, service.ErrReadOnlyEntry), errors.Is(err, store.ErrDuplicateName):
		a.writeError(w, http.StatusConflict, err)
	case isPaymentError(err):
		a.writeError(w, http.StatusUnprocessableEntity, err)
	case errors.As(err, &statusErr), errors.As(err, &urlErr):
		a.writeError(w, http.StatusBadGateway, err)
	default:
		a.writeError(w, http.StatusInternalServerError, err)
	}
}

func isPaymentError(err error) bool {
	for _, target := range []error{
		payment.ErrNoSplits,
		payment.ErrUnknownMethod,
		payment.ErrDuplicateMethod,
		payment.ErrInvalidAmount,
		payment.ErrInvalidTotal,
		payment.ErrInsufficientPayment,
		payment.ErrNonCashOverpayment,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func (a *API) writeMethodNotAllowed(w http.ResponseWriter) {
	a.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	// 5xx details stay in the log; 4xx messages are meant for the user.
	msg := err.Error()
	switch {
	case status == http.StatusBadGateway:
		logging.Error(a.logger, "httpapi", "writeError", "upstream failure", nil, err)
		msg = "upstream service unavailable"
	case status >= 500:
		logging.Error(a.logger, "httpapi", "writeError", "internal error", map[string]any{"status": status}, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
