package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"passbook/backend/internal/domain"
	"passbook/backend/internal/export"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handlePassbook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	page, ok := a.passbookPage(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) handlePassbookSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	page, ok := a.passbookPage(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totals":   page.Totals,
		"sources":  page.Sources,
		"degraded": page.Degraded,
	})
}

func (a *API) handlePassbookMonthly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	page, ok := a.passbookPage(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"monthly":  page.Monthly,
		"degraded": page.Degraded,
	})
}

func (a *API) passbookPage(w http.ResponseWriter, r *http.Request) (domain.PassbookPage, bool) {
	q, err := parseLedgerQuery(r.URL.Query())
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return domain.PassbookPage{}, false
	}
	page, err := a.service.Passbook(r.Context(), sessionToken(r.Context()), q)
	if err != nil {
		a.writeServiceError(w, err)
		return domain.PassbookPage{}, false
	}
	return page, true
}

func (a *API) handlePassbookSort(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	var req struct {
		Key string `json:"key"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	spec, err := a.service.ToggleSort(r.Context(), strings.TrimSpace(req.Key))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spec)
}

func (a *API) handlePassbookExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	q, err := parseLedgerQuery(r.URL.Query())
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	file, err := a.service.Export(r.Context(), sessionToken(r.Context()), q, format)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	disposition := "attachment"
	if format == export.FormatHTML {
		disposition = "inline"
	}
	w.Header().Set("Content-Disposition", disposition+`; filename="`+file.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	if len(file.Degraded) > 0 {
		w.Header().Set("X-Degraded-Sources", strings.Join(file.Degraded, ","))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Body)
}

func (a *API) handleBankTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	var req domain.BankTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	entry, err := a.service.CreateBankTransaction(r.Context(), sessionToken(r.Context()), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) handleBankTransactionActions(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/bank-transactions/"), "/")
	if id == "" || strings.Contains(id, "/") {
		a.writeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	token := sessionToken(r.Context())

	switch r.Method {
	case http.MethodPatch, http.MethodPut:
		var req domain.BankTransactionRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		entry, err := a.service.UpdateBankTransaction(r.Context(), token, id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	case http.MethodDelete:
		if !a.pinLimiter.Allow("pin:bank-delete:" + clientKey(r)) {
			a.writeError(w, http.StatusTooManyRequests, errors.New("too many manager pin attempts"))
			return
		}
		if !a.auth.ValidateManagerPIN(r.Header.Get("X-Manager-PIN")) {
			a.writeError(w, http.StatusForbidden, errors.New("invalid manager pin"))
			return
		}
		if err := a.service.DeleteBankTransaction(r.Context(), token, id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	q, err := parseLedgerQuery(r.URL.Query())
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	report, err := a.service.Dashboard(r.Context(), sessionToken(r.Context()), q)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	products, err := a.service.SearchProducts(r.Context(), sessionToken(r.Context()), parseProductCriteria(r.URL.Query()))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 200)
	if len(products) > limit {
		products = products[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleProductCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	categories, err := a.service.ProductCategories(r.Context(), sessionToken(r.Context()))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (a *API) handlePaymentValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	var req domain.PaymentValidationRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	outcome, err := a.service.ValidatePayment(req)
	if err != nil {
		if isPaymentError(err) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":   err.Error(),
				"outcome": outcome,
			})
			return
		}
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (a *API) handleFilters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filters, err := a.service.ListFilters(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"filters": filters})
	case http.MethodPost:
		var req domain.SaveFilterRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		saved, err := a.service.SaveFilter(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleFilterActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		a.writeMethodNotAllowed(w)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/filters/"), "/")
	if id == "" {
		a.writeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	if err := a.service.DeleteFilter(r.Context(), id); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
