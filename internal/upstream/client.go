// Package upstream talks to the remote POS REST API that owns all records.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"passbook/backend/internal/domain"
	"passbook/backend/internal/record"
)

var (
	// ErrUnauthorized means the API rejected the bearer token. Callers must
	// ask the user to sign in again instead of retrying.
	ErrUnauthorized = errors.New("upstream: session expired or unauthorized")
	ErrMissingToken = errors.New("upstream: missing bearer token")
)

// StatusError is a non-2xx answer other than 401.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream: status %d", e.Code)
	}
	return fmt.Sprintf("upstream: status %d: %s", e.Code, e.Body)
}

// Paths maps each source to its collection endpoint.
type Paths struct {
	BankTransactions string
	Repairs          string
	Payments         string
	ExtraIncome      string
	Salaries         string
	Maintenance      string
	Suppliers        string
	Products         string
}

func DefaultPaths() Paths {
	return Paths{
		BankTransactions: "/bank-transactions",
		Repairs:          "/repairs",
		Payments:         "/payments",
		ExtraIncome:      "/extra-income",
		Salaries:         "/salaries",
		Maintenance:      "/maintenance",
		Suppliers:        "/suppliers",
		Products:         "/products",
	}
}

func (p Paths) For(source domain.Source) string {
	switch source {
	case domain.SourceBank:
		return p.BankTransactions
	case domain.SourceRepair:
		return p.Repairs
	case domain.SourcePayment:
		return p.Payments
	case domain.SourceExtra:
		return p.ExtraIncome
	case domain.SourceSalary:
		return p.Salaries
	case domain.SourceMaintenance:
		return p.Maintenance
	case domain.SourceSupplier:
		return p.Suppliers
	}
	return ""
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	paths      Paths
}

func NewClient(baseURL string, timeout time.Duration, paths Paths) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		paths:      paths,
	}
}

func (c *Client) Paths() Paths {
	return c.paths
}

// List fetches one collection. The payload may be a bare array or an
// envelope such as {"records": [...]}.
func (c *Client) List(ctx context.Context, token string, path string) ([]record.Record, error) {
	body, err := c.do(ctx, token, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	recs, err := record.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("List %s: %w", path, err)
	}
	return recs, nil
}

func (c *Client) ListSource(ctx context.Context, token string, source domain.Source) ([]record.Record, error) {
	return c.List(ctx, token, c.paths.For(source))
}

func (c *Client) ListProducts(ctx context.Context, token string) ([]record.Record, error) {
	return c.List(ctx, token, c.paths.Products)
}

func (c *Client) CreateBankTransaction(ctx context.Context, token string, req domain.BankTransactionRequest) (record.Record, error) {
	body, err := c.do(ctx, token, http.MethodPost, c.paths.BankTransactions, bankPayload(req))
	if err != nil {
		return nil, err
	}
	return decodeOne(body)
}

func (c *Client) UpdateBankTransaction(ctx context.Context, token string, id string, req domain.BankTransactionRequest) (record.Record, error) {
	body, err := c.do(ctx, token, http.MethodPut, c.paths.BankTransactions+"/"+url.PathEscape(id), bankPayload(req))
	if err != nil {
		return nil, err
	}
	return decodeOne(body)
}

func (c *Client) DeleteBankTransaction(ctx context.Context, token string, id string) error {
	_, err := c.do(ctx, token, http.MethodDelete, c.paths.BankTransactions+"/"+url.PathEscape(id), nil)
	return err
}

func bankPayload(req domain.BankTransactionRequest) map[string]any {
	payload := map[string]any{
		"date":        req.Date,
		"description": req.Description,
		"type":        string(req.Type),
		"amount":      json.Number(req.Amount.String()),
	}
	if req.Time != "" {
		payload["time"] = req.Time
	}
	if req.PaymentMethod != "" {
		payload["paymentMethod"] = string(req.PaymentMethod)
	}
	return payload
}

func (c *Client) do(ctx context.Context, token string, method string, path string, payload any) ([]byte, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode: %w", method, path, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: send: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	return body, nil
}

// decodeOne reads a single object, unwrapping {"record": {...}} or
// {"data": {...}} envelopes.
func decodeOne(body []byte) (record.Record, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return record.Record{}, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var rec record.Record
	if err := decoder.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	for _, key := range []string{"record", "data"} {
		if inner := rec.Object(key); inner != nil {
			return inner, nil
		}
	}
	return rec, nil
}
