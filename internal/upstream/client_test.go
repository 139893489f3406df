package upstream_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passbook/backend/internal/domain"
	"passbook/backend/internal/upstream"
	"passbook/backend/internal/upstream/fake"
)

func newUpstream(t *testing.T) (*upstream.Client, *fake.Server) {
	t.Helper()
	paths := upstream.DefaultPaths()
	srv := fake.New(paths.BankTransactions)
	srv.Load(fake.Demo(), paths.For, paths.Products)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return upstream.NewClient(ts.URL+"/", 2*time.Second, paths), srv
}

func TestListAcceptsArrayAndEnvelope(t *testing.T) {
	client, _ := newUpstream(t)
	ctx := context.Background()

	bank, err := client.ListSource(ctx, "token", domain.SourceBank)
	require.NoError(t, err)
	assert.Len(t, bank, 2)

	repairs, err := client.ListSource(ctx, "token", domain.SourceRepair)
	require.NoError(t, err)
	require.Len(t, repairs, 2)
	assert.Equal(t, "rp-1", repairs[0].ID())
}

func TestListMapsUnauthorized(t *testing.T) {
	client, srv := newUpstream(t)
	srv.Authorize(func(token string) bool { return token == "good" })

	_, err := client.ListSource(context.Background(), "bad", domain.SourcePayment)
	assert.ErrorIs(t, err, upstream.ErrUnauthorized)

	_, err = client.ListSource(context.Background(), "", domain.SourcePayment)
	assert.ErrorIs(t, err, upstream.ErrMissingToken)
}

func TestListReportsStatusErrors(t *testing.T) {
	client, srv := newUpstream(t)
	srv.Fail(upstream.DefaultPaths().Suppliers, http.StatusBadGateway)

	_, err := client.ListSource(context.Background(), "token", domain.SourceSupplier)
	var statusErr *upstream.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
}

func TestBankTransactionRoundTrip(t *testing.T) {
	client, srv := newUpstream(t)
	ctx := context.Background()
	paths := upstream.DefaultPaths()

	created, err := client.CreateBankTransaction(ctx, "token", domain.BankTransactionRequest{
		Date:        "2024-03-01",
		Description: "Cash deposit",
		Type:        domain.Credit,
		Amount:      decimal.RequireFromString("250.50"),
	})
	require.NoError(t, err)
	id := created.ID()
	require.NotEmpty(t, id)
	amount, ok := created.Decimal("amount")
	require.True(t, ok)
	assert.True(t, amount.Equal(decimal.RequireFromString("250.50")))

	updated, err := client.UpdateBankTransaction(ctx, "token", id, domain.BankTransactionRequest{
		Date:        "2024-03-02",
		Description: "Cash deposit (fixed)",
		Type:        domain.Credit,
		Amount:      decimal.NewFromInt(260),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02", updated.String("date"))
	assert.Len(t, srv.Collection(paths.BankTransactions), 3)

	require.NoError(t, client.DeleteBankTransaction(ctx, "token", id))
	assert.Len(t, srv.Collection(paths.BankTransactions), 2)

	err = client.DeleteBankTransaction(ctx, "token", id)
	var statusErr *upstream.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}
