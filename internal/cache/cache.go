package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"passbook/backend/internal/domain"
)

// LedgerCache keeps the normalized entries of a complete aggregation for a
// short time so that re-filtering and re-sorting does not refetch every
// source.
type LedgerCache interface {
	Get(ctx context.Context, key string) ([]domain.LedgerEntry, bool, error)
	Set(ctx context.Context, key string, entries []domain.LedgerEntry, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type NoopLedgerCache struct{}

func (NoopLedgerCache) Get(_ context.Context, _ string) ([]domain.LedgerEntry, bool, error) {
	return nil, false, nil
}

func (NoopLedgerCache) Set(_ context.Context, _ string, _ []domain.LedgerEntry, _ time.Duration) error {
	return nil
}

func (NoopLedgerCache) Delete(_ context.Context, _ ...string) error {
	return nil
}

// Key scopes a snapshot to one bearer token and view. The token is hashed
// so it never lands in the cache keyspace.
func Key(token string, view string) string {
	sum := sha256.Sum256([]byte(token))
	return "passbook:ledger:" + view + ":" + hex.EncodeToString(sum[:12])
}
