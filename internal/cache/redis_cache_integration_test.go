package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"passbook/backend/internal/domain"
)

func TestRedisLedgerCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("PASSBOOK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set PASSBOOK_TEST_REDIS_ADDR to run the redis integration test")
	}

	ctx := context.Background()
	c := NewRedisLedgerCache(addr, "", 0)
	defer c.Close()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping redis: %v", err)
	}

	key := Key("integration-"+time.Now().Format(time.RFC3339Nano), "passbook")
	entries := []domain.LedgerEntry{{ID: "bt-1", Type: domain.Credit, Amount: decimal.RequireFromString("1000.50")}}
	if err := c.Set(ctx, key, entries, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || !got[0].Amount.Equal(entries[0].Amount) {
		t.Fatalf("unexpected cached entries %+v", got)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatalf("expected miss after delete")
	}
}
