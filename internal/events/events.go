// Package events publishes ledger change notifications to a broker so that
// other terminals can refresh their passbook views.
package events

import (
	"context"
	"encoding/json"
	"time"
)

const (
	BankTransactionCreated = "bank_transaction.created"
	BankTransactionUpdated = "bank_transaction.updated"
	BankTransactionDeleted = "bank_transaction.deleted"
	LedgerExported         = "ledger.exported"
)

type Event struct {
	Type       string         `json:"type"`
	Key        string         `json:"key"`
	Actor      string         `json:"actor,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
