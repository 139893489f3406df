// Package aggregator fans out to every upstream source, normalizes what each
// returns and concatenates the entries in a fixed source order.
package aggregator

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"passbook/backend/internal/domain"
	"passbook/backend/internal/normalize"
	"passbook/backend/internal/record"
	"passbook/backend/internal/upstream"
)

// FetchFunc loads the raw records of one source.
type FetchFunc func(ctx context.Context, token string) ([]record.Record, error)

type Source struct {
	Normalizer normalize.Normalizer
	Fetch      FetchFunc
}

// Result is the outcome of one source: either entries or the reason the
// source contributed nothing.
type Result struct {
	Source  domain.Source
	Entries []domain.LedgerEntry
	Err     error
}

func (r Result) Ok() bool {
	return r.Err == nil
}

func (r Result) Status() domain.SourceStatus {
	status := domain.SourceStatus{Source: r.Source.Name(), OK: r.Ok(), Entries: len(r.Entries)}
	if r.Err != nil {
		status.Error = r.Err.Error()
	}
	return status
}

// Lister is the part of the upstream client the aggregator needs.
type Lister interface {
	ListSource(ctx context.Context, token string, source domain.Source) ([]record.Record, error)
}

// Sources builds the source list for a view in aggregation order. The
// dashboard view leaves out manual bank entries.
func Sources(client Lister, view normalize.View) []Source {
	normalizers := normalize.Derived()
	if view == normalize.ViewPassbook {
		normalizers = append([]normalize.Normalizer{normalize.Bank{}}, normalizers...)
	}
	sources := make([]Source, 0, len(normalizers))
	for _, n := range normalizers {
		source := n.Source()
		sources = append(sources, Source{
			Normalizer: n,
			Fetch: func(ctx context.Context, token string) ([]record.Record, error) {
				return client.ListSource(ctx, token, source)
			},
		})
	}
	return sources
}

type Aggregator struct {
	logger   logrus.FieldLogger
	location *time.Location
}

func New(logger logrus.FieldLogger, location *time.Location) *Aggregator {
	if location == nil {
		location = time.UTC
	}
	return &Aggregator{logger: logger, location: location}
}

// Snapshot is the concatenated ledger of one aggregation round.
type Snapshot struct {
	Entries []domain.LedgerEntry
	Results []Result
}

// Complete reports whether every source answered.
func (s Snapshot) Complete() bool {
	for _, r := range s.Results {
		if !r.Ok() {
			return false
		}
	}
	return true
}

func (s Snapshot) Statuses() []domain.SourceStatus {
	out := make([]domain.SourceStatus, 0, len(s.Results))
	for _, r := range s.Results {
		out = append(out, r.Status())
	}
	return out
}

// Degraded lists the names of the sources that failed.
func (s Snapshot) Degraded() []string {
	var out []string
	for _, r := range s.Results {
		if !r.Ok() {
			out = append(out, r.Source.Name())
		}
	}
	return out
}

// Aggregate fetches every source concurrently and waits for all of them.
// A failing source is logged and contributes no entries. The only error
// returned is upstream.ErrUnauthorized, since an expired session affects
// the whole view.
func (a *Aggregator) Aggregate(ctx context.Context, token string, sources []Source, view normalize.View) (Snapshot, error) {
	opts := normalize.OptionsFor(view, a.location)
	results := make([]Result, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			results[i] = a.collect(ctx, token, src, opts)
			return nil
		})
	}
	_ = g.Wait()

	var snapshot Snapshot
	snapshot.Results = results
	for _, r := range results {
		if errors.Is(r.Err, upstream.ErrUnauthorized) || errors.Is(r.Err, upstream.ErrMissingToken) {
			return snapshot, upstream.ErrUnauthorized
		}
		snapshot.Entries = append(snapshot.Entries, r.Entries...)
	}
	if snapshot.Entries == nil {
		snapshot.Entries = []domain.LedgerEntry{}
	}
	return snapshot, nil
}

func (a *Aggregator) collect(ctx context.Context, token string, src Source, opts normalize.Options) Result {
	source := src.Normalizer.Source()
	records, err := src.Fetch(ctx, token)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"source": source.Name(),
			"error":  err.Error(),
		}).Warn("source fetch failed, continuing without it")
		return Result{Source: source, Err: err}
	}
	return Result{Source: source, Entries: normalize.All(src.Normalizer, records, opts)}
}
