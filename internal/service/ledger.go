package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"passbook/backend/internal/aggregator"
	"passbook/backend/internal/domain"
	"passbook/backend/internal/events"
	"passbook/backend/internal/export"
	"passbook/backend/internal/filter"
	"passbook/backend/internal/logging"
	"passbook/backend/internal/normalize"
	"passbook/backend/internal/sorting"
	"passbook/backend/internal/store"
	"passbook/backend/internal/summary"
)

const sortPreferenceKey = "passbook.sort"

// Passbook returns the filtered, sorted ledger with running balances, totals
// and monthly buckets. Sources that failed are listed in Degraded; the rest
// of the ledger is still returned.
func (s *Service) Passbook(ctx context.Context, token string, q domain.LedgerQuery) (domain.PassbookPage, error) {
	view, err := s.ledger(ctx, token, q)
	if err != nil {
		return domain.PassbookPage{}, err
	}
	return domain.PassbookPage{
		Rows:     summary.Running(view.entries),
		Totals:   summary.Totals(view.entries),
		Monthly:  summary.Monthly(view.entries),
		Sort:     view.sort,
		Sources:  view.snapshot.Statuses(),
		Degraded: view.snapshot.Degraded(),
		Cached:   view.cached,
	}, nil
}

// Dashboard summarizes revenue and expenses from the derived sources only.
// Only the date range of the query applies.
func (s *Service) Dashboard(ctx context.Context, token string, q domain.LedgerQuery) (domain.DashboardReport, error) {
	criteria, _, err := s.resolve(ctx, q)
	if err != nil {
		return domain.DashboardReport{}, err
	}
	snap, cached, err := s.snapshot(ctx, token, normalize.ViewDashboard)
	if err != nil {
		return domain.DashboardReport{}, err
	}
	entries, err := filter.Ledger(snap.Entries, domain.Criteria{StartDate: criteria.StartDate, EndDate: criteria.EndDate})
	if err != nil {
		return domain.DashboardReport{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	sorting.Default(entries)

	return domain.DashboardReport{
		Totals:   summary.Totals(entries),
		Monthly:  summary.Monthly(entries),
		Daily:    summary.Daily(entries),
		ByMethod: summary.ByMethod(entries),
		Sources:  snap.Statuses(),
		Degraded: snap.Degraded(),
		Cached:   cached,
	}, nil
}

type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
	Degraded    []string
}

// Export renders the same rows Passbook would return.
func (s *Service) Export(ctx context.Context, token string, q domain.LedgerQuery, format export.Format) (ExportFile, error) {
	view, err := s.ledger(ctx, token, q)
	if err != nil {
		return ExportFile{}, err
	}

	now := s.now().In(s.location)
	doc := export.Document{
		Title:       "Passbook",
		Period:      period(view.criteria),
		GeneratedAt: now,
		Rows:        export.Rows(view.entries),
		Totals:      summary.Totals(view.entries),
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, doc); err != nil {
		logging.Error(s.logger, "service", "Export", "render "+string(format), nil, err)
		return ExportFile{}, err
	}

	s.publish(ctx, events.LedgerExported, "passbook-"+now.Format("20060102150405"), map[string]any{
		"format": string(format),
		"rows":   len(view.entries),
		"period": doc.Period,
	})

	return ExportFile{
		Filename:    format.Filename("passbook-" + now.Format("20060102")),
		ContentType: format.ContentType(),
		Body:        buf.Bytes(),
		Degraded:    view.snapshot.Degraded(),
	}, nil
}

// ToggleSort applies a header click to the stored sort of the caller and
// returns the new order.
func (s *Service) ToggleSort(ctx context.Context, key string) (domain.SortSpec, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return domain.SortSpec{}, err
	}
	if _, ok := sorting.LedgerKeys[key]; !ok {
		return domain.SortSpec{}, fmt.Errorf("%w: %w", ErrInvalidRequest, sorting.ErrUnknownSortKey)
	}
	current := s.sortPreference(ctx, owner)
	next := sorting.State{Key: current.Key, Desc: current.Desc}.Toggle(key)
	spec := domain.SortSpec{Key: next.Key, Desc: next.Desc}

	raw, err := json.Marshal(spec)
	if err != nil {
		return domain.SortSpec{}, err
	}
	if err := s.repo.PutPreference(ctx, owner, sortPreferenceKey, string(raw)); err != nil {
		return domain.SortSpec{}, err
	}
	return spec, nil
}

// ledgerView is the passbook after filtering and sorting.
type ledgerView struct {
	entries  []domain.LedgerEntry
	criteria domain.Criteria
	sort     domain.SortSpec
	snapshot aggregator.Snapshot
	cached   bool
}

func (s *Service) ledger(ctx context.Context, token string, q domain.LedgerQuery) (ledgerView, error) {
	criteria, spec, err := s.resolve(ctx, q)
	if err != nil {
		return ledgerView{}, err
	}
	snap, cached, err := s.snapshot(ctx, token, normalize.ViewPassbook)
	if err != nil {
		return ledgerView{}, err
	}
	entries, err := filter.Ledger(snap.Entries, criteria)
	if err != nil {
		return ledgerView{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := sorting.Ledger(entries, spec); err != nil {
		return ledgerView{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return ledgerView{entries: entries, criteria: criteria, sort: spec, snapshot: snap, cached: cached}, nil
}

// resolve turns a query into concrete criteria and sort. A saved filter
// replaces the inline criteria; an explicit sort always wins over the saved
// or preferred one.
func (s *Service) resolve(ctx context.Context, q domain.LedgerQuery) (domain.Criteria, domain.SortSpec, error) {
	criteria, spec := q.Criteria, q.Sort
	if q.FilterID != "" {
		owner, err := s.owner(ctx)
		if err != nil {
			return domain.Criteria{}, domain.SortSpec{}, err
		}
		saved, err := s.repo.GetSavedFilter(ctx, owner, q.FilterID)
		if err != nil {
			return domain.Criteria{}, domain.SortSpec{}, err
		}
		criteria = saved.Criteria
		if spec.Key == "" {
			spec = saved.Sort
		}
	}
	if spec.Key == "" {
		if owner, err := s.owner(ctx); err == nil {
			spec = s.sortPreference(ctx, owner)
		}
	}
	return criteria, spec, nil
}

func (s *Service) sortPreference(ctx context.Context, owner string) domain.SortSpec {
	raw, err := s.repo.GetPreference(ctx, owner, sortPreferenceKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logging.Error(s.logger, "service", "sortPreference", "load sort preference", nil, err)
		}
		return domain.SortSpec{}
	}
	var spec domain.SortSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return domain.SortSpec{}
	}
	return spec
}

func period(c domain.Criteria) string {
	switch {
	case c.StartDate != "" && c.EndDate != "":
		return c.StartDate + " to " + c.EndDate
	case c.StartDate != "":
		return "from " + c.StartDate
	case c.EndDate != "":
		return "until " + c.EndDate
	}
	return "All dates"
}
