package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"passbook/backend/internal/aggregator"
	"passbook/backend/internal/cache"
	"passbook/backend/internal/catalog"
	"passbook/backend/internal/domain"
	"passbook/backend/internal/events"
	"passbook/backend/internal/logging"
	"passbook/backend/internal/normalize"
	"passbook/backend/internal/payment"
	"passbook/backend/internal/record"
	"passbook/backend/internal/store"
	"passbook/backend/internal/upstream"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrReadOnlyEntry  = errors.New("entry is derived from another module and cannot be changed here")
	ErrForbidden      = errors.New("insufficient role")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Upstream is the POS API the passbook reads from and writes manual bank
// entries to.
type Upstream interface {
	aggregator.Lister
	ListProducts(ctx context.Context, token string) ([]record.Record, error)
	CreateBankTransaction(ctx context.Context, token string, req domain.BankTransactionRequest) (record.Record, error)
	UpdateBankTransaction(ctx context.Context, token string, id string, req domain.BankTransactionRequest) (record.Record, error)
	DeleteBankTransaction(ctx context.Context, token string, id string) error
}

type Deps struct {
	Upstream  Upstream
	Repo      store.Repository
	Cache     cache.LedgerCache
	CacheTTL  time.Duration
	Events    events.Publisher
	Catalog   *catalog.Searcher
	Payments  *payment.Validator
	Logger    logrus.FieldLogger
	Location  *time.Location
	Clock     func() time.Time
	Validator *validator.Validate
}

type Service struct {
	upstream   Upstream
	repo       store.Repository
	cache      cache.LedgerCache
	cacheTTL   time.Duration
	events     events.Publisher
	catalog    *catalog.Searcher
	payments   *payment.Validator
	logger     logrus.FieldLogger
	location   *time.Location
	now        func() time.Time
	validate   *validator.Validate
	aggregator *aggregator.Aggregator
}

func New(deps Deps) *Service {
	s := &Service{
		upstream: deps.Upstream,
		repo:     deps.Repo,
		cache:    deps.Cache,
		cacheTTL: deps.CacheTTL,
		events:   deps.Events,
		catalog:  deps.Catalog,
		payments: deps.Payments,
		logger:   deps.Logger,
		location: deps.Location,
		now:      deps.Clock,
		validate: deps.Validator,
	}
	if s.cache == nil {
		s.cache = cache.NoopLedgerCache{}
	}
	if s.events == nil {
		s.events = events.NoopPublisher{}
	}
	if s.catalog == nil {
		s.catalog = catalog.NewSearcher(2)
	}
	if s.payments == nil {
		s.payments = payment.NewValidator(payment.DefaultTolerance)
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.validate == nil {
		s.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	s.aggregator = aggregator.New(s.logger, s.location)
	return s
}

// snapshot loads the ledger of a view, from cache when a complete snapshot
// for this session is still fresh.
func (s *Service) snapshot(ctx context.Context, token string, view normalize.View) (aggregator.Snapshot, bool, error) {
	if token == "" {
		return aggregator.Snapshot{}, false, upstream.ErrUnauthorized
	}
	key := cache.Key(token, string(view))
	if entries, ok, err := s.cache.Get(ctx, key); err != nil {
		logging.Error(s.logger, "service", "snapshot", "read ledger cache", map[string]any{"view": view}, err)
	} else if ok {
		return aggregator.Snapshot{Entries: entries}, true, nil
	}

	snap, err := s.aggregator.Aggregate(ctx, token, aggregator.Sources(s.upstream, view), view)
	if err != nil {
		return aggregator.Snapshot{}, false, err
	}
	// Partial snapshots are never cached so a recovered source shows up on
	// the next request.
	if snap.Complete() && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, key, snap.Entries, s.cacheTTL); err != nil {
			logging.Error(s.logger, "service", "snapshot", "write ledger cache", map[string]any{"view": view}, err)
		}
	}
	return snap, false, nil
}

func (s *Service) invalidate(ctx context.Context, token string) {
	err := s.cache.Delete(ctx,
		cache.Key(token, string(normalize.ViewPassbook)),
		cache.Key(token, string(normalize.ViewDashboard)),
	)
	if err != nil {
		logging.Error(s.logger, "service", "invalidate", "delete ledger cache", nil, err)
	}
}

// publish never fails the caller; the ledger change already happened
// upstream.
func (s *Service) publish(ctx context.Context, eventType, key string, data map[string]any) {
	event := events.Event{
		Type:       eventType,
		Key:        key,
		OccurredAt: s.now().UTC(),
		Data:       data,
	}
	if actor, ok := ActorFromContext(ctx); ok {
		event.Actor = actor.Username
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logging.Error(s.logger, "service", "publish", "publish "+eventType, map[string]any{"key": key}, err)
	}
}

func (s *Service) owner(ctx context.Context) (string, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return "", upstream.ErrUnauthorized
	}
	return actor.Username, nil
}

func (s *Service) validateStruct(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("%w: %s failed %s", ErrInvalidRequest, first.Field(), first.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func requireRole(ctx context.Context, roles ...string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return upstream.ErrUnauthorized
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return ErrForbidden
}
