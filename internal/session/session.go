// Package session holds the per-user in-memory view of every active
// collection. All mutations go through a Session: the store write runs
// first, then the affected kinds are re-read so the view always matches the
// store.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/recovery"
	"retailhub/backend/internal/store"
)

const maxActivities = 100

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// OpError names the session operation that failed.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	Products   []domain.Product     `json:"products"`
	Sales      []domain.Sale        `json:"sales"`
	Customers  []domain.Customer    `json:"customers"`
	Suppliers  []domain.Supplier    `json:"suppliers"`
	Expenses   []domain.Expense     `json:"expenses"`
	Purchases  []domain.Purchase    `json:"purchases"`
	Settings   domain.StoreSettings `json:"settings"`
	Activities []domain.Activity    `json:"activities"`
	LoadedAt   time.Time            `json:"loaded_at"`
}

type Session struct {
	userID   string
	repo     store.Repository
	recovery *recovery.Manager
	now      func() time.Time

	// opMu serializes mutations; mu guards state.
	opMu  sync.Mutex
	mu    sync.RWMutex
	state Snapshot
}

func New(userID string, repo store.Repository, manager *recovery.Manager) *Session {
	return &Session{
		userID:   userID,
		repo:     repo,
		recovery: manager,
		now:      func() time.Time { return time.Now().UTC() },
		state:    Snapshot{Settings: domain.DefaultSettings(userID)},
	}
}

func (s *Session) UserID() string {
	return s.userID
}

// Start sweeps expired trash, then loads settings and every collection.
// A failed sweep is logged and does not block the session.
func (s *Session) Start(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if report, err := s.recovery.PurgeExpired(ctx); err != nil {
		log.Warn().Err(err).Str("user", s.userID).Msg("trash purge at session start failed")
	} else if !report.Skipped {
		log.Debug().Str("user", s.userID).Interface("purged", report.Purged).Interface("kept", report.Kept).Msg("trash purge at session start")
	}

	settings, err := s.repo.GetSettings(ctx, s.userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		defaults := domain.DefaultSettings(s.userID)
		settings = &defaults
	case err != nil:
		return &OpError{Op: "load settings", Err: err}
	}
	s.mu.Lock()
	s.state.Settings = *settings
	s.mu.Unlock()

	if err := s.resync(ctx, allKinds...); err != nil {
		return &OpError{Op: "load", Err: err}
	}
	return nil
}

var allKinds = []domain.Kind{
	domain.KindProducts,
	domain.KindSales,
	domain.KindCustomers,
	domain.KindSuppliers,
	domain.KindExpenses,
	domain.KindPurchases,
}

// Refresh re-reads the given kinds, or all of them when none are named.
func (s *Session) Refresh(ctx context.Context, kinds ...domain.Kind) error {
	if len(kinds) == 0 {
		kinds = allKinds
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.resync(ctx, kinds...); err != nil {
		return &OpError{Op: "refresh", Err: err}
	}
	return nil
}

// apply runs cmd and, when it succeeds, re-reads kinds. A failed re-read
// leaves the previous view in place; the committed write is still reported
// as a success.
func (s *Session) apply(ctx context.Context, op string, cmd func(context.Context) error, kinds ...domain.Kind) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := cmd(ctx); err != nil {
		log.Warn().Err(err).Str("op", op).Str("user", s.userID).Msg("session operation failed")
		return &OpError{Op: op, Err: err}
	}
	if err := s.resync(ctx, kinds...); err != nil {
		log.Warn().Err(err).Str("op", op).Str("user", s.userID).Msg("resync after write failed, view may be stale")
	}
	return nil
}

// resync fetches each kind and swaps it into the state only on success.
// Caller holds opMu.
func (s *Session) resync(ctx context.Context, kinds ...domain.Kind) error {
	var errs []error
	for _, kind := range slices.Compact(slices.Sorted(slices.Values(kinds))) {
		if err := s.fetch(ctx, kind); err != nil {
			errs = append(errs, fmt.Errorf("fetch %s: %w", kind, err))
		}
	}
	s.mu.Lock()
	s.state.LoadedAt = s.now()
	s.mu.Unlock()
	return errors.Join(errs...)
}

func (s *Session) fetch(ctx context.Context, kind domain.Kind) error {
	switch kind {
	case domain.KindProducts:
		rows, err := s.repo.ListProducts(ctx)
		return swap(s, &s.state.Products, rows, err)
	case domain.KindSales:
		rows, err := s.repo.ListSales(ctx)
		return swap(s, &s.state.Sales, rows, err)
	case domain.KindCustomers:
		rows, err := s.repo.ListCustomers(ctx)
		return swap(s, &s.state.Customers, rows, err)
	case domain.KindSuppliers:
		rows, err := s.repo.ListSuppliers(ctx)
		return swap(s, &s.state.Suppliers, rows, err)
	case domain.KindExpenses:
		rows, err := s.repo.ListExpenses(ctx)
		return swap(s, &s.state.Expenses, rows, err)
	case domain.KindPurchases:
		rows, err := s.repo.ListPurchases(ctx)
		return swap(s, &s.state.Purchases, rows, err)
	}
	return fmt.Errorf("%w: kind %q", store.ErrInvalidRecord, kind)
}

func swap[T any](s *Session, dst *[]T, rows []T, err error) error {
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []T{}
	}
	s.mu.Lock()
	*dst = rows
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy that callers may keep and read without locking.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Products:   slices.Clone(s.state.Products),
		Sales:      slices.Clone(s.state.Sales),
		Customers:  slices.Clone(s.state.Customers),
		Suppliers:  slices.Clone(s.state.Suppliers),
		Expenses:   slices.Clone(s.state.Expenses),
		Purchases:  slices.Clone(s.state.Purchases),
		Settings:   s.state.Settings,
		Activities: slices.Clone(s.state.Activities),
		LoadedAt:   s.state.LoadedAt,
	}
}

func (s *Session) Settings() domain.StoreSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Settings
}

// Activities returns the session log, newest first.
func (s *Session) Activities() []domain.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Activities)
}

func (s *Session) logActivity(kind string, message string) {
	entry := domain.Activity{
		ID:        uuid.NewString(),
		Type:      kind,
		Message:   message,
		Timestamp: s.now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Activities = append([]domain.Activity{entry}, s.state.Activities...)
	if len(s.state.Activities) > maxActivities {
		s.state.Activities = s.state.Activities[:maxActivities]
	}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", store.ErrInvalidRecord, err)
}
