package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"rbudget/internal/cache"
	"rbudget/internal/core"
	applog "rbudget/internal/log"
	"rbudget/internal/scenario"
	"rbudget/internal/simulation"
)

// MaxHorizon bounds the number of days a single projection may cover.
const MaxHorizon = 100 * 366

var (
	ErrInvalidHorizon = errors.New("invalid projection horizon")
	ErrNotListable    = errors.New("scenario source cannot list scenarios")
)

// Projection is the first Days of a scenario run from Start. Cached
// projections are shared between callers and must not be modified.
type Projection struct {
	Scenario string
	Start    core.Date
	Accounts simulation.Accounts
	Days     []simulation.Day
	Summary  []simulation.AccountSummary
}

// ProjectionServiceConfig holds tuning for the projection service.
type ProjectionServiceConfig struct {
	CacheSize     int
	CacheTTL      time.Duration
	MaxConcurrent int
}

// DefaultProjectionServiceConfig returns the defaults used when the
// environment sets nothing.
func DefaultProjectionServiceConfig() ProjectionServiceConfig {
	return ProjectionServiceConfig{
		CacheSize:     64,
		CacheTTL:      5 * time.Minute,
		MaxConcurrent: 4,
	}
}

// ProjectionService loads scenarios, runs them and caches the result.
type ProjectionService struct {
	loader        scenario.Loader
	cache         *cache.LRUCache[*Projection]
	maxConcurrent int
	logger        *applog.Logger
}

func NewProjectionService(loader scenario.Loader, cfg ProjectionServiceConfig, logger *applog.Logger) *ProjectionService {
	if logger == nil {
		logger = applog.Discard()
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	return &ProjectionService{
		loader:        loader,
		cache:         cache.NewLRUCache[*Projection](cfg.CacheSize, cfg.CacheTTL),
		maxConcurrent: cfg.MaxConcurrent,
		logger:        logger.WithComponent(applog.ComponentProjection),
	}
}

// Cache exposes the projection cache so it can be registered with a
// cache.Manager.
func (s *ProjectionService) Cache() cache.Cleaner {
	return s.cache
}

// CacheStats reports hit and miss counts of the projection cache.
func (s *ProjectionService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func cacheKey(name string, start core.Date, days int) string {
	return fmt.Sprintf("%s|%s|%d", name, start, days)
}

// Project runs the named scenario for days days from start.
func (s *ProjectionService) Project(ctx context.Context, name string, start core.Date, days int) (*Projection, error) {
	if days < 1 || days > MaxHorizon {
		return nil, fmt.Errorf("%w: %d days", ErrInvalidHorizon, days)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cacheKey(name, start, days)
	if p, ok := s.cache.Get(key); ok {
		s.logger.DebugContext(ctx, "Projection served from cache", applog.FieldScenario, name, applog.FieldCacheHit, true)
		return p, nil
	}

	began := time.Now()
	def, err := s.loader.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", name, err)
	}
	sim, err := def.Build(start)
	if err != nil {
		return nil, fmt.Errorf("build scenario %s: %w", name, err)
	}

	accounts := sim.Accounts()
	result := sim.Take(days)
	p := &Projection{
		Scenario: name,
		Start:    start,
		Accounts: accounts,
		Days:     result,
		Summary:  simulation.Summarize(accounts, result),
	}
	s.cache.Set(key, p)

	fields := applog.NewFields().
		WithOperation(applog.OpProject).
		WithProjection(name, start.String(), days).
		WithDuration(time.Since(began))
	s.logger.InfoContext(ctx, "Projection computed", fields.ToSlice()...)
	return p, nil
}

// Compare projects several scenarios over the same horizon concurrently and
// returns the projections in the order of names. The first failure cancels
// the rest.
func (s *ProjectionService) Compare(ctx context.Context, names []string, start core.Date, days int) ([]*Projection, error) {
	out := make([]*Projection, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, name := range names {
		g.Go(func() error {
			p, err := s.Project(gctx, name, start, days)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Scenarios compared",
		applog.FieldOperation, applog.OpCompare,
		"scenarios", len(names),
		applog.FieldDays, days)
	return out, nil
}

// Scenarios lists the scenarios of the underlying source when it supports
// listing.
func (s *ProjectionService) Scenarios(ctx context.Context) ([]string, error) {
	lister, ok := s.loader.(scenario.Lister)
	if !ok {
		return nil, ErrNotListable
	}
	return lister.Scenarios(ctx)
}

// Invalidate drops every cached projection of the named scenario.
func (s *ProjectionService) Invalidate(name string) int {
	prefix := name + "|"
	return s.cache.DeleteFunc(func(key string) bool { return strings.HasPrefix(key, prefix) })
}
