package di

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/studentos/studentos/internal/ratelimit"
	"github.com/studentos/studentos/internal/respcache"
	"github.com/studentos/studentos/internal/sweep"
)

// RateLimitService owns the two counter stores backing the AI and general
// rate-limit policies, plus their background sweepers.
type RateLimitService struct {
	AICounters      *ratelimit.CounterStore
	GeneralCounters *ratelimit.CounterStore

	sweepers []*sweep.Runner
}

// NewRateLimits creates the counter stores and their sweep runners.
func NewRateLimits(i do.Injector) (*RateLimitService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	interval := cfgSvc.Get().RateLimit.GetSweepInterval()

	aiCounters := ratelimit.NewCounterStore()
	generalCounters := ratelimit.NewCounterStore()

	return &RateLimitService{
		AICounters:      aiCounters,
		GeneralCounters: generalCounters,
		sweepers: []*sweep.Runner{
			sweep.NewRunner("ratelimit.ai", aiCounters, interval, nil),
			sweep.NewRunner("ratelimit.general", generalCounters, interval, nil),
		},
	}, nil
}

// Start launches the background sweepers.
func (s *RateLimitService) Start(ctx context.Context) {
	for _, runner := range s.sweepers {
		runner.Start(ctx)
	}
}

// Shutdown implements do.Shutdowner, stopping the sweepers.
func (s *RateLimitService) Shutdown() error {
	for _, runner := range s.sweepers {
		runner.Stop()
	}
	return nil
}

// CacheService owns the response cache and its background sweeper.
type CacheService struct {
	Store *respcache.Store

	sweeper *sweep.Runner
}

// NewCache creates the response cache and its sweep runner.
func NewCache(i do.Injector) (*CacheService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	cfg := cfgSvc.Get()

	store := respcache.NewStore()

	return &CacheService{
		Store:   store,
		sweeper: sweep.NewRunner("respcache", store, cfg.Cache.GetSweepInterval(), nil),
	}, nil
}

// Start launches the background sweeper.
func (s *CacheService) Start(ctx context.Context) {
	s.sweeper.Start(ctx)
}

// Shutdown implements do.Shutdowner, stopping the sweeper.
func (s *CacheService) Shutdown() error {
	s.sweeper.Stop()
	return nil
}
