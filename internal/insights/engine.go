// Package insights generates financial summaries and alerts from ledger,
// budget and dues state. Generation is decoupled from the timers: every
// periodic check is an ordinary function of (ctx, now), so a manual
// single-user trigger and the tests reuse exactly the same code paths.
// All reads, no writes: the engine never mutates ledger state.
package insights

import (
	"context"
	"fmt"
	"time"

	"moneta/internal/cache"
	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/notify"
	"moneta/internal/storage"
)

// Engine computes briefs, budget alerts and dues reminders and hands the
// resulting payloads to the dispatcher.
type Engine struct {
	repo       *storage.Repository
	dispatcher notify.Dispatcher
	logger     *log.Logger

	// Schedule configs are read on every tick for every user; a short TTL
	// keeps the hourly scan cheap without holding stale prefs for long.
	cfgCache *cache.LRUCache[core.ScheduleConfig]

	dispatchTimeout time.Duration
	concurrency     int
}

func NewEngine(repo *storage.Repository, dispatcher notify.Dispatcher, logger *log.Logger, dispatchTimeout time.Duration, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	if dispatchTimeout <= 0 {
		dispatchTimeout = 5 * time.Second
	}
	return &Engine{
		repo:            repo,
		dispatcher:      dispatcher,
		logger:          logger.WithComponent(log.ComponentInsights),
		cfgCache:        cache.NewLRUCache[core.ScheduleConfig](1024, 5*time.Minute),
		dispatchTimeout: dispatchTimeout,
		concurrency:     concurrency,
	}
}

// ConfigCache exposes the schedule config cache for cleanup registration.
func (e *Engine) ConfigCache() *cache.LRUCache[core.ScheduleConfig] {
	return e.cfgCache
}

func (e *Engine) scheduleConfig(ctx context.Context, owner string) (core.ScheduleConfig, error) {
	if cfg, ok := e.cfgCache.Get(owner); ok {
		return cfg, nil
	}
	cfg, err := e.repo.GetScheduleConfig(ctx, owner)
	if err != nil {
		return core.ScheduleConfig{}, err
	}
	e.cfgCache.Set(owner, cfg)
	return cfg, nil
}

// Dispatch hands one payload to the dispatcher. Exposed for the manual
// trigger endpoint, which delivers a brief outside the scheduled checks.
func (e *Engine) Dispatch(ctx context.Context, n notify.Notification) error {
	return e.dispatch(ctx, n)
}

// dispatch hands one payload to the dispatcher under a bounded deadline so a
// slow sink cannot stall the remaining users in a tick.
func (e *Engine) dispatch(ctx context.Context, n notify.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, e.dispatchTimeout)
	defer cancel()
	return e.dispatcher.Dispatch(ctx, n)
}

// formatCents renders minor currency units as a decimal string.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
