// Package resolver drives the backend cascade for one crash event.
package resolver

import (
	"context"
	"log/slog"

	"github.com/Nao-Mk2/ecs-crash-notifier/internal/backend"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/config"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/model"
)

// Result is the outcome of log resolution. Source identifies the backend
// that supplied the entries and is unset when no backend had any.
type Result struct {
	Entries []model.LogEntry
	Source  backend.Kind
}

// Found reports whether any backend returned entries.
func (r Result) Found() bool {
	return len(r.Entries) > 0
}

// Resolver tries backends in priority order until one yields entries.
type Resolver struct {
	settings *config.Settings
	fetchers map[backend.Kind]backend.Fetcher
}

// New creates a Resolver over the given fetchers. Kinds without a registered
// fetcher are skipped if they ever appear in the order.
func New(settings *config.Settings, fetchers map[backend.Kind]backend.Fetcher) *Resolver {
	return &Resolver{settings: settings, fetchers: fetchers}
}

// Resolve walks the cascade sequentially: the first backend returning at
// least one entry terminates it and becomes the result's Source. Fetch
// errors degrade to an empty result for that backend only — resolution
// itself never fails for backend reasons. An exhausted cascade (CloudWatch
// included) is a valid outcome, not an error.
func (r *Resolver) Resolve(ctx context.Context, info *model.CrashInfo) Result {
	order := backend.Order(r.settings, info)
	if len(order) == 0 {
		slog.Info("no task ARN on crash event; skipping log resolution")
		return Result{}
	}

	for _, kind := range order {
		fetcher, ok := r.fetchers[kind]
		if !ok {
			continue
		}
		entries, err := fetcher.Fetch(ctx, info)
		if err != nil {
			slog.Warn("backend fetch failed; falling back", "backend", kind, "error", err)
			continue
		}
		if len(entries) > 0 {
			slog.Info("logs resolved", "backend", kind, "entries", len(entries))
			return Result{Entries: entries, Source: kind}
		}
		slog.Info("backend returned no logs", "backend", kind)
	}
	return Result{}
}
