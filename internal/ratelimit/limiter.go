// Package ratelimit enforces per-key quotas over a trailing time window.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/service"
)

// Decision is the outcome of a quota check.
type Decision struct {
	RetryAfter time.Duration
	Remaining  int
	Allowed    bool
}

// Limiter decides whether an action keyed by key may proceed now. An allowed
// decision consumes one unit of quota.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// WindowLimiter allows at most Limit events per key in any trailing Window. Events
// live in a service.EventStore so quotas hold across restarts and processes.
type WindowLimiter struct {
	store  service.EventStore
	logger *slog.Logger
	now    func() time.Time
	limit  int
	window time.Duration
}

// NewWindowLimiter creates a limiter over store.
func NewWindowLimiter(store service.EventStore, limit int, window time.Duration, logger *slog.Logger) *WindowLimiter {
	return &WindowLimiter{
		store:  store,
		limit:  limit,
		window: window,
		logger: common.OrDefault(logger),
		now:    time.Now,
	}
}

// Allow records an event for key if the window has room.
func (l *WindowLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.limit <= 0 {
		return Decision{Allowed: true}, nil
	}

	now := l.now()
	since := now.Add(-l.window)

	w, err := l.store.RecordEventIfUnder(ctx, key, since, now, l.limit)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check quota for %s: %w", key, err)
	}

	if w.Recorded {
		return Decision{Allowed: true, Remaining: l.limit - w.Count - 1}, nil
	}

	retryAfter := w.Oldest.Add(l.window).Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	l.logger.Info("Quota exceeded", "key", key, "limit", l.limit, "retry_after", retryAfter)
	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}

// Check is Allow that reports a denial as a *common.QuotaError.
func Check(ctx context.Context, l Limiter, key string, limit int) error {
	d, err := l.Allow(ctx, key)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &common.QuotaError{Key: key, Limit: limit, RetryAfter: d.RetryAfter}
	}
	return nil
}

// Prune deletes events that can no longer affect any decision.
func (l *WindowLimiter) Prune(ctx context.Context) (int64, error) {
	return l.store.PruneEvents(ctx, l.now().Add(-l.window))
}

// Limit returns the configured allowance per window.
func (l *WindowLimiter) Limit() int {
	return l.limit
}

// ScanKey is the quota key for image scans by a user.
func ScanKey(userID string) string {
	return "scan:" + userID
}
