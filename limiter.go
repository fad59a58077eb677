package linkml

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ResourceLimits bounds what one ValidationEngine will do to protect a
// shared process from a hostile or oversized schema/document (component J).
// Defaults mirror the service-side limiter this engine is modeled on.
type ResourceLimits struct {
	MaxMemoryBytes           int64
	MaxConcurrentValidations int64
	MaxValidationDuration    time.Duration
	MaxSchemaSize            int64
	MaxDocumentSize          int64
	MaxNestedDepth           int
	RateLimitRPS             float64
}

// DefaultResourceLimits returns the limits a ValidationEngine uses when the
// caller installs none explicitly.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		MaxMemoryBytes:           1 << 30, // 1 GiB
		MaxConcurrentValidations: 100,
		MaxValidationDuration:    30 * time.Second,
		MaxSchemaSize:            10 << 20,  // 10 MiB
		MaxDocumentSize:          100 << 20, // 100 MiB
		MaxNestedDepth:           100,
		RateLimitRPS:             1000,
	}
}

// ResourceLimiter enforces ResourceLimits across every validation call made
// through one ValidationEngine: a MaxDocumentSize precheck, a concurrency
// semaphore, and a token-bucket rate limit. The watchdog timeout is enforced
// by the caller via the returned guard's context. MaxMemoryBytes,
// MaxSchemaSize and MaxNestedDepth are not read anywhere; recursion depth is
// bounded by ValidationOptions.MaxDepth through maxRecursionDepth.
type ResourceLimiter struct {
	limits  ResourceLimits
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	inUse   atomic.Int64
}

// NewResourceLimiter returns a limiter enforcing limits.
func NewResourceLimiter(limits ResourceLimits) *ResourceLimiter {
	concurrency := limits.MaxConcurrentValidations
	if concurrency <= 0 {
		concurrency = 1
	}
	rps := limits.RateLimitRPS
	if rps <= 0 {
		rps = float64(rate.Inf)
	}
	return &ResourceLimiter{
		limits:  limits,
		sem:     semaphore.NewWeighted(concurrency),
		limiter: rate.NewLimiter(rate.Limit(rps), int(concurrency)),
	}
}

// resourceGuard represents one acquired validation slot; the caller must
// call Release exactly once.
type resourceGuard struct {
	limiter *ResourceLimiter
	ctx     context.Context
	cancel  context.CancelFunc
}

// Context returns a context bounded by MaxValidationDuration, for callers
// that want the watchdog deadline applied to work done under the guard.
func (g *resourceGuard) Context() context.Context { return g.ctx }

// Acquire blocks (respecting ctx) until a concurrency slot and a rate-limit
// token are both available, first rejecting outright if size exceeds
// MaxDocumentSize. The returned context carries MaxValidationDuration as a
// deadline; callers should prefer it over the caller-supplied ctx for the
// validation body so a runaway evaluation is cut off.
func (rl *ResourceLimiter) Acquire(ctx context.Context, size int) (*resourceGuard, error) {
	if rl.limits.MaxDocumentSize > 0 && int64(size) > rl.limits.MaxDocumentSize {
		return nil, ErrDocumentTooLarge
	}

	if err := rl.limiter.Wait(ctx); err != nil {
		return nil, &ResourceError{Code: "RATE_LIMITED", Err: ErrRateLimited}
	}

	if err := rl.sem.Acquire(ctx, 1); err != nil {
		return nil, &ResourceError{Code: "TOO_MANY_CONCURRENT", Err: ErrTooManyConcurrent}
	}
	rl.inUse.Add(1)

	watchCtx, cancel := context.WithTimeout(ctx, rl.watchdogTimeout())
	return &resourceGuard{limiter: rl, ctx: watchCtx, cancel: cancel}, nil
}

func (rl *ResourceLimiter) watchdogTimeout() time.Duration {
	if rl.limits.MaxValidationDuration > 0 {
		return rl.limits.MaxValidationDuration
	}
	return 30 * time.Second
}

// InUse reports the number of currently acquired validation slots.
func (rl *ResourceLimiter) InUse() int64 { return rl.inUse.Load() }

// Release returns the concurrency slot acquired by Acquire. Safe to call
// exactly once per guard.
func (g *resourceGuard) Release() {
	g.limiter.inUse.Add(-1)
	g.limiter.sem.Release(1)
	g.cancel()
}
