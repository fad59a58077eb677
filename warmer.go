package linkml

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// CacheWarmingConfig controls the background warmer's batch size,
// concurrency, and how it scores access history (component I).
type CacheWarmingConfig struct {
	AutoWarm          bool
	BatchSize         int
	MaxConcurrent     int
	WarmingInterval   time.Duration
	PriorityThreshold float64
	HistoryWindow     time.Duration
	HistorySize       int
}

// DefaultCacheWarmingConfig matches the defaults this warmer is modeled on.
func DefaultCacheWarmingConfig() CacheWarmingConfig {
	return CacheWarmingConfig{
		AutoWarm:          true,
		BatchSize:         50,
		MaxConcurrent:     4,
		WarmingInterval:   5 * time.Minute,
		PriorityThreshold: 0.5,
		HistoryWindow:     time.Hour,
		HistorySize:       1000,
	}
}

type accessEntry struct {
	key       ValidatorCacheKey
	at        time.Time
	className string
}

// CacheWarmer records cache accesses and periodically pre-compiles the
// validators a frequency-based strategy judges likely to be needed again,
// keeping the cache hit rate high under steady-state load.
type CacheWarmer struct {
	config   CacheWarmingConfig
	cache    *ValidatorCache
	compiler *Compiler
	schema   *Schema
	opts     CompileOptions

	mu      sync.Mutex
	history []accessEntry
}

// NewCacheWarmer returns a warmer that pre-compiles validators for schema
// through compiler, storing results in cache.
func NewCacheWarmer(config CacheWarmingConfig, cache *ValidatorCache, compiler *Compiler, schema *Schema, opts CompileOptions) *CacheWarmer {
	return &CacheWarmer{config: config, cache: cache, compiler: compiler, schema: schema, opts: opts}
}

// RecordAccess notes that key was looked up, trimming history to HistorySize.
func (w *CacheWarmer) RecordAccess(key ValidatorCacheKey) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.history = append(w.history, accessEntry{key: key, at: time.Now(), className: key.ClassName})
	if len(w.history) > w.config.HistorySize {
		w.history = w.history[len(w.history)-w.config.HistorySize:]
	}
}

// candidate selection: count accesses per class name within the history
// window, sort by frequency descending, score by a 0..1 fraction of a
// saturation threshold (component I, frequency-based warming strategy).
func (w *CacheWarmer) candidates() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := time.Now().Add(-w.config.HistoryWindow)
	counts := make(map[string]int)
	for _, e := range w.history {
		if e.at.Before(cutoff) {
			continue
		}
		counts[e.className]++
	}

	type scored struct {
		name     string
		priority float64
	}
	ranked := make([]scored, 0, len(counts))
	for name, count := range counts {
		priority := float64(count) / 100.0
		if priority > 1.0 {
			priority = 1.0
		}
		if priority < w.config.PriorityThreshold {
			continue
		}
		ranked = append(ranked, scored{name: name, priority: priority})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].priority > ranked[j].priority })

	if len(ranked) > w.config.BatchSize {
		ranked = ranked[:w.config.BatchSize]
	}
	names := make([]string, len(ranked))
	for i, r := range ranked {
		names[i] = r.name
	}
	return names
}

// RunCycle compiles and caches validators for every class the current
// history marks as high-priority, bounded by MaxConcurrent.
func (w *CacheWarmer) RunCycle(ctx context.Context) error {
	if !w.config.AutoWarm {
		return nil
	}

	names := w.candidates()
	if len(names) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.MaxConcurrent)

	for _, name := range names {
		name := name
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			_, err := w.compiler.Compile(w.schema, name, w.opts)
			return err
		})
	}

	return g.Wait()
}

// StartBackgroundWorker runs RunCycle on config.WarmingInterval until ctx is
// cancelled, returning the channel closed on exit.
func (w *CacheWarmer) StartBackgroundWorker(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(w.config.WarmingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = w.RunCycle(ctx)
			}
		}
	}()
	return done
}
