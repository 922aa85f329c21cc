package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL         = 10 * time.Minute
	DefaultLoadTimeout = time.Minute

	loadKey = "snapshot"
)

// Clock is the time source of the cache.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// PublishHook runs after a snapshot has been published.
type PublishHook func(ctx context.Context, snap *Snapshot) error

// Option configures a Cache.
type Option func(*Cache)

func WithClock(clock Clock) Option { return func(c *Cache) { c.clock = clock } }

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithLoadTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option { return func(c *Cache) { c.logger = logger } }

// WithPublishHook registers a hook. Hooks run in registration order.
func WithPublishHook(name string, hook PublishHook) Option {
	return func(c *Cache) { c.hooks = append(c.hooks, namedHook{name: name, fn: hook}) }
}

type namedHook struct {
	name string
	fn   PublishHook
}

// Cache is a single-slot read-through cache over every data category.
//
// Reads within the TTL of the last successful load return the same
// *Snapshot. The first read after expiry loads once; concurrent readers
// wait on that load. Refresh forces a reload through the same slot and keeps
// the previous snapshot if it fails. Clear drops the snapshot immediately.
type Cache struct {
	source      repository.DataSource
	clock       Clock
	ttl         time.Duration
	loadTimeout time.Duration
	logger      *zap.Logger
	hooks       []namedHook

	group singleflight.Group

	mu              sync.RWMutex
	snap            *Snapshot
	expires         time.Time
	generation      uint64
	loads           int64
	failedLoads     int64
	failedRefreshes int64
	lastError       string
}

// New creates a Cache over source.
func New(source repository.DataSource, opts ...Option) *Cache {
	c := &Cache{
		source:      source,
		clock:       systemClock{},
		ttl:         DefaultTTL,
		loadTimeout: DefaultLoadTimeout,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the validity window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the current snapshot, loading it if absent or expired.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	if snap := c.fresh(); snap != nil {
		return snap, nil
	}
	return c.load(ctx, false)
}

// Refresh reloads unconditionally. On failure the previous snapshot stays
// in place and keeps being served until it expires.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err := c.load(ctx, true)
	if err != nil {
		c.mu.Lock()
		c.failedRefreshes++
		c.mu.Unlock()
		c.logger.Warn("Cache refresh failed, keeping previous snapshot", zap.Error(err))
		return err
	}
	return nil
}

// RefreshInBackground runs Refresh in its own goroutine. The returned
// channel yields the result once and is then closed. Cancelling ctx does not
// abort the refresh.
func (c *Cache) RefreshInBackground(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	bg := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		done <- c.Refresh(bg)
	}()
	return done
}

// Clear invalidates the snapshot. A load already in flight still answers
// its waiters but its result is not published.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.snap = nil
	c.expires = time.Time{}
	c.generation++
	c.mu.Unlock()
	c.group.Forget(loadKey)
	c.logger.Info("Cache cleared")
}

func (c *Cache) fresh() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap != nil && c.clock.Now().Before(c.expires) {
		return c.snap
	}
	return nil
}

// load joins or starts the single in-flight load. The load itself runs
// detached from ctx so that one caller giving up does not fail the others;
// ctx only bounds how long this caller waits.
func (c *Cache) load(ctx context.Context, force bool) (*Snapshot, error) {
	ch := c.group.DoChan(loadKey, func() (any, error) {
		if !force {
			// a load may have published between our check and joining
			if snap := c.fresh(); snap != nil {
				return snap, nil
			}
		}

		c.mu.RLock()
		gen := c.generation
		c.mu.RUnlock()

		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		started := c.clock.Now()
		snap, err := c.fetch(lctx)
		if err != nil {
			c.mu.Lock()
			c.failedLoads++
			c.lastError = err.Error()
			c.mu.Unlock()
			return nil, err
		}

		if !c.publish(snap, gen) {
			c.logger.Info("Discarding load that finished after clear")
			return snap, nil
		}
		c.logger.Info("Cache snapshot published",
			zap.String("source", snap.Source),
			zap.Int("patients", len(snap.Patients)),
			zap.Int("assessments", len(snap.Assessments)),
			zap.Strings("failed_categories", snap.FailedCategories),
			zap.Duration("took", c.clock.Now().Sub(started)),
		)
		c.runHooks(lctx, snap)
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (c *Cache) publish(snap *Snapshot, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.snap = snap
	c.expires = snap.LoadedAt.Add(c.ttl)
	c.loads++
	c.lastError = ""
	return true
}

func (c *Cache) runHooks(ctx context.Context, snap *Snapshot) {
	for _, h := range c.hooks {
		if err := h.fn(ctx, snap); err != nil {
			c.logger.Warn("Publish hook failed",
				zap.String("hook", h.name),
				zap.Error(err),
			)
		}
	}
}

// Typed getters.

func (c *Cache) Patients(ctx context.Context) ([]domain.Patient, error) {
	snap, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Patients, nil
}

func (c *Cache) Assessments(ctx context.Context) ([]domain.AssessmentScore, error) {
	snap, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Assessments, nil
}

func (c *Cache) SubstanceHistory(ctx context.Context) ([]domain.SubstanceHistory, error) {
	snap, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	return snap.SubstanceHistory, nil
}

func (c *Cache) PHPAssessments(ctx context.Context) ([]domain.PHPAssessment, error) {
	snap, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	return snap.PHPAssessments, nil
}

func (c *Cache) BPSAssessments(ctx context.Context) ([]domain.BPSAssessment, error) {
	snap, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	return snap.BPSAssessments, nil
}

func (c *Cache) Stats(ctx context.Context) (domain.DashboardStats, error) {
	snap, err := c.Get(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return snap.Stats, nil
}

// Peek returns the published snapshot without loading. It may be expired.
func (c *Cache) Peek() (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap, c.snap != nil
}

// Status describes the cache slot.
type Status struct {
	Loaded           bool           `json:"loaded"`
	Fresh            bool           `json:"fresh"`
	Source           string         `json:"source,omitempty"`
	LoadedAt         *time.Time     `json:"loaded_at,omitempty"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
	AgeSeconds       float64        `json:"age_seconds"`
	TTLSeconds       float64        `json:"ttl_seconds"`
	Counts           map[string]int `json:"counts,omitempty"`
	FailedCategories []string       `json:"failed_categories,omitempty"`
	Loads            int64          `json:"loads"`
	FailedLoads      int64          `json:"failed_loads"`
	FailedRefreshes  int64          `json:"failed_refreshes"`
	LastError        string         `json:"last_error,omitempty"`
}

// Status reports the current state without triggering a load.
func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := Status{
		TTLSeconds:      c.ttl.Seconds(),
		Loads:           c.loads,
		FailedLoads:     c.failedLoads,
		FailedRefreshes: c.failedRefreshes,
		LastError:       c.lastError,
	}
	if c.snap == nil {
		return st
	}
	now := c.clock.Now()
	loadedAt, expires := c.snap.LoadedAt, c.expires
	st.Loaded = true
	st.Fresh = now.Before(expires)
	st.Source = c.snap.Source
	st.LoadedAt = &loadedAt
	st.ExpiresAt = &expires
	st.AgeSeconds = now.Sub(loadedAt).Seconds()
	st.Counts = c.snap.Counts()
	st.FailedCategories = c.snap.FailedCategories
	return st
}

// IsAllFailed reports whether err means no category could be loaded.
func IsAllFailed(err error) bool {
	return errors.Is(err, ErrAllCategoriesFailed)
}
