package cache

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/TomMcIver/Stock-Port/pkg/tracing"
)

// ReloadGuard serializes reference reloads across replicas. After a
// successful reload it bumps the shared version so other replicas follow.
type ReloadGuard struct {
	client *Client
	locker *Locker
	ttl    time.Duration
}

// NewReloadGuard creates a guard holding the reload lock for at most ttl
func NewReloadGuard(client *Client, ttl time.Duration) *ReloadGuard {
	return &ReloadGuard{
		client: client,
		locker: NewLocker(client),
		ttl:    ttl,
	}
}

// Guard runs fn under the reload lock and then increments the reference
// version. It returns ErrLockNotAcquired when another replica is reloading.
func (g *ReloadGuard) Guard(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, span := tracing.StartSpan(ctx, "cache.ReloadGuard.Guard")
	defer span.End()

	return g.locker.WithLock(ctx, ReloadLockKey, g.ttl, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		version, err := g.client.PublishVersion(ctx)
		if err != nil {
			// The local reload already happened; replicas catch up on the next bump
			g.client.logger.WithContext(ctx).WithError(err).Warn("Failed to publish reference version")
			return nil
		}
		g.client.logger.WithContext(ctx).WithFields(map[string]any{"version": version}).Info("Published reference version")
		return nil
	})
}

// Refresher rebuilds the local reference snapshot
type Refresher interface {
	Refresh(ctx context.Context)
}

// RefreshFunc adapts a function to Refresher
type RefreshFunc func(ctx context.Context)

func (f RefreshFunc) Refresh(ctx context.Context) { f(ctx) }

// VersionWatcher polls the shared reference version and refreshes the local
// snapshot whenever it moves.
type VersionWatcher struct {
	client    *Client
	refresher Refresher
	interval  time.Duration
	logger    ectologger.Logger
	seen      int64
}

// NewVersionWatcher creates a watcher polling every interval
func NewVersionWatcher(client *Client, refresher Refresher, interval time.Duration, logger ectologger.Logger) *VersionWatcher {
	return &VersionWatcher{
		client:    client,
		refresher: refresher,
		interval:  interval,
		logger:    logger,
	}
}

// Run polls until ctx is done
func (w *VersionWatcher) Run(ctx context.Context) {
	if version, err := w.client.Version(ctx); err == nil {
		w.seen = version
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll checks the version once and refreshes if it changed. It reports
// whether a refresh ran.
func (w *VersionWatcher) Poll(ctx context.Context) bool {
	version, err := w.client.Version(ctx)
	if err != nil {
		w.logger.WithContext(ctx).WithError(err).Warn("Failed to read reference version")
		return false
	}
	if version == w.seen {
		return false
	}

	w.logger.WithContext(ctx).WithFields(map[string]any{
		"previous": w.seen,
		"version":  version,
	}).Info("Reference version changed, refreshing")
	w.seen = version
	w.refresher.Refresh(ctx)
	return true
}
