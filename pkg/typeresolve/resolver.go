package typeresolve

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config controls how a Resolver opens sessions and bounds queries.
type Config struct {
	Backend Backend
	Timeout time.Duration // per-query deadline, default 10s (spec.md §4.3)
	Logger  *zap.Logger
}

// Resolver is the Type Resolver component: one instance is shared across
// the worker pool, but each worker leases its own per-file Session (opened
// by OpenFile; a query for a file with no open session returns unknown). A
// nil Backend (the --type-method
// none case) degrades every query to unknown uniformly, without opening
// anything.
type Resolver struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*fileSession

	warnedOnce sync.Once
}

// New returns a Resolver using cfg. If cfg.Timeout is zero, it defaults to
// 10 seconds per spec.md §4.3.
func New(cfg Config) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Resolver{cfg: cfg, sessions: make(map[string]*fileSession)}
}

// OpenFile opens (or returns the existing) session for file, warming it
// with contents. Call once per file before issuing queries against it;
// CloseFile releases it when the worker is done with the file.
func (r *Resolver) OpenFile(ctx context.Context, file, contents string) {
	if r.cfg.Backend == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[file]; exists {
		return
	}
	r.sessions[file] = openFileSession(ctx, r.cfg.Backend, file, contents, r.cfg.Timeout)
}

// CloseFile releases the session opened for file, if any.
func (r *Resolver) CloseFile(file string) {
	r.mu.Lock()
	fs, exists := r.sessions[file]
	delete(r.sessions, file)
	r.mu.Unlock()
	if exists {
		_ = fs.close()
	}
}

// ResolveReceiverType implements the Type Resolver contract from spec.md
// §4.3: resolve the declaring class of a receiver expression at file:offset.
// ok is false whenever the type cannot be determined for any reason —
// backend disabled, session never opened, session unhealthy, query timed
// out — the caller (pkg/rewrite) treats all of these identically as
// "unknown" and leaves the call site unrewritten.
func (r *Resolver) ResolveReceiverType(ctx context.Context, file string, offset int, receiverText string) (string, bool) {
	if r.cfg.Backend == nil {
		r.warnOnce()
		return "", false
	}
	r.mu.Lock()
	fs, exists := r.sessions[file]
	r.mu.Unlock()
	if !exists {
		r.warnOnce()
		return "", false
	}
	class, ok := fs.query(ctx, offset, receiverText)
	if !ok {
		if unhealthy, reason := fs.health.isUnhealthy(); unhealthy {
			r.cfg.Logger.Warn("type resolver session unhealthy, degrading to unknown",
				zap.String("file", file), zap.Error(reason))
		}
	}
	return class, ok
}

// warnOnce logs the one-time TypeResolverUnavailable warning from spec.md
// §7's error taxonomy, regardless of how many sites subsequently degrade.
func (r *Resolver) warnOnce() {
	r.warnedOnce.Do(func() {
		r.cfg.Logger.Warn("type resolver unavailable; type-dependent replacements will be skipped")
	})
}
