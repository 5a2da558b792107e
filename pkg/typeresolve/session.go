package typeresolve

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fileSession owns one backend Session plus its health tracker, scoped to a
// single file for the lifetime of one worker's processing of that file
// (open → N queries → close, spec.md §4.3/§5).
type fileSession struct {
	mu      sync.Mutex
	session Session
	health  health
	timeout time.Duration
}

func openFileSession(ctx context.Context, backend Backend, file, contents string, timeout time.Duration) *fileSession {
	fs := &fileSession{timeout: timeout}
	openCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	sess, err := backend.Open(openCtx, file, contents)
	if err != nil {
		fs.health.trip(fmt.Errorf("opening type resolver session for %s: %w", file, err))
		return fs
	}
	fs.session = sess
	return fs
}

// query resolves one receiver expression, honoring the per-query timeout
// and the session's health. A timeout trips the session unhealthy so every
// later query in the same file is short-circuited to unknown without
// re-attempting the out-of-process call, per spec.md §4.3's timeout policy.
func (fs *fileSession) query(ctx context.Context, offset int, receiverText string) (string, bool) {
	if unhealthy, _ := fs.health.isUnhealthy(); unhealthy {
		return "", false
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	queryCtx, cancel := context.WithTimeout(ctx, fs.timeout)
	defer cancel()

	type result struct {
		class string
		ok    bool
		err   error
	}
	done := make(chan result, 1)
	go func() {
		class, ok, err := fs.session.Query(queryCtx, offset, receiverText)
		done <- result{class, ok, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			fs.health.trip(r.err)
			return "", false
		}
		return r.class, r.ok
	case <-queryCtx.Done():
		fs.health.trip(fmt.Errorf("type resolver query timed out after %s", fs.timeout))
		return "", false
	}
}

func (fs *fileSession) close() error {
	if fs.session == nil {
		return nil
	}
	return fs.session.Close()
}
