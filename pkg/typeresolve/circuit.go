package typeresolve

import "sync"

// health tracks whether a single file's resolver session is still worth
// querying. It is a two-state reduction of waffle's pantry/retry circuit
// breaker (see DESIGN.md): there is no half-open probing state here because
// a session's backend process, once it fails to start or times out, is not
// retried within the same Driver invocation — the next invocation opens a
// fresh session and gets a fresh health tracker. What's kept is the core
// idea: once tripped, every subsequent query short-circuits to unknown
// without re-attempting the (expensive) out-of-process call.
type health struct {
	mu        sync.Mutex
	unhealthy bool
	reason    error
}

func (h *health) trip(reason error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unhealthy = true
	h.reason = reason
}

func (h *health) isUnhealthy() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unhealthy, h.reason
}
