package typeresolve

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// DaemonBackend models a type checker that resolves a single query per
// process invocation (e.g. `mypy --resolve-at file:offset`), rather than
// holding a conversation over a long-lived connection. Results are cached
// in-process per (file, offset), so a position queried more than once in a
// session runs the subprocess only once.
type DaemonBackend struct {
	// Command builds the one-shot subprocess invocation for a single
	// query; its output on stdout is the resolved class name, or empty
	// for unknown.
	Command func(ctx context.Context, file string, offset int, receiverText string) *exec.Cmd
}

func (b *DaemonBackend) Open(ctx context.Context, file, contents string) (Session, error) {
	return &daemonSession{backend: b, file: file, cache: make(map[int]daemonResult)}, nil
}

type daemonResult struct {
	class string
	ok    bool
}

type daemonSession struct {
	mu      sync.Mutex
	backend *DaemonBackend
	file    string
	cache   map[int]daemonResult
}

func (s *daemonSession) Query(ctx context.Context, offset int, receiverText string) (string, bool, error) {
	s.mu.Lock()
	if r, cached := s.cache[offset]; cached {
		s.mu.Unlock()
		return r.class, r.ok, nil
	}
	s.mu.Unlock()

	cmd := s.backend.Command(ctx, s.file, offset, receiverText)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", false, fmt.Errorf("daemon backend: query at offset %d: %w", offset, err)
	}

	class, ok := parseDaemonOutput(stdout.String())
	s.mu.Lock()
	s.cache[offset] = daemonResult{class, ok}
	s.mu.Unlock()
	return class, ok, nil
}

func (s *daemonSession) Close() error { return nil }

func parseDaemonOutput(out string) (string, bool) {
	class := strings.TrimSpace(out)
	if class == "" || class == "unknown" {
		return "", false
	}
	return class, true
}
