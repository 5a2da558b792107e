package typeresolve

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeSession is an in-memory Session for exercising Resolver behavior
// without spawning a real subprocess.
type fakeSession struct {
	classes map[int]string
	delay   time.Duration
	failErr error
	closed  bool
}

func (s *fakeSession) Query(ctx context.Context, offset int, receiverText string) (string, bool, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
	if s.failErr != nil {
		return "", false, s.failErr
	}
	class, ok := s.classes[offset]
	return class, ok, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeBackend struct {
	session *fakeSession
	openErr error
}

func (b *fakeBackend) Open(ctx context.Context, file, contents string) (Session, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.session, nil
}

func TestResolverResolvesKnownReceiver(t *testing.T) {
	backend := &fakeBackend{session: &fakeSession{classes: map[int]string{10: "pkg.mod.C"}}}
	r := New(Config{Backend: backend, Timeout: time.Second})

	r.OpenFile(context.Background(), "f.mod", "source")
	class, ok := r.ResolveReceiverType(context.Background(), "f.mod", 10, "obj")
	if !ok || class != "pkg.mod.C" {
		t.Fatalf("ResolveReceiverType() = (%q, %v), want (pkg.mod.C, true)", class, ok)
	}
	r.CloseFile("f.mod")
	if !backend.session.closed {
		t.Errorf("expected session to be closed after CloseFile")
	}
}

func TestResolverUnknownWithoutOpenFile(t *testing.T) {
	backend := &fakeBackend{session: &fakeSession{}}
	r := New(Config{Backend: backend, Timeout: time.Second})

	_, ok := r.ResolveReceiverType(context.Background(), "f.mod", 0, "obj")
	if ok {
		t.Fatalf("expected unknown when no session was opened")
	}
}

func TestResolverDegradesWhenBackendUnavailable(t *testing.T) {
	r := New(Config{Backend: nil})
	r.OpenFile(context.Background(), "f.mod", "source")
	_, ok := r.ResolveReceiverType(context.Background(), "f.mod", 0, "obj")
	if ok {
		t.Fatalf("expected unknown when backend is nil")
	}
}

func TestResolverTripsOnTimeout(t *testing.T) {
	backend := &fakeBackend{session: &fakeSession{delay: 50 * time.Millisecond}}
	r := New(Config{Backend: backend, Timeout: 5 * time.Millisecond})

	r.OpenFile(context.Background(), "f.mod", "source")
	_, ok := r.ResolveReceiverType(context.Background(), "f.mod", 0, "obj")
	if ok {
		t.Fatalf("expected unknown after timeout")
	}

	// Subsequent query on the same file short-circuits without re-querying.
	_, ok = r.ResolveReceiverType(context.Background(), "f.mod", 1, "obj2")
	if ok {
		t.Fatalf("expected unknown after session tripped unhealthy")
	}
}

func TestResolverTripsOnOpenFailure(t *testing.T) {
	backend := &fakeBackend{session: &fakeSession{}, openErr: errors.New("spawn failed")}
	r := New(Config{Backend: backend, Timeout: time.Second})

	r.OpenFile(context.Background(), "f.mod", "source")
	_, ok := r.ResolveReceiverType(context.Background(), "f.mod", 0, "obj")
	if ok {
		t.Fatalf("expected unknown when session failed to open")
	}
}
