package gateway

import (
	"errors"
	"testing"
	"time"
)

type fakeTransport struct {
	closed bool
	err    error
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return f.err
}

func TestRegistry_RegisterGetUnregister(t *testing.T) {
	r := NewRegistry()
	conn := &ClientConnection{ID: "c1", Class: ClassLocal, Peer: "127.0.0.1:1", Since: time.Now()}
	tx := &fakeTransport{}

	r.Register(conn, tx)
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}

	got, ok := r.Get("c1")
	if !ok || got != conn {
		t.Fatalf("Get(c1) = %v, %v", got, ok)
	}

	r.Unregister("c1")
	if r.Len() != 0 {
		t.Fatalf("Len() after unregister = %d, want 0", r.Len())
	}
	if !tx.closed {
		t.Error("expected transport to be closed on unregister")
	}
	if _, ok := r.Get("c1"); ok {
		t.Error("expected Get to miss after unregister")
	}
}

func TestRegistry_UnregisterSwallowsCloseError(t *testing.T) {
	r := NewRegistry()
	conn := &ClientConnection{ID: "c1", Since: time.Now()}
	tx := &fakeTransport{err: errors.New("boom")}
	r.Register(conn, tx)

	// Must not panic even though Close returns an error.
	r.Unregister("c1")
	if r.Len() != 0 {
		t.Fatal("expected registry to be empty after unregister despite close error")
	}
}

func TestRegistry_UnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Unregister("does-not-exist")
	if r.Len() != 0 {
		t.Fatal("expected empty registry")
	}
}

func TestRegistry_CountByClass(t *testing.T) {
	r := NewRegistry()
	r.Register(&ClientConnection{ID: "a", Class: ClassLocal, Since: time.Now()}, &fakeTransport{})
	r.Register(&ClientConnection{ID: "b", Class: ClassLocal, Since: time.Now()}, &fakeTransport{})
	r.Register(&ClientConnection{ID: "c", Class: ClassVPN, Since: time.Now()}, &fakeTransport{})

	counts := r.CountByClass()
	if counts[ClassLocal] != 2 {
		t.Errorf("ClassLocal count = %d, want 2", counts[ClassLocal])
	}
	if counts[ClassVPN] != 1 {
		t.Errorf("ClassVPN count = %d, want 1", counts[ClassVPN])
	}
}

func TestRegistry_AllReturnsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Register(&ClientConnection{ID: "a", Since: time.Now()}, &fakeTransport{})
	r.Register(&ClientConnection{ID: "b", Since: time.Now()}, &fakeTransport{})

	all := r.All()
	if len(all) != 2 {
		t.Fatalf("All() len = %d, want 2", len(all))
	}
}
