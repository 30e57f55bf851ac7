package channels

import (
	"context"
	"testing"

	"github.com/nextlevelbuilder/goclaw-core/pkg/protocol"
)

type stubAdapter struct {
	GenericAdapter
	shutDown bool
}

func (s *stubAdapter) Shutdown(ctx context.Context) error {
	s.shutDown = true
	return nil
}

func stubFactory(credentials, cfg map[string]any, onInbound InboundFunc) (Adapter, error) {
	return &stubAdapter{GenericAdapter: GenericAdapter{name: "stub"}}, nil
}

func TestRegistry_Connect_UnknownPlatformGetsGenericAdapter(t *testing.T) {
	r := NewRegistry(func(protocol.PlatformMessage) {})
	adapter, err := r.Connect(context.Background(), "not-registered", map[string]any{}, nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if _, ok := adapter.(*GenericAdapter); !ok {
		t.Fatalf("adapter = %T, want *GenericAdapter", adapter)
	}
}

func TestRegistry_Connect_AbsentCredentialsGetsGenericAdapter(t *testing.T) {
	r := NewRegistry(func(protocol.PlatformMessage) {})
	r.RegisterFactory("telegram", stubFactory)

	adapter, err := r.Connect(context.Background(), "telegram", nil, nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if _, ok := adapter.(*GenericAdapter); !ok {
		t.Fatalf("adapter = %T, want *GenericAdapter for nil credentials", adapter)
	}
}

func TestRegistry_Connect_EmptyCredentialsReachesRealFactory(t *testing.T) {
	r := NewRegistry(func(protocol.PlatformMessage) {})
	r.RegisterFactory("telegram", stubFactory)

	adapter, err := r.Connect(context.Background(), "telegram", map[string]any{}, nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if _, ok := adapter.(*stubAdapter); !ok {
		t.Fatalf("adapter = %T, want *stubAdapter for present-but-empty credentials", adapter)
	}
}

func TestRegistry_Connect_SupersedesAndShutsDownPrior(t *testing.T) {
	r := NewRegistry(func(protocol.PlatformMessage) {})
	r.RegisterFactory("telegram", stubFactory)

	first, err := r.Connect(context.Background(), "telegram", map[string]any{}, nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	second, err := r.Connect(context.Background(), "telegram", map[string]any{}, nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if first == second {
		t.Fatal("expected a fresh adapter instance on reconnect")
	}

	got, ok := r.Get("telegram")
	if !ok || got != second {
		t.Fatal("expected the registry to hold the most recently connected adapter")
	}
	if !first.(*stubAdapter).shutDown {
		t.Fatal("expected the superseded adapter to be shut down")
	}
}
