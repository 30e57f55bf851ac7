//go:build !tsnet

package tunnel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nextlevelbuilder/goclaw-core/internal/config"
)

// TSNetListener is a stub when built without -tags tsnet: the VPN class
// falls back to an external `tailscale up` subprocess managed by
// Supervisor instead of an in-process tsnet.Server.
type TSNetListener struct{}

func NewTSNetListener(ctx context.Context, cfg config.TailscaleConfig) (*TSNetListener, error) {
	return nil, fmt.Errorf("tsnet: built without -tags tsnet")
}

func (t *TSNetListener) Serve(ctx context.Context, handler http.Handler) error {
	return fmt.Errorf("tsnet: built without -tags tsnet")
}

func (t *TSNetListener) Close() error { return nil }
