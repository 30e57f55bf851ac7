//go:build tsnet

package tunnel

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"tailscale.com/tsnet"

	"github.com/nextlevelbuilder/goclaw-core/internal/config"
)

// TSNetListener wraps an in-process tsnet.Server, an alternative to
// shelling out to `tailscale up`, configured from TailscaleConfig (§4.A
// clarified). Built only with -tags tsnet. cmd/gatewayd does not
// construct one; it always uses the Supervisor-managed subprocess.
type TSNetListener struct {
	srv *tsnet.Server
	ln  net.Listener
}

// NewTSNetListener joins the tailnet and returns a listener serving
// plain HTTP (or TLS, if cfg.EnableTLS) on the tailnet interface.
func NewTSNetListener(ctx context.Context, cfg config.TailscaleConfig) (*TSNetListener, error) {
	if cfg.Hostname == "" {
		return nil, fmt.Errorf("tsnet: hostname required")
	}
	srv := &tsnet.Server{
		Hostname:  cfg.Hostname,
		Dir:       cfg.StateDir,
		AuthKey:   cfg.AuthKey,
		Ephemeral: cfg.Ephemeral,
	}
	if err := srv.Start(); err != nil {
		return nil, fmt.Errorf("tsnet: start: %w", err)
	}

	var ln net.Listener
	var err error
	if cfg.EnableTLS {
		ln, err = srv.ListenTLS("tcp", ":443")
	} else {
		ln, err = srv.Listen("tcp", ":80")
	}
	if err != nil {
		srv.Close()
		return nil, fmt.Errorf("tsnet: listen: %w", err)
	}

	return &TSNetListener{srv: srv, ln: ln}, nil
}

// Serve runs an HTTP server on the tsnet listener until ctx is canceled.
func (t *TSNetListener) Serve(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	err := srv.Serve(t.ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close tears down the tailnet listener and node.
func (t *TSNetListener) Close() error {
	t.ln.Close()
	return t.srv.Close()
}
