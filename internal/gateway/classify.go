package gateway

import (
	"net"
	"net/http"
	"strings"
)

// ConnectionClass is the trust/transport tag assigned to a connection at
// accept time (§4.C). Immutable for the connection's lifetime.
type ConnectionClass string

const (
	ClassLocal    ConnectionClass = "local"
	ClassTunneled ConnectionClass = "cloudflare"
	ClassVPN      ConnectionClass = "vpn"
	ClassDirect   ConnectionClass = "direct"
)

// vpnCIDR is the Tailscale/CGNAT overlay range used as a fallback
// classifier when the Tailscale-User header is absent.
var vpnCIDR *net.IPNet

func init() {
	_, vpnCIDR, _ = net.ParseCIDR("100.64.0.0/10")
}

// Classify maps a peer address and request headers to a ConnectionClass,
// applying the rules in order: Cloudflare header, VPN overlay, loopback,
// else local (conservative default — unclassifiable upstream traffic is
// still rate-limited as local rather than granted a bypass).
//
// effectivePeer is the peer address that should be recorded for the
// connection: CF-Connecting-IP replaces the raw socket peer when present.
func Classify(peer string, headers http.Header) (class ConnectionClass, effectivePeer string) {
	if cf := headers.Get("CF-Connecting-IP"); cf != "" {
		return ClassTunneled, cf
	}
	if headers.Get("Tailscale-User") != "" || isVPNAddr(peer) {
		return ClassVPN, peer
	}
	if isLoopback(peer) {
		return ClassLocal, peer
	}
	return ClassLocal, peer
}

func isVPNAddr(peer string) bool {
	host := stripPort(peer)
	ip := net.ParseIP(host)
	return ip != nil && vpnCIDR != nil && vpnCIDR.Contains(ip)
}

func isLoopback(peer string) bool {
	host := stripPort(peer)
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
}

// isLoopbackHost reports whether a request's Host header resolves to a
// loopback address, used by the local accept listener to refuse
// non-loopback Host headers during the WS handshake (§4.C, §6).
func isLoopbackHost(host string) bool {
	h := stripPort(host)
	if h == "localhost" {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
