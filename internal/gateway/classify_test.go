package gateway

import (
	"net/http"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		peer      string
		headers   http.Header
		wantClass ConnectionClass
		wantPeer  string
	}{
		{
			name:      "cloudflare header wins",
			peer:      "203.0.113.9:5555",
			headers:   http.Header{"CF-Connecting-IP": []string{"198.51.100.1"}},
			wantClass: ClassTunneled,
			wantPeer:  "198.51.100.1",
		},
		{
			name:      "tailscale user header",
			peer:      "100.64.1.2:5555",
			headers:   http.Header{"Tailscale-User": []string{"alice@example.com"}},
			wantClass: ClassVPN,
			wantPeer:  "100.64.1.2:5555",
		},
		{
			name:      "overlay CIDR without header",
			peer:      "100.100.1.2:9090",
			headers:   http.Header{},
			wantClass: ClassVPN,
			wantPeer:  "100.100.1.2:9090",
		},
		{
			name:      "loopback peer",
			peer:      "127.0.0.1:4444",
			headers:   http.Header{},
			wantClass: ClassLocal,
			wantPeer:  "127.0.0.1:4444",
		},
		{
			name:      "unclassified peer falls back to local",
			peer:      "203.0.113.9:6666",
			headers:   http.Header{},
			wantClass: ClassLocal,
			wantPeer:  "203.0.113.9:6666",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, peer := Classify(tt.peer, tt.headers)
			if class != tt.wantClass {
				t.Errorf("class = %v, want %v", class, tt.wantClass)
			}
			if peer != tt.wantPeer {
				t.Errorf("peer = %v, want %v", peer, tt.wantPeer)
			}
		})
	}
}

func TestIsLoopbackHost(t *testing.T) {
	if !isLoopbackHost("localhost:8080") {
		t.Error("localhost:8080 should be loopback")
	}
	if !isLoopbackHost("127.0.0.1:8080") {
		t.Error("127.0.0.1:8080 should be loopback")
	}
	if isLoopbackHost("example.com:8080") {
		t.Error("example.com:8080 should not be loopback")
	}
}
