package feast

import (
	"testing"
	"time"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		wantHost string
		wantPort int
	}{
		{"localhost:6565", "localhost", 6565},
		{"grpc://feast.internal:6566", "feast.internal", 6566},
		{"feast.internal", "feast.internal", 0},
		{"host:notaport", "host:notaport", 0},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			host, port := parseEndpoint(tt.endpoint)
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("parseEndpoint(%q) = (%q, %d), want (%q, %d)",
					tt.endpoint, host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestFromSDKValue(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"nil", nil, nil},
		{"string", "abc", "abc"},
		{"int64", int64(3), float64(3)},
		{"float32", float32(0.5), float64(0.5)},
		{"float64", 0.7, 0.7},
		{"bool true", true, float64(1)},
		{"bytes", []byte("x"), "x"},
		{"numeric string fallback", struct{ s string }{"ignored"}, "{ignored}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fromSDKValue(tt.in); got != tt.want {
				t.Errorf("fromSDKValue(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &ClientConfig{}
	WithTimeout(3 * time.Second)(cfg)
	WithAuth(&AuthConfig{Type: "static", Token: "t"})(cfg)

	if cfg.Timeout != 3*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
	if cfg.Auth == nil || cfg.Auth.Token != "t" {
		t.Errorf("auth = %+v", cfg.Auth)
	}
}
