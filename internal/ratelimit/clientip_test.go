// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ratelimit

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{"X-Forwarded-For single", map[string]string{"X-Forwarded-For": "203.0.113.1"}, "192.168.1.1:12345", "203.0.113.1"},
		{"X-Forwarded-For chain", map[string]string{"X-Forwarded-For": "203.0.113.1, 192.168.1.1, 10.0.0.1"}, "127.0.0.1:12345", "203.0.113.1"},
		{"X-Forwarded-For padded", map[string]string{"X-Forwarded-For": "  203.0.113.5  "}, "192.168.1.1:12345", "203.0.113.5"},
		{"X-Real-IP", map[string]string{"X-Real-IP": "203.0.113.2"}, "192.168.1.1:12345", "203.0.113.2"},
		{"RemoteAddr", nil, "192.168.1.100:54321", "192.168.1.100"},
		{"RemoteAddr without port", nil, "192.168.1.100", "192.168.1.100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			req.RemoteAddr = tt.remoteAddr

			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
