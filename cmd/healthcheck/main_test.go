package main

import "testing"

func TestHealthURL(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want string
	}{
		{name: "default", addr: "", want: "http://localhost:8080/healthz"},
		{name: "bare port", addr: ":9090", want: "http://localhost:9090/healthz"},
		{name: "host and port", addr: "0.0.0.0:8081", want: "http://0.0.0.0:8081/healthz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HTTP_ADDR", tt.addr)
			if got := healthURL(); got != tt.want {
				t.Errorf("healthURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
