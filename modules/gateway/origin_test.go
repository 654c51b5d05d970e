package gateway

import "testing"

func TestOriginPolicy(t *testing.T) {
	allowList := []string{"https://app.example.com", " http://localhost:3000/ "}

	tests := []struct {
		name       string
		production bool
		origin     string
		want       bool
	}{
		{name: "listed", origin: "https://app.example.com", want: true},
		{name: "listed in production", production: true, origin: "https://app.example.com", want: true},
		{name: "trailing slash trimmed", production: true, origin: "http://localhost:3000", want: true},
		{name: "unlisted", origin: "https://evil.example.com", want: false},
		{name: "any localhost port in development", origin: "http://localhost:5173", want: true},
		{name: "loopback ip in development", origin: "https://127.0.0.1", want: true},
		{name: "localhost port in production", production: true, origin: "http://localhost:5173", want: false},
		{name: "localhost lookalike", origin: "http://localhost.evil.com", want: false},
		{name: "no origin in development", origin: "", want: true},
		{name: "no origin in production", production: true, origin: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewOriginPolicy(allowList, tt.production)
			if got := p.Allowed(tt.origin); got != tt.want {
				t.Errorf("Allowed(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
