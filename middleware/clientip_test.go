package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/httpcore/middleware"
)

func TestClientIPExtraction(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "cloudflare header wins",
			headers: map[string]string{"CF-Connecting-IP": "203.0.113.5", "X-Forwarded-For": "198.51.100.1"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.5",
		},
		{
			name:    "forwarded-for chain takes leftmost",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.2, 10.0.0.3"},
			remote:  "10.0.0.1:1234",
			want:    "198.51.100.1",
		},
		{
			name:    "real-ip fallback",
			headers: map[string]string{"X-Real-IP": "192.0.2.9"},
			remote:  "10.0.0.1:1234",
			want:    "192.0.2.9",
		},
		{
			name:   "remote addr when no headers",
			remote: "192.0.2.1:5678",
			want:   "192.0.2.1",
		},
		{
			name:    "invalid header falls through to remote addr",
			headers: map[string]string{"X-Forwarded-For": "not-an-ip"},
			remote:  "192.0.2.1:5678",
			want:    "192.0.2.1",
		},
		{
			name:    "ipv6 address",
			headers: map[string]string{"X-Real-IP": "2001:db8::1"},
			remote:  "10.0.0.1:1234",
			want:    "2001:db8::1",
		},
		{
			name:    "unspecified address rejected",
			headers: map[string]string{"X-Real-IP": "0.0.0.0"},
			remote:  "192.0.2.1:5678",
			want:    "192.0.2.1",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var got string
			h := middleware.ClientIP()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = middleware.GetClientIP(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClientIPStoreInHeader(t *testing.T) {
	t.Parallel()

	h := middleware.ClientIPWithConfig(middleware.ClientIPConfig{
		StoreInHeader: true,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4242"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "192.0.2.7", w.Header().Get("X-Client-IP"))
}

func TestClientIPValidateFunc(t *testing.T) {
	t.Parallel()

	h := middleware.ClientIPWithConfig(middleware.ClientIPConfig{
		ValidateFunc: func(r *http.Request, ip string) error {
			if ip == "203.0.113.66" {
				return errors.New("blocked")
			}
			return nil
		},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "203.0.113.66")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
