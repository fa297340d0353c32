package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"gymops.dev/internal/obs"
)

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/socios", nil))
	if seen == "" {
		t.Fatal("expected a generated request id in context")
	}
	if got := rec.Header().Get("X-Request-Id"); got != seen {
		t.Fatalf("header %q does not match context id %q", got, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/socios", nil)
	req.Header.Set("X-Request-Id", "client-supplied")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "client-supplied" {
		t.Fatalf("expected client id to be kept, got %q", seen)
	}
}

func TestMiddlewareChainForwardsFlush(t *testing.T) {
	// Same nesting Handler() uses around the SSE route.
	h := obs.Instrument(RequestID(LoggingJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("writer lost http.Flusher inside the chain")
		}
		_, _ = w.Write([]byte("data: ping\n\n"))
		f.Flush()
	}))))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sedes/1/aforo/stream", nil))
	if !rec.Flushed {
		t.Fatal("Flush did not propagate to the underlying writer")
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing frame options header")
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:4411"
	if got := clientIP(req); got != "10.0.0.9" {
		t.Fatalf("expected remote host, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		token   string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc", "abc", false},
		{"", "", true},
		{"Basic dXNlcg==", "", true},
		{"Bearer   ", "", true},
	}
	for _, tc := range cases {
		token, err := extractBearerToken(tc.header)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.header)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.header, err)
			continue
		}
		if token != tc.token {
			t.Errorf("%q: expected token %q, got %q", tc.header, tc.token, token)
		}
	}
}

func TestIsPublicPath(t *testing.T) {
	for _, p := range []string{"/v1/auth/login", "/healthz", "/metrics"} {
		if !isPublicPath(p) {
			t.Errorf("%s should be public", p)
		}
	}
	for _, p := range []string{"/v1/socios", "/v1/auth/logout", "/"} {
		if isPublicPath(p) {
			t.Errorf("%s should not be public", p)
		}
	}
}
