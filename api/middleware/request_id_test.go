package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDEchoesValidHeader(t *testing.T) {
	handler := RequestID(nil)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if got := resp.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected echoed id, got %q", got)
	}
}

func TestRequestIDReplacesUnsafeHeader(t *testing.T) {
	for _, raw := range []string{"bad\nid", strings.Repeat("x", maxRequestIDLen+1), ""} {
		handler := RequestID(nil)(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, raw)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)

		got := resp.Header().Get(requestIDHeader)
		if got == "" || got == raw {
			t.Fatalf("expected generated id for %q, got %q", raw, got)
		}
	}
}

func TestRecovererReturnsInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "boom") {
		t.Fatal("panic value leaked to client")
	}
}
