package httpserve

import (
	"strings"
	"testing"
)

type fakeControl struct {
	snap map[string]any
}

func (f *fakeControl) Set(key string, value any) {
	if f.snap == nil {
		f.snap = make(map[string]any)
	}
	f.snap[key] = value
}

func (f *fakeControl) Snapshot() map[string]any {
	return f.snap
}

func TestRouteStaticNotFound(t *testing.T) {
	resp := routeStatic(Request{Path: "/missing.html"}, NewDirResolver(t.TempDir()))
	if resp.status != 404 {
		t.Fatalf("expected 404, got %d", resp.status)
	}
}

func TestRouteAPIWithoutPoolIsUnavailable(t *testing.T) {
	resp := routeAPI(Request{Path: "/api/ping"}, nil, nil)
	if resp.status != 503 {
		t.Fatalf("expected 503, got %d", resp.status)
	}
}

func TestRouteRejectsNonGetMethods(t *testing.T) {
	resp := route(Request{Method: "POST", Path: "/", Version: "HTTP/1.1"}, nil, nil, nil, nil)
	if resp.status != 400 {
		t.Fatalf("expected 400 for unsupported method, got %d", resp.status)
	}
}

func TestRouteMetricsWithoutControlIsNotFound(t *testing.T) {
	resp := route(Request{Method: "GET", Path: "/debug/metrics", Version: "HTTP/1.1"}, nil, nil, nil, nil)
	if resp.status != 404 {
		t.Fatalf("expected 404 without a Control collaborator, got %d", resp.status)
	}
}

func TestRouteMetricsRendersSnapshot(t *testing.T) {
	control := &fakeControl{}
	control.Set("connections", 3)
	resp := route(Request{Method: "GET", Path: "/debug/metrics", Version: "HTTP/1.1"}, nil, nil, control, nil)
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d", resp.status)
	}
	if !strings.Contains(string(resp.body), `"connections":"3"`) {
		t.Fatalf("expected connections in snapshot body, got %q", resp.body)
	}
}

func TestResponseBytesIncludesStatusLineAndBody(t *testing.T) {
	resp := newResponse(200, "OK", []byte("hello"), "text/plain")
	out := string(resp.Bytes(nil, true))
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("unexpected status line: %q", out)
	}
	if !strings.Contains(out, "Connection: keep-alive\r\n") {
		t.Fatalf("expected keep-alive header: %q", out)
	}
	if !strings.HasSuffix(out, "\r\n\r\nhello") {
		t.Fatalf("expected body after blank line: %q", out)
	}
}
