//go:build linux
// +build linux

package dispatcher

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/yoyo-hu/webserver/api"
	"github.com/yoyo-hu/webserver/internal/httpserve"
	"github.com/yoyo-hu/webserver/internal/metrics"
)

func newTestServer(t *testing.T, port int, trig TriggerMode) *Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("hello dispatcher"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	resolver := httpserve.NewDirResolver(dir)

	srv, err := New(Config{
		Port:          port,
		TriggerMode:   trig,
		IdleTimeoutMs: 0,
		WorkerCount:   2,
		NewConn: func() api.HTTPConn {
			return httpserve.New(resolver, nil, nil, nil)
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func getRequest(t *testing.T, port int, keepAlive bool) string {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "127.0.0.1:"+strconv.Itoa(port), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	connHeader := "keep-alive"
	if !keepAlive {
		connHeader = "close"
	}
	if _, err := conn.Write([]byte("GET / HTTP/1.1\r\nConnection: " + connHeader + "\r\n\r\n")); err != nil {
		t.Fatalf("write request: %v", err)
	}

	r := bufio.NewReader(conn)
	var b strings.Builder
	for {
		line, err := r.ReadString('\n')
		b.WriteString(line)
		if err != nil || line == "\r\n" {
			break
		}
	}
	body := make([]byte, 64)
	n, _ := r.Read(body)
	b.Write(body[:n])
	return b.String()
}

func TestServeStaticRequestLevelTriggered(t *testing.T) {
	srv := newTestServer(t, 19581, TriggerLevelBoth)
	resp := getRequest(t, 19581, false)
	if !strings.Contains(resp, "200 OK") {
		t.Fatalf("expected 200 OK, got %q", resp)
	}
	if !strings.Contains(resp, "hello dispatcher") {
		t.Fatalf("expected body in response, got %q", resp)
	}

	deadline := time.Now().Add(time.Second)
	for srv.ConnectionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected connection count to drop to 0 after close, got %d", srv.ConnectionCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServeStaticRequestEdgeTriggered(t *testing.T) {
	srv := newTestServer(t, 19582, TriggerEdgeBoth)
	resp := getRequest(t, 19582, false)
	if !strings.Contains(resp, "200 OK") {
		t.Fatalf("expected 200 OK, got %q", resp)
	}
	_ = srv
}

func TestIdleConnectionEvictedByTimer(t *testing.T) {
	dir := t.TempDir()
	resolver := httpserve.NewDirResolver(dir)
	srv, err := New(Config{
		Port:          19584,
		TriggerMode:   TriggerLevelBoth,
		IdleTimeoutMs: 100,
		WorkerCount:   2,
		NewConn: func() api.HTTPConn {
			return httpserve.New(resolver, nil, nil, nil)
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)

	conn, err := net.DialTimeout("tcp", "127.0.0.1:19584", time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.ConnectionCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected accepted connection to be tabled")
		}
		time.Sleep(5 * time.Millisecond)
	}

	deadline = time.Now().Add(2 * time.Second)
	for srv.ConnectionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected idle connection to be evicted by the timer")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNoConnectionsBeforeFirstClient(t *testing.T) {
	// The busy-reject path past MaxFd is not exercised here: MaxFd is
	// large (65536), so a direct test would need that many sockets. The
	// table's own capacity check is covered by internal/conntable's
	// TestInsertEnforcesMaxFd.
	srv := newTestServer(t, 19583, TriggerLevelBoth)
	if srv.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections before any client, got %d", srv.ConnectionCount())
	}
}

func TestMetricsReportsAcceptedConnections(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	resolver := httpserve.NewDirResolver(dir)
	reg := metrics.New()

	srv, err := New(Config{
		Port:        19585,
		TriggerMode: TriggerLevelBoth,
		WorkerCount: 2,
		Metrics:     reg,
		NewConn: func() api.HTTPConn {
			return httpserve.New(resolver, nil, reg, nil)
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)

	getRequest(t, 19585, false)

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := reg.Snapshot()
		if accepted, _ := snap["accepted_total"].(int64); accepted >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected accepted_total >= 1 in metrics snapshot, got %v", reg.Snapshot())
		}
		time.Sleep(10 * time.Millisecond)
	}

	body := metricsBody(t, 19585)
	if !strings.Contains(body, `"accepted_total"`) {
		t.Fatalf("expected accepted_total in /debug/metrics body, got %q", body)
	}
}

func metricsBody(t *testing.T, port int) string {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "127.0.0.1:"+strconv.Itoa(port), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write([]byte("GET /debug/metrics HTTP/1.1\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatalf("write request: %v", err)
	}
	r := bufio.NewReader(conn)
	var b strings.Builder
	for {
		line, err := r.ReadString('\n')
		b.WriteString(line)
		if err != nil || line == "\r\n" {
			break
		}
	}
	body := make([]byte, 512)
	n, _ := r.Read(body)
	b.Write(body[:n])
	return b.String()
}
