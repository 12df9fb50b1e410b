// File: internal/httpserve/response.go
// Author: yoyo-hu
//
// Response assembly and routing. Grounded on the original HttpResponse's
// split between a static-file body (mmap'd, served with a Content-Type
// lookup table) and an error-page fallback; the /api/ dynamic route and
// /debug/metrics are this repository's addition, backed by the injected
// SQL Pool and Control collaborators respectively.

package httpserve

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/yoyo-hu/webserver/api"
)

type response struct {
	status int
	reason string
	header map[string]string
	body   []byte
}

func route(req Request, resolver api.StaticResolver, pool api.SQLPool, control api.Control, log api.Logger) response {
	if req.Malformed {
		return newResponse(400, "Bad Request", []byte("<html><body>400 Bad Request</body></html>"), "text/html")
	}
	if req.Method != "GET" && req.Method != "HEAD" {
		return newResponse(400, "Bad Request", []byte("<html><body>400 Bad Request</body></html>"), "text/html")
	}

	switch {
	case req.Path == "/debug/metrics":
		return routeMetrics(control)
	case strings.HasPrefix(req.Path, "/api/"):
		return routeAPI(req, pool, log)
	default:
		return routeStatic(req, resolver)
	}
}

func routeStatic(req Request, resolver api.StaticResolver) response {
	path := req.Path
	if path == "/" {
		path = "/index.html"
	}
	if resolver == nil {
		return newResponse(404, "Not Found", []byte("<html><body>404 Not Found</body></html>"), "text/html")
	}
	body, contentType, ok := resolver.Resolve(path)
	if !ok {
		return newResponse(404, "Not Found", []byte("<html><body>404 Not Found</body></html>"), "text/html")
	}
	return newResponse(200, "OK", body, contentType)
}

func routeAPI(req Request, pool api.SQLPool, log api.Logger) response {
	if pool == nil {
		return newResponse(503, "Service Unavailable", []byte(`{"error":"database unavailable"}`), "application/json")
	}
	var probe int
	if err := pool.QueryRow(context.Background(), "SELECT 1", []any{&probe}); err != nil {
		if log != nil {
			log.Warnf("api route %s: db probe failed: %v", req.Path, err)
		}
		return newResponse(503, "Service Unavailable", []byte(`{"error":"database unavailable"}`), "application/json")
	}
	body := fmt.Sprintf(`{"path":%q,"status":"ok"}`, req.Path)
	return newResponse(200, "OK", []byte(body), "application/json")
}

// routeMetrics renders the dispatcher's live metrics registry as JSON.
// Absent a Control collaborator, the route doesn't exist.
func routeMetrics(control api.Control) response {
	if control == nil {
		return newResponse(404, "Not Found", []byte("<html><body>404 Not Found</body></html>"), "text/html")
	}
	snap := control.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:%q", k, fmt.Sprint(snap[k]))
	}
	b.WriteByte('}')
	return newResponse(200, "OK", []byte(b.String()), "application/json")
}

func newResponse(status int, reason string, body []byte, contentType string) response {
	return response{
		status: status,
		reason: reason,
		body:   body,
		header: map[string]string{"Content-Type": contentType},
	}
}

// Bytes renders the full HTTP/1.1 response (status line, headers, body)
// into dst's backing array, appending and returning the grown slice.
func (r response) Bytes(dst []byte, keepAlive bool) []byte {
	dst = append(dst, "HTTP/1.1 "...)
	dst = append(dst, strconv.Itoa(r.status)...)
	dst = append(dst, ' ')
	dst = append(dst, r.reason...)
	dst = append(dst, "\r\n"...)

	for k, v := range r.header {
		dst = append(dst, k...)
		dst = append(dst, ": "...)
		dst = append(dst, v...)
		dst = append(dst, "\r\n"...)
	}
	dst = append(dst, "Content-Length: "...)
	dst = append(dst, strconv.Itoa(len(r.body))...)
	dst = append(dst, "\r\n"...)

	if keepAlive {
		dst = append(dst, "Connection: keep-alive\r\n"...)
	} else {
		dst = append(dst, "Connection: close\r\n"...)
	}
	dst = append(dst, "\r\n"...)
	dst = append(dst, r.body...)
	return dst
}
