// File: internal/httpserve/request.go
// Author: yoyo-hu
//
// Minimal HTTP/1.1 request-line and header parser, grounded on the
// original HttpRequest::ParseRequestLine_/ParseHeader_ split (state
// machine over a line buffer), reduced to what the core needs: method,
// path, version and a Connection header lookup.

package httpserve

import (
	"bytes"
	"strings"
)

// Request is a parsed HTTP/1.1 request line plus headers of interest.
type Request struct {
	Method    string
	Path      string
	Version   string
	KeepAlive bool
	Malformed bool
}

var crlf = []byte("\r\n")

// parseRequest scans buf for a complete request (request line, headers,
// terminating blank line). ok is false when buf holds an incomplete
// request and the caller should wait for more bytes.
func parseRequest(buf []byte) (Request, int, bool) {
	end := bytes.Index(buf, []byte("\r\n\r\n"))
	if end == -1 {
		return Request{}, 0, false
	}
	headerBlock := buf[:end]
	consumed := end + 4

	lines := bytes.Split(headerBlock, crlf)
	if len(lines) == 0 {
		return Request{Malformed: true}, consumed, true
	}

	reqLine := strings.Fields(string(lines[0]))
	if len(reqLine) != 3 {
		return Request{Malformed: true}, consumed, true
	}

	req := Request{
		Method:  reqLine[0],
		Path:    reqLine[1],
		Version: reqLine[2],
	}

	// HTTP/1.1 defaults to keep-alive; HTTP/1.0 defaults to close. An
	// explicit Connection header overrides either default.
	req.KeepAlive = req.Version == "HTTP/1.1"

	for _, line := range lines[1:] {
		name, value, ok := splitHeader(string(line))
		if !ok {
			continue
		}
		if strings.EqualFold(name, "Connection") {
			switch strings.ToLower(strings.TrimSpace(value)) {
			case "keep-alive":
				req.KeepAlive = true
			case "close":
				req.KeepAlive = false
			}
		}
	}

	if req.Method == "" || req.Path == "" {
		req.Malformed = true
	}
	return req, consumed, true
}

func splitHeader(line string) (name, value string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	return line[:i], strings.TrimSpace(line[i+1:]), true
}
