// File: api/errors.go
// Author: yoyo-hu
//
// Sentinel errors shared across core components.

package api

import "errors"

var (
	ErrServerBusy     = errors.New("server busy")
	ErrDuplicateTimer = errors.New("timer: duplicate fd")
	ErrPoolClosed     = errors.New("task pool closed")
	ErrInvalidPort    = errors.New("port must be in [1024, 65535]")
	ErrTooManyConns   = errors.New("connection table at capacity")
)
