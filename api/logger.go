// File: api/logger.go
// Author: yoyo-hu
//
// Logger collaborator: every core component receives one via constructor
// injection rather than reaching for a package-level singleton.

package api

// Logger is the minimal leveled-logging surface the core depends on.
// internal/obslog.Component returns a *logrus.Entry, which satisfies this.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
