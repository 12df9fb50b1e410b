// File: internal/obslog/log.go
// Author: yoyo-hu
//
// Structured logging setup, grounded directly on fdd.go's logrus +
// nested-logrus-formatter configuration (hidden keys, component/category
// field ordering), generalized into a constructor so each component gets
// its own *logrus.Entry instead of a package-level singleton.

package obslog

import (
	"os"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
)

// New builds a *logrus.Logger formatted the way fdd.go configures its
// console logger, parsing level (one of logrus.AllLevels' string names;
// invalid values fall back to Info).
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&nested.Formatter{
		HideKeys:    true,
		FieldsOrder: []string{"component", "category"},
	})
	log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// Component returns a *logrus.Entry pre-tagged with name, satisfying
// api.Logger, for constructor injection into a single collaborator.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	return log.WithField("component", name)
}
