package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. prod uses JSON lines, everything else the
// text formatter with full timestamps.
func New(env, level, service string) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if strings.EqualFold(env, "prod") || strings.EqualFold(env, "production") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log.WithField("service", service)
}
