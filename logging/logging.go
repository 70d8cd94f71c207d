package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

// InitLogger configures the shared logger. Packages grab the logger at init
// time through GetLogger, so this only mutates it in place.
func InitLogger(level logrus.Level) {
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(level)
}

// GetLogger returns the process-wide logger.
func GetLogger() *logrus.Logger {
	return logger
}

// ParseLevel resolves the configured level name. Debug mode always wins.
func ParseLevel(name string, debug bool) logrus.Level {
	if debug {
		return logrus.DebugLevel
	}
	level, err := logrus.ParseLevel(strings.TrimSpace(name))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
