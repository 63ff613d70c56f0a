package telemetry

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	ServiceName     = "subscription-keeper"
	TimestampFormat = "2006-01-02T15:04:05.000Z07:00"
)

var ErrInvalidLogLevel = fmt.Errorf("invalid log level")

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel, nil
	case "", "info":
		return logrus.InfoLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("%w: %q", ErrInvalidLogLevel, level)
	}
}

// NewLogger returns a text logger with full timestamps writing to out.
func NewLogger(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: TimestampFormat,
	})

	return logger, nil
}

// WrapLogger scopes a logger to a namespace within the service.
func WrapLogger(logger logrus.FieldLogger, ns string) logrus.FieldLogger {
	return logger.WithFields(logrus.Fields{
		"service":   ServiceName,
		"component": ns,
	})
}
