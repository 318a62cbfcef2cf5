package config

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger at the configured level. Output goes
// to w, which is stderr in every mode so stdout stays free for text and
// protocol messages.
func NewLogger(s Settings, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
