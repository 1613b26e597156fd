package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"rentstats/server/config"
)

// newLogger creates the process logger. When a log file is configured the
// JSON output also goes to a rotated file.
func newLogger(cfg *config.Config) (*logrus.Logger, io.Closer) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
		logger.WithField("level", cfg.Logging.Level).Warn("Unknown log level, using info")
	}
	logger.SetLevel(level)

	if cfg.Logging.File == "" {
		return logger, io.NopCloser(nil)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
		logger.WithError(err).Warn("Could not create log directory, logging to stdout only")
		return logger, io.NopCloser(nil)
	}

	fileLogger := &lumberjack.Logger{
		Filename:   cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
		Compress:   true,
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, fileLogger))

	return logger, fileLogger
}
