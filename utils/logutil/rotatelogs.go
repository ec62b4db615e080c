package logutil

import (
	"io"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

var DefaultLogDir = "logs"
var DefaultRotateTime = 24 * time.Hour
var DefaultMaxAge = 30 * 24 * time.Hour
var DefaultFormatter = &logrus.JSONFormatter{
	TimestampFormat: "2006-01-02 15:04:05",
}

var DefaultLogLevel = logrus.InfoLevel

type RotateLogger struct {
	*logrus.Logger
	writer io.Closer
}

type RotateLoggerConfig struct {
	LogDir     string
	RotateTime time.Duration
	MaxAge     time.Duration
	Formatter  logrus.Formatter
	LogLevel   logrus.Level
	// Console additionally writes every entry to stderr.
	Console bool
}

func NewRotateLogger(config *RotateLoggerConfig) (*RotateLogger, error) {
	if config == nil {
		config = &RotateLoggerConfig{}
	}
	if config.LogDir == "" {
		config.LogDir = DefaultLogDir
	}
	if config.RotateTime == 0 {
		config.RotateTime = DefaultRotateTime
	}
	if config.MaxAge == 0 {
		config.MaxAge = DefaultMaxAge
	}
	writer, err := rotatelogs.New(
		filepath.Join(config.LogDir, "%Y%m%d.log"),
		rotatelogs.WithLinkName(filepath.Join(config.LogDir, "latest.log")),
		rotatelogs.WithRotationTime(config.RotateTime),
		rotatelogs.WithMaxAge(config.MaxAge),
	)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	if config.Console {
		logger.SetOutput(io.MultiWriter(writer, os.Stderr))
	} else {
		logger.SetOutput(writer)
	}
	if config.Formatter == nil {
		config.Formatter = DefaultFormatter
	}
	logger.SetFormatter(config.Formatter)
	// logrus.PanicLevel is the zero Level, so it doubles as "unset".
	if config.LogLevel == 0 {
		config.LogLevel = DefaultLogLevel
	}
	logger.SetLevel(config.LogLevel)
	return &RotateLogger{Logger: logger, writer: writer}, nil
}

// Close closes the rotating file writer.
func (l *RotateLogger) Close() error {
	return l.writer.Close()
}

// NewConsoleLogger returns a text logger on stderr at level.
func NewConsoleLogger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(level)
	return logger
}

// ParseLevel is logrus.ParseLevel with DefaultLogLevel for an empty name.
func ParseLevel(name string) (logrus.Level, error) {
	if name == "" {
		return DefaultLogLevel, nil
	}
	return logrus.ParseLevel(name)
}
