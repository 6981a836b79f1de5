// Package logctx carries a logrus logger, and the trace id it logs with,
// through a context.Context.
package logctx

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/crypto/ssh/terminal"
)

type IdProviderT func() string

func DefaultIdProvider() string {
	return uuid.New().String()
}

var IdProvider IdProviderT = DefaultIdProvider

const LoggerKey = "logger"

type TraceIdKey string

// RequestTraceIdKey is the trace ID key for requests.
const RequestTraceIdKey TraceIdKey = "trace_id"

// ProcessTraceIdKey is the trace ID key for work done by the process outside of a request,
// like warming schema caches at startup.
const ProcessTraceIdKey TraceIdKey = "process_trace_id"

// MissingTraceIdKey is the key that will be present to indicate tracing is misconfigured.
const MissingTraceIdKey TraceIdKey = "missing_trace_id"

func UnconfiguredLogger() *logrus.Entry {
	return logrus.New().WithField("unconfigured_logger", "true")
}

// WithLogger returns a new context that adds a logger which
// can be retrieved with Logger(Context).
func WithLogger(c context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(c, LoggerKey, logger)
}

// WithTracingLogger stiches together WithTraceId and WithLogger.
// It extracts the ActiveTraceId and sets it on the logger.
func WithTracingLogger(c context.Context) context.Context {
	logger := Logger(c)
	tkey, trace := ActiveTraceId(c)
	logger = logger.WithField(string(tkey), trace)
	return context.WithValue(c, LoggerKey, logger)
}

func WithTraceId(c context.Context, key TraceIdKey) context.Context {
	return context.WithValue(c, key, IdProvider())
}

func LoggerOrNil(c context.Context) *logrus.Entry {
	logger, _ := c.Value(LoggerKey).(*logrus.Entry)
	return logger
}

func Logger(c context.Context) *logrus.Entry {
	if logger, ok := c.Value(LoggerKey).(*logrus.Entry); ok {
		return logger
	}
	logger := UnconfiguredLogger()
	logger.Warn(
		"Logger called with no logger in context. " +
			"It should always be there to ensure consistent logs from a single logger")
	return logger
}

// ActiveTraceId returns the first valid trace value and type from the given context,
// or MissingTraceIdKey if there is none.
// The returned trace value will always be a string; if the value is not string-like,
// it will have '!BADVALUE-' prepended.
func ActiveTraceId(c context.Context) (TraceIdKey, string) {
	if tv := c.Value(RequestTraceIdKey); tv != nil {
		return RequestTraceIdKey, toTraceVal(tv)
	}
	if tv := c.Value(ProcessTraceIdKey); tv != nil {
		return ProcessTraceIdKey, toTraceVal(tv)
	}
	return MissingTraceIdKey, "no-trace-id-in-context"
}

func toTraceVal(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	if r := reflect.ValueOf(v); r.Kind() == reflect.String {
		return r.String()
	}
	return fmt.Sprintf("!BADVALUE-%v", v)
}

func AddTo(c context.Context, fields logrus.Fields) context.Context {
	return WithLogger(c, Logger(c).WithFields(fields))
}

type NewLoggerInput struct {
	// Level is the logging level name ('debug', 'info', 'warning', 'error').
	// Empty means info.
	Level string
	// Format should be empty, 'json' or 'text'.
	// If empty, use 'json' if File is set, text if IsTty, or 'json' otherwise.
	Format string
	// File is the filename to log to.
	File string
	// Out specifies the stream to log to, and supercedes File.
	Out io.Writer
	// Fields are additional fields to add to the logger.
	Fields logrus.Fields
}

func NewLogger(cfg NewLoggerInput) (*logrus.Entry, error) {
	logger := logrus.New()
	if cfg.Out != nil {
		logger.SetOutput(cfg.Out)
	} else if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, err
		}
		logger.SetOutput(file)
	} else if IsTty() {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}

	if cfg.Level != "" {
		lvl, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(lvl)
	}

	switch {
	case cfg.Format == "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case cfg.Format == "text":
		logger.SetFormatter(&logrus.TextFormatter{})
	case cfg.Format != "":
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	case cfg.File == "" && cfg.Out == nil && IsTty():
		logger.SetFormatter(&logrus.TextFormatter{})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger.WithFields(cfg.Fields), nil
}

func IsTty() bool {
	return terminal.IsTerminal(int(os.Stdout.Fd()))
}

// WithNullLogger adds the logger from test.NewNullLogger into the given context
// (default c to context.Background). Use the hook to get the log messages.
// See https://github.com/sirupsen/logrus#testing for examples.
func WithNullLogger(c context.Context) (context.Context, *test.Hook) {
	if c == nil {
		c = context.Background()
	}
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	c2 := WithLogger(c, logger.WithField("testlogger", true))
	return c2, hook
}
