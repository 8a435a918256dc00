package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TenantIDKey  contextKey = "tenant_id"
)

// contextFields are copied from the context onto every record, in this order.
var contextFields = []contextKey{RequestIDKey, UserIDKey, TenantIDKey}

// Config holds logger configuration
type Config struct {
	Level       string // debug, info, warn, error
	Format      string // json, text
	Output      io.Writer
	AddSource   bool
	ServiceName string
	Environment string
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Format:      "json",
		Output:      os.Stdout,
		ServiceName: "service-desk-sla",
		Environment: "development",
	}
}

// NewLogger creates a structured logger that stamps every record with the
// service identity and the request, user and tenant found in its context.
// Unknown levels fall back to info.
func NewLogger(cfg Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(a.Key, a.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			return a
		},
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
	})
	return slog.New(contextHandler{handler})
}

// contextHandler copies request-scoped identifiers from the context.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(contextAttrs(ctx)...)
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range contextFields {
		if value, ok := ctx.Value(key).(string); ok && value != "" {
			attrs = append(attrs, slog.String(string(key), value))
		}
	}
	return attrs
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds a user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithTenantID adds a tenant ID to the context
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDKey).(string)
	return requestID
}

// LogPanic logs a recovered panic value with the current goroutine's stack.
func LogPanic(ctx context.Context, logger *slog.Logger, panicValue any) {
	logger.ErrorContext(ctx, "panic recovered",
		"panic", panicValue,
		"stack_trace", string(debug.Stack()),
	)
}

// RequestRecord describes one served HTTP request.
type RequestRecord struct {
	Method       string
	Path         string
	StatusCode   int
	Duration     time.Duration
	BytesWritten int64
	ClientIP     string
	UserAgent    string
}

// LogRequest logs a served request at a level derived from its status.
func LogRequest(ctx context.Context, logger *slog.Logger, rec RequestRecord) {
	level := slog.LevelInfo
	switch {
	case rec.StatusCode >= 500:
		level = slog.LevelError
	case rec.StatusCode >= 400:
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "http request",
		"method", rec.Method,
		"path", rec.Path,
		"status_code", rec.StatusCode,
		"duration_ms", rec.Duration.Milliseconds(),
		"bytes_written", rec.BytesWritten,
		"client_ip", rec.ClientIP,
		"user_agent", rec.UserAgent,
	)
}
