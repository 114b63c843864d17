package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

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
		AddSource:   false,
		ServiceName: "complaint-desk-bff",
		Environment: "development",
	}
}

// Redacted replaces the value of sensitive attributes.
const Redacted = "REDACTED"

// sensitiveKeys are attribute keys whose values never reach the output. The
// desk forwards bearer tokens upstream, so they travel through many calls.
var sensitiveKeys = map[string]bool{
	"token":         true,
	"access_token":  true,
	"authorization": true,
	"bearer":        true,
	"service_token": true,
	"jwt_secret":    true,
	"password":      true,
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a new structured logger with the given configuration
func NewLogger(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(cfg.Level),
		AddSource:   cfg.AddSource,
		ReplaceAttr: replaceAttr,
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

	return slog.New(&contextHandler{
		handler: handler.WithAttrs([]slog.Attr{
			slog.String("service", cfg.ServiceName),
			slog.String("environment", cfg.Environment),
		}),
	})
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(a.Key, a.Value.Time().Format(time.RFC3339Nano))
	}
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, Redacted)
	}
	return a
}

// contextHandler adds the request fields found in the context to every record.
type contextHandler struct {
	handler slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if f := fieldsFrom(ctx); f != nil {
		r.AddAttrs(f.attrs()...)
	}
	return h.handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{handler: h.handler.WithGroup(name)}
}

type fieldsKey struct{}

// fields are the request-scoped values logged with every record of a
// request. The request id middleware installs them and the auth middleware
// fills in the caller, so the access log written by an outer middleware
// still names the user.
type fields struct {
	mu        sync.RWMutex
	requestID string
	userID    string
	orgID     string
	role      string
}

func fieldsFrom(ctx context.Context) *fields {
	f, _ := ctx.Value(fieldsKey{}).(*fields)
	return f
}

func (f *fields) attrs() []slog.Attr {
	f.mu.RLock()
	defer f.mu.RUnlock()

	attrs := make([]slog.Attr, 0, 4)
	if f.requestID != "" {
		attrs = append(attrs, slog.String("request_id", f.requestID))
	}
	if f.userID != "" {
		attrs = append(attrs, slog.String("user_id", f.userID))
	}
	if f.orgID != "" {
		attrs = append(attrs, slog.String("org_id", f.orgID))
	}
	if f.role != "" {
		attrs = append(attrs, slog.String("role", f.role))
	}
	return attrs
}

// WithRequestID starts the request fields of ctx with requestID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if f := fieldsFrom(ctx); f != nil {
		f.mu.Lock()
		f.requestID = requestID
		f.mu.Unlock()
		return ctx
	}
	return context.WithValue(ctx, fieldsKey{}, &fields{requestID: requestID})
}

// WithUser records the authenticated caller in the request fields.
func WithUser(ctx context.Context, userID, orgID, role string) context.Context {
	f := fieldsFrom(ctx)
	if f == nil {
		f = &fields{}
		ctx = context.WithValue(ctx, fieldsKey{}, f)
	}
	f.mu.Lock()
	f.userID, f.orgID, f.role = userID, orgID, role
	f.mu.Unlock()
	return ctx
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	f := fieldsFrom(ctx)
	if f == nil {
		return ""
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.requestID
}

// LoggerFromContext returns a logger bound to the request fields of ctx, for
// records logged without the context.
func LoggerFromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	f := fieldsFrom(ctx)
	if f == nil {
		return logger
	}
	attrs := f.attrs()
	if len(attrs) == 0 {
		return logger
	}
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return logger.With(args...)
}

// LogPanic logs a recovered panic with the goroutine stack.
func LogPanic(logger *slog.Logger, panicValue any) {
	logger.Error("panic recovered",
		"panic", panicValue,
		"stack_trace", string(debug.Stack()),
	)
}
