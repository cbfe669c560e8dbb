package audit

import (
	"context"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID stores the request id picked up by audit entries
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored by WithRequestID
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

type Logger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With(slog.String("channel", "audit")), now: time.Now}
}

func (al *Logger) LogAction(ctx context.Context, tenant, userID, action, resource, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("tenant", tenant),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", al.now()),
	)
}

func (al *Logger) LogLogin(ctx context.Context, tenant, email, status string) {
	al.LogAction(ctx, tenant, "", "login", "session", email, status, "")
}

func (al *Logger) LogOrderPlaced(ctx context.Context, tenant, orderID string) {
	al.LogAction(ctx, tenant, "", "place", "order", orderID, "success", "")
}

func (al *Logger) LogSettingsUpdate(ctx context.Context, tenant, userID, status string) {
	al.LogAction(ctx, tenant, userID, "update_settings", "tenant", tenant, status, "")
}

func (al *Logger) LogDenied(ctx context.Context, tenant, userID, reason string) {
	al.LogAction(ctx, tenant, userID, "access_denied", "api", "", "denied", reason)
}
