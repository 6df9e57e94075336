package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/lobbytrack/lobbytrack/internal/domain"
)

type requestIDKey struct{}

// WithRequestID stores the request id audit records are correlated by
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in ctx, or ""
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Logger appends audit entries to the audit store and mirrors them to the
// structured log.
type Logger struct {
	repo   domain.AuditRepository
	logger *slog.Logger
}

func NewLogger(repo domain.AuditRepository, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{repo: repo, logger: logger}
}

// Record appends one entry. A failed write is logged and returned; callers
// that must not fail on audit errors may ignore it.
func (al *Logger) Record(ctx context.Context, action, entityType, description, actorID string, metadata map[string]any) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	if metadata == nil {
		raw = json.RawMessage(`{}`)
	}

	entry := &domain.AuditEntry{
		Action:      action,
		EntityType:  entityType,
		Description: description,
		Metadata:    raw,
		ActorID:     actorID,
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("entity_type", entityType),
		slog.String("actor_id", actorID),
		slog.String("description", description),
		slog.String("request_id", RequestID(ctx)),
	)

	if al.repo == nil {
		return nil
	}
	if err := al.repo.Append(ctx, entry); err != nil {
		al.logger.Error("audit write failed",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// LogDenied logs a rejected request. Denials are not persisted.
func (al *Logger) LogDenied(ctx context.Context, userID, reason string) {
	al.logger.Warn("audit",
		slog.String("action", "access_denied"),
		slog.String("user_id", userID),
		slog.String("reason", reason),
		slog.String("request_id", RequestID(ctx)),
	)
}
