package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	sentryhandler "github.com/getsentry/sentry-go/slog"
)

type Logger struct {
	*slog.Logger
}

// multiHandler fans out log records to two handlers so enabling Sentry
// reporting never silences local stdout logging.
type multiHandler struct {
	primary   slog.Handler
	secondary slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.secondary.Enabled(ctx, level)
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.primary.Enabled(ctx, record.Level) {
		if err := h.primary.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	if h.secondary.Enabled(ctx, record.Level) {
		if err := h.secondary.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &multiHandler{primary: h.primary.WithAttrs(attrs), secondary: h.secondary.WithAttrs(attrs)}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	return &multiHandler{primary: h.primary.WithGroup(name), secondary: h.secondary.WithGroup(name)}
}

type LogConfig struct {
	Level       string
	Environment string
	Service     string
	SentryDSN   string
	AddSource   bool
}

func NewLogger(config LogConfig) (*Logger, error) {
	var level slog.Level
	switch config.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: config.AddSource,
	}

	var handler slog.Handler

	if config.Environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	if config.SentryDSN != "" {
		sentryOpts := sentryhandler.Option{
			Level: level,
		}
		handler = &multiHandler{primary: handler, secondary: sentryOpts.NewSentryHandler(context.Background())}
	}

	logger := slog.New(handler)
	logger = logger.With(
		"service", config.Service,
		"environment", config.Environment,
	)

	return &Logger{Logger: logger}, nil
}

func (l *Logger) WithContext(ctx context.Context) *slog.Logger {
	return l.Logger.With("correlation_id", getCorrelationID(ctx))
}

func (l *Logger) WithFields(fields map[string]interface{}) *slog.Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.Logger.With(args...)
}

func (l *Logger) LogError(ctx context.Context, err error, msg string, fields ...interface{}) {
	if l == nil || l.Logger == nil {
		return
	}
	args := make([]interface{}, 0, len(fields)+4)
	args = append(args, "error", err)
	args = append(args, "correlation_id", getCorrelationID(ctx))
	args = append(args, fields...)
	l.Logger.Error(msg, args...)
}

func (l *Logger) LogInfo(ctx context.Context, msg string, fields ...interface{}) {
	if l == nil || l.Logger == nil {
		return
	}
	args := make([]interface{}, 0, len(fields)+2)
	args = append(args, "correlation_id", getCorrelationID(ctx))
	args = append(args, fields...)
	l.Logger.Info(msg, args...)
}

func (l *Logger) LogDebug(ctx context.Context, msg string, fields ...interface{}) {
	if l == nil || l.Logger == nil {
		return
	}
	args := make([]interface{}, 0, len(fields)+2)
	args = append(args, "correlation_id", getCorrelationID(ctx))
	args = append(args, fields...)
	l.Logger.Debug(msg, args...)
}

func (l *Logger) LogWarn(ctx context.Context, msg string, fields ...interface{}) {
	if l == nil || l.Logger == nil {
		return
	}
	args := make([]interface{}, 0, len(fields)+2)
	args = append(args, "correlation_id", getCorrelationID(ctx))
	args = append(args, fields...)
	l.Logger.Warn(msg, args...)
}

type contextKey string

const correlationIDKey contextKey = "correlation_id"

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func getCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return generateCorrelationID()
}

func generateCorrelationID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

type RequestFields struct {
	Method    string
	URL       string
	UserAgent string
	IP        string
	Duration  time.Duration
	Status    int
}

func (l *Logger) LogRequest(ctx context.Context, fields RequestFields) {
	if l == nil || l.Logger == nil {
		return
	}
	l.Logger.Info("HTTP request completed",
		"correlation_id", getCorrelationID(ctx),
		"method", fields.Method,
		"url", fields.URL,
		"user_agent", fields.UserAgent,
		"ip", fields.IP,
		"duration_ms", fields.Duration.Milliseconds(),
		"status", fields.Status,
	)
}

type GameEventFields struct {
	EventType string
	MatchID   string
	PlayerID  string
	GameState string
}

func (l *Logger) LogGameEvent(ctx context.Context, fields GameEventFields) {
	if l == nil || l.Logger == nil {
		return
	}
	l.Logger.Info("game event",
		"correlation_id", getCorrelationID(ctx),
		"event_type", fields.EventType,
		"match_id", fields.MatchID,
		"player_id", fields.PlayerID,
		"game_state", fields.GameState,
	)
}

type WSEventFields struct {
	EventType    string
	ClientID     string
	MatchID      string
	MessageType  string
	ConnectionIP string
}

func (l *Logger) LogWebSocketEvent(ctx context.Context, fields WSEventFields) {
	if l == nil || l.Logger == nil {
		return
	}
	l.Logger.Info("websocket event",
		"correlation_id", getCorrelationID(ctx),
		"event_type", fields.EventType,
		"client_id", fields.ClientID,
		"match_id", fields.MatchID,
		"message_type", fields.MessageType,
		"connection_ip", fields.ConnectionIP,
	)
}