package server

import (
	"context"
	"encoding/json"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/logger"
	"github.com/viant/mcp-protocol/schema"
)

// methodNotificationProgress is the MCP progress notification method.
const methodNotificationProgress = "notifications/progress"

// Logger sends client visible log messages and progress updates.
type Logger struct {
	name     string
	level    *schema.LoggingLevel
	notifier transport.Notifier
}

type progressParams struct {
	ProgressToken interface{} `json:"progressToken"`
	Progress      float64     `json:"progress"`
	Message       string      `json:"message,omitempty"`
}

func (l *Logger) log(ctx context.Context, level schema.LoggingLevel, data any) error {
	if l.level == nil || l.level.Ordinal() > level.Ordinal() {
		return nil
	}
	return l.notify(ctx, schema.MethodNotificationMessage, schema.LoggingMessageNotificationParams{
		Level:  level,
		Logger: &l.name,
		Data:   data,
	})
}

func (l *Logger) notify(ctx context.Context, method string, params any) error {
	notification := &jsonrpc.Notification{Method: method}
	var err error
	if notification.Params, err = json.Marshal(params); err != nil {
		return err
	}
	return l.notifier.Notify(ctx, notification)
}

// Progress reports partial output of the request identified by token.
func (l *Logger) Progress(ctx context.Context, token interface{}, progress float64, message string) error {
	if token == nil {
		return nil
	}
	return l.notify(ctx, methodNotificationProgress, progressParams{ProgressToken: token, Progress: progress, Message: message})
}

func (l *Logger) Debug(ctx context.Context, data interface{}) error {
	return l.log(ctx, schema.LoggingLevelDebug, data)
}

func (l *Logger) Info(ctx context.Context, data interface{}) error {
	return l.log(ctx, schema.LoggingLevelInfo, data)
}

func (l *Logger) Warning(ctx context.Context, data interface{}) error {
	return l.log(ctx, schema.LoggingLevelWarning, data)
}

func (l *Logger) Notice(ctx context.Context, data interface{}) error {
	return l.log(ctx, schema.LoggingLevelNotice, data)
}

func (l *Logger) Error(ctx context.Context, data interface{}) error {
	return l.log(ctx, schema.LoggingLevelError, data)
}

func (l *Logger) Critical(ctx context.Context, data interface{}) error {
	return l.log(ctx, schema.LoggingLevelCritical, data)
}

func (l *Logger) Alert(ctx context.Context, data interface{}) error {
	return l.log(ctx, schema.LoggingLevelAlert, data)
}

func (l *Logger) Emergency(ctx context.Context, data interface{}) error {
	return l.log(ctx, schema.LoggingLevelEmergency, data)
}

// Logger returns a logger sharing the level and notifier under a new name.
func (l *Logger) Logger(name string) logger.Logger {
	return &Logger{name: name, level: l.level, notifier: l.notifier}
}

// NewLogger creates a protocol logger; level is read on every call so
// logging/setLevel applies immediately.
func NewLogger(name string, level *schema.LoggingLevel, notifier transport.Notifier) *Logger {
	return &Logger{name: name, level: level, notifier: notifier}
}

var _ logger.Logger = &Logger{}
