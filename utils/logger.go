package utils

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/chatflow-dev/chatflow/constants"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	userLogger    *log.Logger
	userWriter    io.Writer = os.Stdout
	internalLevel           = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	loggerMu       sync.RWMutex
	internalLogger *zap.SugaredLogger
)

type (
	requestIDKeyType struct{}
	workspaceKeyType struct{}
)

var (
	requestIDKey = requestIDKeyType{}
	workspaceKey = workspaceKeyType{}
)

func init() {
	userLogger = log.New(userWriter, "", 0)
	if os.Getenv(constants.EnvDebug) != "" {
		internalLevel.SetLevel(zapcore.DebugLevel)
	}
	initInternal(os.Stderr)
}

func initInternal(w io.Writer) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(w),
		internalLevel,
	)
	loggerMu.Lock()
	internalLogger = zap.New(core).Sugar()
	loggerMu.Unlock()
}

func logger() *zap.SugaredLogger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return internalLogger
}

// User prints a message meant for the person at the terminal, without level or timestamp.
func User(format string, v ...any) {
	if userLogger != nil {
		userLogger.Printf(format, v...)
	}
}

func Info(format string, v ...any) {
	logger().Infof(format, v...)
}

func Warn(format string, v ...any) {
	logger().Warnf(format, v...)
}

func Error(format string, v ...any) {
	logger().Errorf(format, v...)
}

func Debug(format string, v ...any) {
	logger().Debugf(format, v...)
}

func SetUserOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	userWriter = w
	userLogger = log.New(userWriter, "", 0)
}

func SetInternalOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	initInternal(w)
}

// SetLevel changes the internal logger level. Unknown names leave the level unchanged.
func SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	internalLevel.SetLevel(lvl)
	return nil
}

// SetDebug is shorthand for SetLevel("debug").
func SetDebug(on bool) {
	if on {
		internalLevel.SetLevel(zapcore.DebugLevel)
		return
	}
	internalLevel.SetLevel(zapcore.InfoLevel)
}

// Level reports the current internal logger level.
func Level() string {
	return internalLevel.Level().String()
}

// Errorf logs the error message and returns it as an error value.
func Errorf(format string, v ...any) error {
	err := fmt.Errorf(format, v...)
	logger().Errorf("%s", err)
	return err
}

// WithRequestID returns a new context with the given request ID.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, requestIDKey, reqID)
}

// RequestIDFromContext extracts the request ID from context, if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(requestIDKey)
	if s, ok := v.(string); ok {
		return s, true
	}
	return "", false
}

// WithWorkspace tags ctx with the workspace a request operates on.
func WithWorkspace(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, workspaceKey, workspaceID)
}

// WorkspaceFromContext returns the workspace set by WithWorkspace.
func WorkspaceFromContext(ctx context.Context) (string, bool) {
	ws, ok := ctx.Value(workspaceKey).(string)
	return ws, ok && ws != ""
}

// contextFields appends the request id and workspace carried by ctx.
func contextFields(ctx context.Context, fields []any) []any {
	if reqID, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, "request_id", reqID)
	}
	if ws, ok := WorkspaceFromContext(ctx); ok {
		fields = append(fields, "workspace_id", ws)
	}
	return fields
}

// InfoCtx logs an info message with context, including request id and workspace if present.
func InfoCtx(ctx context.Context, msg string, fields ...any) {
	logger().Infow(msg, contextFields(ctx, fields)...)
}

// WarnCtx logs a warning message with context, including request id and workspace if present.
func WarnCtx(ctx context.Context, msg string, fields ...any) {
	logger().Warnw(msg, contextFields(ctx, fields)...)
}

// ErrorCtx logs an error message with context, including request id and workspace if present.
func ErrorCtx(ctx context.Context, msg string, fields ...any) {
	logger().Errorw(msg, contextFields(ctx, fields)...)
}

// DebugCtx logs a debug message with context, including request id and workspace if present.
func DebugCtx(ctx context.Context, msg string, fields ...any) {
	logger().Debugw(msg, contextFields(ctx, fields)...)
}
