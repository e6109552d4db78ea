package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ILogger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
	Sync() error
}

// ZapLogger adapts zap to ILogger. Every entry carries the module tag and a
// details object; Error entries also lift details["error"] to a top-level
// field so log search can match on it.
type ZapLogger struct {
	logger *zap.Logger
}

// Public method -> write -> zap.
const callerSkip = 2

func newRotator(logFilePath string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    20, // MB
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}
}

func newJSONEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func newConsoleCore(w *os.File, level zapcore.Level) zapcore.Core {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	return zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(w), level)
}

func newFileCore(logFilePath string, level zapcore.Level) zapcore.Core {
	return zapcore.NewCore(newJSONEncoder(), zapcore.AddSync(newRotator(logFilePath)), level)
}

func wrap(core zapcore.Core) *ZapLogger {
	return &ZapLogger{logger: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(callerSkip))}
}

// NewZapLogger logs Info and above to a rotated JSON file and everything to
// stdout. Production stdout is JSON as well so collectors can parse it.
func NewZapLogger(logFilePath string, isProd bool) *ZapLogger {
	stdout := newConsoleCore(os.Stdout, zap.DebugLevel)
	if isProd {
		stdout = zapcore.NewCore(newJSONEncoder(), zapcore.Lock(os.Stdout), zap.InfoLevel)
	}
	return wrap(zapcore.NewTee(newFileCore(logFilePath, zap.InfoLevel), stdout))
}

// NewIsolatedLogger writes only to its own file. Websocket traffic goes
// there so per-frame debug output stays out of the main log.
func NewIsolatedLogger(logFilePath string) *ZapLogger {
	return wrap(newFileCore(logFilePath, zap.DebugLevel))
}

// NewConsoleLogger writes to stderr only, keeping stdout free for the
// terminal front end's tables.
func NewConsoleLogger(debug bool) *ZapLogger {
	level := zap.WarnLevel
	if debug {
		level = zap.DebugLevel
	}
	return wrap(newConsoleCore(os.Stderr, level))
}

func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

func (l *ZapLogger) write(level zapcore.Level, module, message string, details map[string]interface{}) {
	ce := l.logger.Check(level, message)
	if ce == nil {
		return
	}
	if details == nil {
		details = map[string]interface{}{}
	}

	fields := make([]zap.Field, 0, 3)
	fields = append(fields, zap.String("module", module), zap.Any("details", details))
	if level >= zapcore.ErrorLevel {
		if err, ok := details["error"]; ok {
			fields = append(fields, zap.Any("error", err))
		}
	}
	ce.Write(fields...)
}

func (l *ZapLogger) Debug(module, message string, details map[string]interface{}) {
	l.write(zapcore.DebugLevel, module, message, details)
}

func (l *ZapLogger) Info(module, message string, details map[string]interface{}) {
	l.write(zapcore.InfoLevel, module, message, details)
}

func (l *ZapLogger) Warn(module, message string, details map[string]interface{}) {
	l.write(zapcore.WarnLevel, module, message, details)
}

func (l *ZapLogger) Error(module, message string, details map[string]interface{}) {
	l.write(zapcore.ErrorLevel, module, message, details)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
