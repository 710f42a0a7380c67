package logger

import (
  "os"
  "strings"

  "go.uber.org/zap"
  "go.uber.org/zap/zapcore"
)

// New builds the production JSON logger used by every command.
// An empty level falls back to LOG_LEVEL, then to info.
func New(level string) (*zap.Logger, error) {
  cfg := zap.NewProductionConfig()
  cfg.EncoderConfig.TimeKey = "ts"
  cfg.EncoderConfig.MessageKey = "msg"
  cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
  if level == "" {
    level = os.Getenv("LOG_LEVEL")
  }
  cfg.Level.SetLevel(ParseLevel(level))
  return cfg.Build()
}

// Must is New for mains; it exits when the logger cannot be built.
func Must(level string) *zap.Logger {
  log, err := New(level)
  if err != nil {
    os.Stderr.WriteString("logger init: " + err.Error() + "\n")
    os.Exit(1)
  }
  return log
}

// ParseLevel maps a level name to a zapcore.Level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
  switch strings.ToLower(strings.TrimSpace(s)) {
  case "debug":
    return zapcore.DebugLevel
  case "warn", "warning":
    return zapcore.WarnLevel
  case "error":
    return zapcore.ErrorLevel
  default:
    return zapcore.InfoLevel
  }
}
