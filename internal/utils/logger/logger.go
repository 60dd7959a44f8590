package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

type Logger struct {
	serviceName string
}

var (
	// INFO_EMOJI Emoji constants
	INFO_EMOJI    = "ℹ️ "
	SUCCESS_EMOJI = "✅ "
	WARN_EMOJI    = "⚠️ "
	ERROR_EMOJI   = "❌ "
	DEBUG_EMOJI   = "🔍 "
)

var (
	sinkMu   sync.RWMutex
	jsonSink *zerolog.Logger
)

// UseJSON switches every logger to zerolog JSON lines written to w.
// Passing nil restores the colored console output.
func UseJSON(w io.Writer) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if w == nil {
		jsonSink = nil
		return
	}
	zl := zerolog.New(w).With().Timestamp().Logger()
	jsonSink = &zl
}

// Configure applies the LOG_FORMAT setting ("json" or "console").
func Configure(format string) {
	if strings.EqualFold(format, "json") {
		UseJSON(os.Stdout)
		return
	}
	UseJSON(nil)
}

func New(serviceName string) *Logger {
	return &Logger{
		serviceName: serviceName,
	}
}

func (l *Logger) formatMessage(level, emoji, msg string) string {
	_, file, line, _ := runtime.Caller(3)
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fileName := filepath.Base(file)

	return fmt.Sprintf("%s | %s | %s | %s:%d | %s | %s",
		emoji,
		timestamp,
		level,
		fileName,
		line,
		l.serviceName,
		msg,
	)
}

func (l *Logger) emit(level zerolog.Level, name, emoji string, print func(string, ...interface{}), msg string) {
	sinkMu.RLock()
	sink := jsonSink
	sinkMu.RUnlock()

	if sink != nil {
		sink.WithLevel(level).Str("service", l.serviceName).Str("level_name", name).Msg(msg)
		return
	}
	print("%s", l.formatMessage(name, emoji, msg))
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.emit(zerolog.InfoLevel, "INFO", INFO_EMOJI, color.Cyan, fmt.Sprintf(msg, args...))
}

func (l *Logger) Success(msg string, args ...interface{}) {
	l.emit(zerolog.InfoLevel, "SUCCESS", SUCCESS_EMOJI, color.Green, fmt.Sprintf(msg, args...))
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.emit(zerolog.WarnLevel, "WARN", WARN_EMOJI, color.Yellow, fmt.Sprintf(msg, args...))
}

// Error logs msg with err appended and returns msg wrapping err.
func (l *Logger) Error(msg string, err error, args ...interface{}) error {
	text := fmt.Sprintf(msg, args...)
	l.emit(zerolog.ErrorLevel, "ERROR", ERROR_EMOJI, color.Red, fmt.Sprintf("%s: %v", text, err))
	return fmt.Errorf("%s: %w", text, err)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.emit(zerolog.DebugLevel, "DEBUG", DEBUG_EMOJI, color.Magenta, fmt.Sprintf(msg, args...))
}
