package config

import (
	"os"
	"strings"

	"github.com/gookit/slog"
	"github.com/gookit/slog/handler"
)

// LoggerInterface 는 애플리케이션 전역에서 사용하는 최소 로거 인터페이스다.
type LoggerInterface interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Fields 는 구조화 로그를 위한 공통 필드 타입이다.
type Fields map[string]any

// Logger 는 전역 로거 인스턴스다. InitLogger 전에도 info 레벨로 동작한다.
var Logger LoggerInterface = NewLogger("info")

// InitLogger 는 전역 로거를 주어진 레벨로 다시 만든다.
// 비어 있으면 LOG_LEVEL, 그것도 없으면 info 를 사용한다.
func InitLogger(level string) {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	level = strings.ToLower(level)
	if level == "" {
		level = "info"
	}
	Logger = NewLogger(level)
}

// NewLogger 는 datetime/level/message 필드만 갖는 JSON 포맷의 gookit/slog 로거를 만든다.
func NewLogger(level string) LoggerInterface {
	logLevel := slog.LevelByName(level)

	var levels slog.Levels
	for _, lv := range slog.AllLevels {
		if lv <= logLevel {
			levels = append(levels, lv)
		}
	}

	h := handler.NewConsoleHandler(levels)
	formatter := slog.NewJSONFormatter(func(f *slog.JSONFormatter) {
		f.Fields = []string{
			slog.FieldKeyDatetime,
			slog.FieldKeyLevel,
			slog.FieldKeyMessage,
		}
		f.Aliases = slog.StringMap{
			slog.FieldKeyDatetime: "datetime",
			slog.FieldKeyLevel:    "level",
			slog.FieldKeyMessage:  "message",
		}
		f.TimeFormat = "2006-01-02T15:04:05"
	})
	h.SetFormatter(formatter)

	return slog.NewWithHandlers(h)
}

func withServiceName(fields Fields) Fields {
	if fields == nil {
		fields = Fields{}
	}
	if _, ok := fields["service_name"]; !ok {
		if sn := os.Getenv("SERVICE_NAME"); sn != "" {
			fields["service_name"] = sn
		}
	}
	return fields
}

func logWithFields(lv slog.Level, msg string, fields Fields) {
	fields = withServiceName(fields)
	lg, ok := Logger.(*slog.Logger)
	if !ok {
		switch lv {
		case slog.ErrorLevel:
			Logger.Error(msg)
		case slog.WarnLevel:
			Logger.Warn(msg)
		case slog.DebugLevel:
			Logger.Debug(msg)
		default:
			Logger.Info(msg)
		}
		return
	}
	lg.WithFields(slog.M(fields)).Log(lv, msg)
}

// InfoWithFields 는 analysis_id, video_id 같은 구조화 필드를 포함해 로그를 남긴다.
func InfoWithFields(msg string, fields Fields) {
	logWithFields(slog.InfoLevel, msg, fields)
}

func DebugWithFields(msg string, fields Fields) {
	logWithFields(slog.DebugLevel, msg, fields)
}

func WarnWithFields(msg string, fields Fields) {
	logWithFields(slog.WarnLevel, msg, fields)
}

func ErrorWithFields(msg string, fields Fields) {
	logWithFields(slog.ErrorLevel, msg, fields)
}
