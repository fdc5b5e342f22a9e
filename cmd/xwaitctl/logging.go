package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logMaxSizeMB  = 100
	logMaxBackups = 7
	logMaxAgeDays = 30
)

// nopCloser 用于输出到 stderr 时的关闭函数。
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, &usageError{msg: fmt.Sprintf("无效的日志级别 %q", s)}
	}
}

// newLogger 按全局选项创建日志记录器。
// file 非空时写入 lumberjack 轮转文件，返回的 Closer 负责关闭该文件。
func newLogger(level, format, file string, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	var (
		out    = stderr
		closer io.Closer = nopCloser{}
	)
	if file != "" {
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
			Compress:   true,
		}
		out, closer = rotator, rotator
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text", "":
		handler = slog.NewTextHandler(out, opts)
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		return nil, nil, &usageError{msg: fmt.Sprintf("无效的日志格式 %q", format)}
	}
	return slog.New(handler), closer, nil
}
