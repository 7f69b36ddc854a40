package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// Setup は構造化ログ出力のslog.Loggerを生成して返す。
// formatが"text"の場合は人間が読みやすい色付き出力、
// それ以外はJSON出力になる。
func Setup(w io.Writer, format string) *slog.Logger {
	var handler slog.Handler
	if format == "text" {
		handler = tint.NewHandler(w, &tint.Options{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return slog.New(handler)
}

// SetupDefault は構造化ログ出力をグローバルロガーとして設定する。
// writerが指定された場合はそのwriterに出力する。
// 本番ではos.Stdoutを渡すことを想定している。
func SetupDefault(w io.Writer, format string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := Setup(w, format)
	slog.SetDefault(logger)
	return logger
}
