package testhelpers

import (
	"github.com/myrjola/portrait/internal/logging"
	"io"
	"log/slog"
)

// NewLogger logs everything down to debug as text into logSink, which is usually io.Discard or a buffer the
// test inspects. Context attributes such as respondent_id are included like in production.
func NewLogger(logSink io.Writer) *slog.Logger {
	return slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: dropTime,
	})))
}

// dropTime keeps captured logs stable between runs.
func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
