package contexthelpers

import (
	"context"
	"github.com/myrjola/portrait/internal/logging"
	"log/slog"
)

// WithRespondent marks ctx as belonging to the respondent and adds the id to every log record.
func WithRespondent(ctx context.Context, respondentID int64) context.Context {
	ctx = context.WithValue(ctx, respondentIDContextKey, respondentID)
	return logging.WithAttrs(ctx, slog.Int64("respondent_id", respondentID))
}

// WithBuild marks ctx as belonging to one report build.
func WithBuild(ctx context.Context, buildID string) context.Context {
	ctx = context.WithValue(ctx, buildIDContextKey, buildID)
	return logging.WithAttrs(ctx, slog.String("build_id", buildID))
}
