package contexthelpers

import (
	"context"
)

func RespondentID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(respondentIDContextKey).(int64)
	return id, ok
}

func BuildID(ctx context.Context) string {
	buildID, ok := ctx.Value(buildIDContextKey).(string)
	if !ok {
		return ""
	}

	return buildID
}
