package contexthelpers_test

import (
	"bytes"
	"context"
	"github.com/myrjola/portrait/internal/contexthelpers"
	"github.com/myrjola/portrait/internal/logging"
	"github.com/stretchr/testify/assert"
	"log/slog"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	_, ok := contexthelpers.RespondentID(ctx)
	assert.False(t, ok)
	assert.Empty(t, contexthelpers.BuildID(ctx))

	ctx = contexthelpers.WithBuild(contexthelpers.WithRespondent(ctx, 42), "b-1")
	id, ok := contexthelpers.RespondentID(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "b-1", contexthelpers.BuildID(ctx))

	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil)))
	logger.InfoContext(ctx, "hello")
	assert.Contains(t, buf.String(), "respondent_id=42")
	assert.Contains(t, buf.String(), "build_id=b-1")
}
