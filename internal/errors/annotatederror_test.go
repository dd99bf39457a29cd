package errors

import (
	"github.com/stretchr/testify/require"
	"log/slog"
	"slices"
	"testing"
)

func TestAnnotatedError(t *testing.T) {
	err := New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	// Assert that wrapping sentinel errors work as expected.
	sentinel := NewSentinel("test error")
	require.NotErrorIs(t, err, NewSentinel("test error"))
	wrapped := Wrap(sentinel, "load", slog.String("file", "disc_user.txt"))
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, "load: test error", wrapped.Error())

	// Ensure log values are coming through.
	var annotated *AnnotatedError
	require.True(t, As(err, &annotated))
	group := annotated.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	require.GreaterOrEqual(t, sourceIdx, 0)
	source := group[sourceIdx]
	require.Contains(t, source.Value.String(), "annotatederror_test.go")
}

func TestWrapNil(t *testing.T) {
	require.NoError(t, Wrap(nil, "nothing to wrap"))
}

func TestSlogErrorCollectsChainAttributes(t *testing.T) {
	inner := Wrap(ErrBankCorrupt, "parse item", slog.Int("line", 7))
	outer := Wrap(inner, "load bank", slog.String("dir", "data"))

	attr := SlogError(outer)
	require.Equal(t, "error", attr.Key)
	group := attr.Value.Group()
	require.Contains(t, group, slog.String("msg", "load bank: parse item: question bank corrupt"))
	require.Contains(t, group, slog.Int("line", 7))
	require.Contains(t, group, slog.String("dir", "data"))
	require.ErrorIs(t, outer, ErrBankCorrupt)
}

func TestSlogErrorPlain(t *testing.T) {
	attr := SlogError(ErrCancelled)
	require.Equal(t, "cancelled", attr.Value.Any().(error).Error())
}
