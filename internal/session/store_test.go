package session_test

import (
	"bytes"
	"context"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/myrjola/portrait/internal/scoring"
	"github.com/myrjola/portrait/internal/session"
	"github.com/myrjola/portrait/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newStore(t *testing.T) (*session.Store, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "scratch")
	return session.NewStore(testhelpers.NewLogger(io.Discard), root, time.Hour, 20), root
}

func TestCreateAndDestroy(t *testing.T) {
	store, root := newStore(t)
	ctx := context.Background()

	s, err := store.Create(ctx, 1)
	require.NoError(t, err)
	assert.DirExists(t, s.ScratchDir)
	assert.Equal(t, root, filepath.Dir(s.ScratchDir))
	assert.Equal(t, session.StateInit, s.State)
	require.NoError(t, os.WriteFile(filepath.Join(s.ScratchDir, "chart.png"), []byte("x"), 0o600))

	got, ok := store.Get(1)
	require.True(t, ok)
	assert.Same(t, s, got)

	store.Destroy(ctx, 1)
	assert.NoDirExists(t, s.ScratchDir)
	require.ErrorIs(t, context.Cause(s.Context()), errors.ErrCancelled)
	_, ok = store.Get(1)
	assert.False(t, ok)

	// Destroying twice is harmless.
	store.Destroy(ctx, 1)
	assert.Equal(t, 0, store.Len())
}

func TestCreateReplacesExistingSession(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, 1)
	require.NoError(t, err)
	second, err := store.Create(ctx, 1)
	require.NoError(t, err)

	assert.NotEqual(t, first.ScratchDir, second.ScratchDir)
	assert.NoDirExists(t, first.ScratchDir)
	assert.DirExists(t, second.ScratchDir)
	assert.Equal(t, 1, store.Len())
}

func TestSessionsAreIsolated(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	a, err := store.Create(ctx, 1)
	require.NoError(t, err)
	b, err := store.Create(ctx, 2)
	require.NoError(t, err)

	a.Record(bank.PAEI, scoring.Answer{Choice: "P"})
	assert.Empty(t, b.Answers[bank.PAEI])
	assert.Equal(t, 1, a.Index)
	assert.Equal(t, 0, b.Index)
	assert.NotSame(t, a.Limiter, b.Limiter)
}

func TestInterrupt(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	assert.False(t, store.Interrupt(1))

	s, err := store.Create(ctx, 1)
	require.NoError(t, err)
	assert.True(t, store.Interrupt(1))
	require.ErrorIs(t, context.Cause(s.Context()), errors.ErrCancelled)
	// The session stays until its handler cleans up.
	assert.DirExists(t, s.ScratchDir)
	assert.Equal(t, 1, store.Len())
}

func TestCollect(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	s, err := store.Create(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, 0, store.Collect(ctx, time.Now().Add(30*time.Minute)))
	assert.Equal(t, 1, store.Collect(ctx, time.Now().Add(2*time.Hour)))
	assert.NoDirExists(t, s.ScratchDir)
	require.ErrorIs(t, context.Cause(s.Context()), errors.ErrSessionTimeout)
	assert.Equal(t, 0, store.Len())
}

func TestCollectWhileHandlerAdvances(t *testing.T) {
	var logs bytes.Buffer
	store := session.NewStore(testhelpers.NewLogger(&logs), filepath.Join(t.TempDir(), "scratch"), time.Hour, 0)
	ctx := context.Background()

	s, err := store.Create(ctx, 1)
	require.NoError(t, err)
	advanced := make(chan struct{})
	go func() {
		defer close(advanced)
		for _, state := range []session.State{session.StateAwaitConfirm, session.StateAwaitName, session.StateAskPAEI} {
			s.State = state
		}
	}()

	assert.Equal(t, 1, store.Collect(ctx, time.Now().Add(2*time.Hour)))
	<-advanced
	assert.Contains(t, logs.String(), "session destroyed")
	assert.Contains(t, logs.String(), errors.ErrSessionTimeout.Error())
	assert.NotContains(t, logs.String(), "state=")
}

func TestRunJanitor(t *testing.T) {
	root := filepath.Join(t.TempDir(), "scratch")
	store := session.NewStore(testhelpers.NewLogger(io.Discard), root, time.Millisecond, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := store.Create(ctx, 1)
	require.NoError(t, err)
	go store.RunJanitor(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.NoDirExists(t, s.ScratchDir)
}

func TestClose(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	var dirs []string
	for id := range int64(3) {
		s, err := store.Create(ctx, id)
		require.NoError(t, err)
		dirs = append(dirs, s.ScratchDir)
	}
	store.Close(ctx)
	assert.Equal(t, 0, store.Len())
	for _, dir := range dirs {
		assert.NoDirExists(t, dir)
	}
}

func TestState(t *testing.T) {
	assert.Equal(t, "ASK_DISC", session.StateAskDISC.String())
	assert.Equal(t, session.StateAskHEXACO, session.AskState(bank.HEXACO))
	id, ok := session.StateAskSOFT.Instrument()
	assert.True(t, ok)
	assert.Equal(t, bank.SOFT, id)
	_, ok = session.StateBuild.Instrument()
	assert.False(t, ok)
	assert.True(t, session.StateEndCancelled.Terminal())
	assert.False(t, session.StateDeliver.Terminal())
}
