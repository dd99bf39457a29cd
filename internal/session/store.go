package session

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/myrjola/portrait/internal/scoring"
	"golang.org/x/time/rate"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type entry struct {
	session      *Session
	lastActivity time.Time
}

// Store maps respondent ids to sessions. It is safe for concurrent use.
type Store struct {
	logger      *slog.Logger
	scratchRoot string
	timeout     time.Duration
	ratePerMin  int

	mu       sync.Mutex
	sessions map[int64]*entry
}

// NewStore creates a Store. Scratch directories are created under scratchRoot, or the system temporary
// directory when it is empty. Sessions idle for longer than timeout are collected by the janitor.
func NewStore(logger *slog.Logger, scratchRoot string, timeout time.Duration, llmRatePerMinute int) *Store {
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	return &Store{
		logger:      logger,
		scratchRoot: scratchRoot,
		timeout:     timeout,
		ratePerMin:  llmRatePerMinute,
		sessions:    map[int64]*entry{},
	}
}

// Create starts a fresh session for the respondent with its own scratch directory. An existing session of
// the respondent is destroyed first.
func (s *Store) Create(ctx context.Context, respondentID int64) (*Session, error) {
	s.Destroy(ctx, respondentID)

	if err := os.MkdirAll(s.scratchRoot, 0o700); err != nil { //nolint:mnd // private scratch
		return nil, errors.Wrap(err, "create scratch root", slog.String("root", s.scratchRoot))
	}
	dir := filepath.Join(s.scratchRoot, fmt.Sprintf("portrait-%d-%s", respondentID, uuid.NewString()))
	if err := os.Mkdir(dir, 0o700); err != nil { //nolint:mnd // private scratch
		return nil, errors.Wrap(err, "create scratch dir", slog.String("dir", dir))
	}

	sessionCtx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	now := time.Now()
	session := &Session{
		RespondentID: respondentID,
		State:        StateInit,
		Answers:      make(map[bank.InstrumentID][]scoring.Answer, len(bank.DialogOrder)),
		ScratchDir:   dir,
		CreatedAt:    now,
		Limiter:      s.newLimiter(),
		ctx:          sessionCtx,
		cancel:       cancel,
	}

	s.mu.Lock()
	s.sessions[respondentID] = &entry{session: session, lastActivity: now}
	s.mu.Unlock()
	s.logger.LogAttrs(ctx, slog.LevelDebug, "session created", slog.String("scratch", dir))
	return session, nil
}

func (s *Store) newLimiter() *rate.Limiter {
	if s.ratePerMin <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	// One build issues one call per instrument at once.
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.ratePerMin)), len(bank.DialogOrder))
}

// Get returns the session of the respondent and marks it active.
func (s *Store) Get(respondentID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[respondentID]
	if !ok {
		return nil, false
	}
	e.lastActivity = time.Now()
	return e.session, true
}

// Interrupt cancels the context of the respondent's session with errors.ErrCancelled so that work in
// flight unwinds. The session itself stays until its handler destroys it.
func (s *Store) Interrupt(respondentID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[respondentID]
	if !ok {
		return false
	}
	e.session.cancel(errors.ErrCancelled)
	return true
}

// Destroy removes the session and its scratch directory. Destroying a missing session is a no-op.
func (s *Store) Destroy(ctx context.Context, respondentID int64) {
	s.mu.Lock()
	e, ok := s.sessions[respondentID]
	if ok {
		delete(s.sessions, respondentID)
	}
	s.mu.Unlock()
	if ok {
		s.release(ctx, e.session, errors.ErrCancelled)
	}
}

func (s *Store) release(ctx context.Context, session *Session, cause error) {
	session.cancel(cause)
	if err := os.RemoveAll(session.ScratchDir); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "remove scratch dir", errors.SlogError(err),
			slog.String("dir", session.ScratchDir))
		return
	}
	// The handler owns the dialog fields, so only the immutable ones are read here.
	s.logger.LogAttrs(ctx, slog.LevelDebug, "session destroyed",
		slog.Int64("respondent_id", session.RespondentID), slog.String("cause", cause.Error()))
}

// Len is the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Collect destroys the sessions idle for longer than the timeout at now and returns how many it removed.
// Their contexts are cancelled with errors.ErrSessionTimeout. The respondents are not notified.
func (s *Store) Collect(ctx context.Context, now time.Time) int {
	var expired []*Session
	s.mu.Lock()
	for id, e := range s.sessions {
		if now.Sub(e.lastActivity) > s.timeout {
			expired = append(expired, e.session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		s.release(ctx, session, errors.ErrSessionTimeout)
	}
	if len(expired) > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "expired sessions collected", slog.Int("count", len(expired)))
	}
	return len(expired)
}

// RunJanitor collects expired sessions every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Collect(ctx, now)
		}
	}
}

// Close destroys every session. It is used at shutdown.
func (s *Store) Close(ctx context.Context) {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for id, e := range s.sessions {
		sessions = append(sessions, e.session)
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	for _, session := range sessions {
		s.release(ctx, session, errors.ErrCancelled)
	}
}
