// Package session keeps the in-memory dialog state of every respondent and owns their scratch directories.
package session

import (
	"context"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/scoring"
	"golang.org/x/time/rate"
	"time"
)

type State int

const (
	StateInit State = iota
	StateAwaitConfirm
	StateAwaitName
	StateAskPAEI
	StateAskDISC
	StateAskSOFT
	StateAskHEXACO
	StateBuild
	StateDeliver
	StateEnd
	StateEndError
	StateEndCancelled
)

var stateNames = map[State]string{ //nolint:gochecknoglobals // lookup table
	StateInit:         "INIT",
	StateAwaitConfirm: "AWAIT_CONFIRM",
	StateAwaitName:    "AWAIT_NAME",
	StateAskPAEI:      "ASK_PAEI",
	StateAskDISC:      "ASK_DISC",
	StateAskSOFT:      "ASK_SOFT",
	StateAskHEXACO:    "ASK_HEXACO",
	StateBuild:        "BUILD",
	StateDeliver:      "DELIVER",
	StateEnd:          "END",
	StateEndError:     "END_ERROR",
	StateEndCancelled: "END_CANCELLED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

var askStates = map[bank.InstrumentID]State{ //nolint:gochecknoglobals // lookup table
	bank.PAEI:   StateAskPAEI,
	bank.DISC:   StateAskDISC,
	bank.SOFT:   StateAskSOFT,
	bank.HEXACO: StateAskHEXACO,
}

// AskState is the state in which the items of the instrument are asked.
func AskState(id bank.InstrumentID) State {
	return askStates[id]
}

// Instrument returns the instrument asked in the state.
func (s State) Instrument() (bank.InstrumentID, bool) {
	for id, state := range askStates {
		if state == s {
			return id, true
		}
	}
	return "", false
}

// Terminal reports whether the dialog is over.
func (s State) Terminal() bool {
	return s == StateEnd || s == StateEndError || s == StateEndCancelled
}

// Session is the dialog of one respondent. Only the handler currently serving the respondent may change it.
type Session struct {
	RespondentID int64
	State        State
	Name         string
	// Index is the 0-based position of the next item within the current instrument.
	Index      int
	Answers    map[bank.InstrumentID][]scoring.Answer
	ScratchDir string
	CreatedAt  time.Time
	// Limiter throttles the model calls of this session.
	Limiter *rate.Limiter

	ctx    context.Context //nolint:containedctx // lifetime of the session
	cancel context.CancelCauseFunc
}

// Context is cancelled when the session is interrupted, expires or is destroyed. context.Cause reports why.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Record appends a confirmed answer to the buffer of the instrument and advances the index.
func (s *Session) Record(id bank.InstrumentID, answer scoring.Answer) {
	s.Answers[id] = append(s.Answers[id], answer)
	s.Index++
}
