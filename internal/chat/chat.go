// Package chat is the transport-neutral surface between the dialog and a messenger.
package chat

import (
	"context"
	"time"
)

// Event is one inbound text message from a respondent.
type Event struct {
	RespondentID int64
	// Command is the bot command without the slash, e.g. "start". Empty for plain text.
	Command string
	// Args is the text after the command.
	Args       string
	Text       string
	FirstName  string
	ReceivedAt time.Time
}

// Keyboard is a reply keyboard offered with a message.
type Keyboard struct {
	Rows [][]string
	// Remove hides a previously offered keyboard.
	Remove bool
}

// RemoveKeyboard hides the current keyboard.
func RemoveKeyboard() *Keyboard {
	return &Keyboard{Rows: nil, Remove: true}
}

// NewKeyboard lays out the buttons in a single row.
func NewKeyboard(buttons ...string) *Keyboard {
	return &Keyboard{Rows: [][]string{buttons}, Remove: false}
}

type Message struct {
	Text string
	// Keyboard leaves the current keyboard untouched when nil.
	Keyboard *Keyboard
}

// Sender delivers messages and documents to a respondent.
type Sender interface {
	Send(ctx context.Context, respondentID int64, msg Message) error
	// SendDocument uploads the file at path. The respondent sees it as name.
	SendDocument(ctx context.Context, respondentID int64, path, name, caption string) error
}
