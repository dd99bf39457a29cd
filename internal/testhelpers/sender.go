package testhelpers

import (
	"context"
	"github.com/myrjola/portrait/internal/chat"
	"os"
	"sync"
)

// Document is a document delivered through FakeSender. Data is read at send time.
type Document struct {
	RespondentID int64
	Path         string
	Name         string
	Caption      string
	Data         []byte
}

// FakeSender records everything sent to respondents.
type FakeSender struct {
	mu        sync.Mutex
	messages  map[int64][]chat.Message
	documents []Document
	// Fail makes every send return the error when set.
	Fail error
}

func NewFakeSender() *FakeSender {
	return &FakeSender{messages: map[int64][]chat.Message{}}
}

func (f *FakeSender) Send(_ context.Context, respondentID int64, msg chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return f.Fail
	}
	f.messages[respondentID] = append(f.messages[respondentID], msg)
	return nil
}

func (f *FakeSender) SendDocument(_ context.Context, respondentID int64, path, name, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return f.Fail
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f.documents = append(f.documents, Document{
		RespondentID: respondentID,
		Path:         path,
		Name:         name,
		Caption:      caption,
		Data:         data,
	})
	return nil
}

// Messages returns a copy of the messages sent to the respondent.
func (f *FakeSender) Messages(respondentID int64) []chat.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chat.Message(nil), f.messages[respondentID]...)
}

// Last returns the latest message sent to the respondent.
func (f *FakeSender) Last(respondentID int64) chat.Message {
	msgs := f.Messages(respondentID)
	if len(msgs) == 0 {
		return chat.Message{}
	}
	return msgs[len(msgs)-1]
}

func (f *FakeSender) Documents() []Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Document(nil), f.documents...)
}
