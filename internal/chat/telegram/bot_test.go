package telegram_test

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/myrjola/portrait/internal/chat"
	"github.com/myrjola/portrait/internal/chat/telegram"
	"github.com/myrjola/portrait/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func message(chatType, text string, entities ...tgbotapi.MessageEntity) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 10,
			From:      &tgbotapi.User{ID: 42, FirstName: "Анна"},
			Chat:      &tgbotapi.Chat{ID: 42, Type: chatType},
			Date:      1700000000,
			Text:      text,
			Entities:  entities,
		},
	}
}

func TestEventFromUpdate(t *testing.T) {
	command := tgbotapi.MessageEntity{Type: "bot_command", Offset: 0, Length: 6}

	tests := []struct {
		name   string
		update tgbotapi.Update
		want   chat.Event
		ok     bool
	}{
		{
			name:   "plain text",
			update: message("private", "  3. обычно спокоен "),
			want:   chat.Event{RespondentID: 42, Text: "3. обычно спокоен", FirstName: "Анна"},
			ok:     true,
		},
		{
			name:   "command with argument",
			update: message("private", "/start secret", command),
			want:   chat.Event{RespondentID: 42, Text: "/start secret", FirstName: "Анна", Command: "start", Args: "secret"},
			ok:     true,
		},
		{
			name:   "group chat",
			update: message("group", "hello"),
		},
		{
			name:   "no message",
			update: tgbotapi.Update{UpdateID: 2},
		},
		{
			name:   "empty text",
			update: message("private", "   "),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := telegram.EventFromUpdate(tt.update)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			got.ReceivedAt = tt.want.ReceivedAt
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplyMarkup(t *testing.T) {
	assert.Nil(t, telegram.ReplyMarkup(nil))

	remove, ok := telegram.ReplyMarkup(chat.RemoveKeyboard()).(tgbotapi.ReplyKeyboardRemove)
	require.True(t, ok)
	assert.True(t, remove.RemoveKeyboard)

	markup, ok := telegram.ReplyMarkup(chat.NewKeyboard("P", "A", "E", "I")).(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.Keyboard, 1)
	require.Len(t, markup.Keyboard[0], 4)
	assert.Equal(t, "E", markup.Keyboard[0][2].Text)
	assert.True(t, markup.ResizeKeyboard)
}

func TestWebhookHandler(t *testing.T) {
	bot := telegram.NewWithAPI(&tgbotapi.BotAPI{}, testhelpers.NewLogger(io.Discard))
	var events []chat.Event
	handler := bot.WebhookHandler(func(e chat.Event) { events = append(events, e) })

	body := `{"update_id":1,"message":{"message_id":1,"date":1700000000,"text":"да",` +
		`"chat":{"id":7,"type":"private"},"from":{"id":7,"first_name":"Иван"}}}`
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, events, 1)
	assert.Equal(t, int64(7), events[0].RespondentID)
	assert.Equal(t, "да", events[0].Text)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Len(t, events, 1)
}
