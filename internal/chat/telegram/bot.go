// Package telegram connects the dialog to the Telegram Bot API by long polling or webhook.
package telegram

import (
	"context"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/myrjola/portrait/internal/chat"
	"github.com/myrjola/portrait/internal/errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

const pollTimeoutSeconds = 60

// Bot is a chat.Sender and an update source backed by the Telegram Bot API.
type Bot struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

// New connects to Telegram and verifies the token.
func New(token string, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "connect telegram")
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "telegram connected",
		slog.String("username", api.Self.UserName))
	return NewWithAPI(api, logger), nil
}

// NewWithAPI wraps an existing client.
func NewWithAPI(api *tgbotapi.BotAPI, logger *slog.Logger) *Bot {
	return &Bot{api: api, logger: logger}
}

func (b *Bot) Send(_ context.Context, respondentID int64, msg chat.Message) error {
	out := tgbotapi.NewMessage(respondentID, msg.Text)
	if markup := ReplyMarkup(msg.Keyboard); markup != nil {
		out.ReplyMarkup = markup
	}
	if _, err := b.api.Send(out); err != nil {
		return errors.Wrap(err, "send message", slog.Int64("respondent_id", respondentID))
	}
	return nil
}

func (b *Bot) SendDocument(_ context.Context, respondentID int64, path, name, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open document", slog.String("path", path))
	}
	defer f.Close()
	doc := tgbotapi.NewDocument(respondentID, tgbotapi.FileReader{Name: name, Reader: f})
	doc.Caption = caption
	doc.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	if _, err = b.api.Send(doc); err != nil {
		return errors.Wrap(err, "send document", slog.Int64("respondent_id", respondentID), slog.String("path", path))
	}
	return nil
}

// ReplyMarkup converts a keyboard into Telegram markup. It returns nil when the keyboard is nil.
func ReplyMarkup(kb *chat.Keyboard) any {
	switch {
	case kb == nil:
		return nil
	case kb.Remove:
		return tgbotapi.NewRemoveKeyboard(false)
	}
	rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.KeyboardButton, len(row))
		for i, text := range row {
			buttons[i] = tgbotapi.NewKeyboardButton(text)
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.ResizeKeyboard = true
	return markup
}

// EventFromUpdate extracts the text message of a private chat. Other updates are ignored.
func EventFromUpdate(u tgbotapi.Update) (chat.Event, bool) {
	msg := u.Message
	if msg == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return chat.Event{}, false
	}
	event := chat.Event{
		RespondentID: msg.Chat.ID,
		Text:         strings.TrimSpace(msg.Text),
		ReceivedAt:   msg.Time(),
	}
	if msg.From != nil {
		event.FirstName = msg.From.FirstName
	}
	if msg.IsCommand() {
		event.Command = strings.ToLower(msg.Command())
		event.Args = strings.TrimSpace(msg.CommandArguments())
	}
	if event.Text == "" && event.Command == "" {
		return chat.Event{}, false
	}
	return event, true
}

// Poll receives updates by long polling until ctx is done. Any registered webhook is removed first.
func (b *Bot) Poll(ctx context.Context, handle func(chat.Event)) error {
	if err := b.DeleteWebhook(); err != nil {
		return err
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(u)
	b.logger.LogAttrs(ctx, slog.LevelInfo, "polling for updates")
	defer b.api.StopReceivingUpdates()
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if event, ok := EventFromUpdate(update); ok {
				handle(event)
			}
		}
	}
}

// RegisterWebhook points Telegram at url.
func (b *Bot) RegisterWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return errors.Wrap(err, "create webhook", slog.String("url", url))
	}
	if _, err = b.api.Request(wh); err != nil {
		return errors.Wrap(err, "set webhook", slog.String("url", url))
	}
	return nil
}

func (b *Bot) DeleteWebhook() error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return errors.Wrap(err, "delete webhook")
	}
	return nil
}

// WebhookHandler serves updates pushed by Telegram.
func (b *Bot) WebhookHandler(handle func(chat.Event)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		update, err := b.api.HandleUpdate(r)
		if err != nil {
			b.logger.LogAttrs(r.Context(), slog.LevelWarn, "bad webhook update", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if event, ok := EventFromUpdate(*update); ok {
			handle(event)
		}
		w.WriteHeader(http.StatusOK)
	})
}
