package main

import (
	"github.com/justinas/alice"
	"github.com/myrjola/portrait/internal/config"
	"net/http"
)

// webhookPath is where WEBHOOK_URL should point.
const webhookPath = "/telegram/webhook"

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthy", app.healthy)
	if app.cfg.TelegramMode == config.ModeWebhook {
		mux.Handle("POST "+webhookPath, app.bot.WebhookHandler(app.orchestrator.Submit))
	}

	common := alice.New(app.recoverPanic, app.logRequest)
	return common.Then(mux)
}
