package main

import (
	"encoding/json"
	"net/http"
)

type health struct {
	Status   string `json:"status"`
	Mode     string `json:"mode"`
	Sessions int    `json:"sessions"`
}

// healthy reports the update mode and the number of live sessions.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	body := health{Status: "ok", Mode: app.cfg.TelegramMode, Sessions: app.sessions.Len()}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		app.serverError(w, r, err)
	}
}
