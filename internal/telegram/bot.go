package telegram

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

type Bot struct {
	api *tgbotapi.BotAPI
	h   *Handlers
}

// NewBot registers the webhook with Telegram and wires the handlers.
func NewBot(token, webhookURL string, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := api.Request(webhook); err != nil {
		return nil, err
	}
	log.Info().Str("url", webhookURL).Str("bot", api.Self.UserName).Msg("telegram: webhook set")

	return &Bot{api: api, h: NewHandlers(api, deps)}, nil
}

// Webhook HTTP handler (registered at /telegram/webhook)
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	b.h.ServeWebhook(w, r)
}

// ServeWebhook decodes one update and handles it off the request goroutine.
func (h *Handlers) ServeWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	if update.Message == nil {
		log.Debug().Int("update_id", update.UpdateID).Msg("webhook: non-message update received")
		w.WriteHeader(http.StatusOK)
		return
	}
	log.Info().Int64("chat_id", update.Message.Chat.ID).Str("text", update.Message.Text).Msg("webhook: message")
	go h.HandleMessage(update.Message)
	w.WriteHeader(http.StatusOK)
}
