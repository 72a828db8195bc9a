// Package telegram connects the bot to the Telegram Bot API. Updates arrive by
// long polling or webhook, go through the dispatch queue and the replies are
// sent back to the chat.
package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dvloznov/farm-ledger/internal/api/middleware"
	"github.com/dvloznov/farm-ledger/internal/bot"
	"github.com/dvloznov/farm-ledger/internal/jobs"
	"github.com/dvloznov/farm-ledger/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageRunes is Telegram's limit for one text message.
const maxMessageRunes = 4096

const pollTimeoutSeconds = 60

// SecretHeader carries the webhook secret on every update Telegram posts.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// API is the subset of the Bot API client the adapter uses.
// This interface enables mocking and testing of Telegram calls.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler answers one message.
type Handler interface {
	Handle(ctx context.Context, msg bot.Message) bot.Reply
}

// Adapter moves messages between Telegram and the bot.
type Adapter struct {
	api       API
	handler   Handler
	publisher jobs.Publisher
}

// NewAdapter creates an adapter publishing updates to publisher.
func NewAdapter(api API, handler Handler, publisher jobs.Publisher) *Adapter {
	return &Adapter{api: api, handler: handler, publisher: publisher}
}

// NewBotAPI connects to Telegram with token.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("NewBotAPI: %w", err)
	}
	return api, nil
}

// JobFromUpdate converts an update into a dispatch job. ok is false for
// updates without a text message.
func JobFromUpdate(u tgbotapi.Update) (*jobs.UpdateJob, bool) {
	m := u.Message
	if m == nil || m.Text == "" || m.From == nil || m.Chat == nil {
		return nil, false
	}
	return &jobs.UpdateJob{
		UpdateID:  u.UpdateID,
		ChatID:    m.Chat.ID,
		UserID:    m.From.ID,
		FirstName: m.From.FirstName,
		Text:      m.Text,
		SentAt:    time.Unix(int64(m.Date), 0),
	}, true
}

// Enqueue publishes a text update; other updates are dropped.
func (a *Adapter) Enqueue(ctx context.Context, u tgbotapi.Update) error {
	job, ok := JobFromUpdate(u)
	if !ok {
		return nil
	}
	if err := a.publisher.PublishUpdate(ctx, job); err != nil {
		return fmt.Errorf("Enqueue: update %d: %w", u.UpdateID, err)
	}
	return nil
}

// Dispatch is the queue's job handler: it runs the bot and sends the reply.
func (a *Adapter) Dispatch(ctx context.Context, job *jobs.UpdateJob) error {
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"job_id":    job.JobID,
		"update_id": job.UpdateID,
		"chat_id":   job.ChatID,
	})
	ctx = logger.WithContext(ctx, log)

	reply := a.handler.Handle(ctx, bot.Message{
		UserID:    job.UserID,
		ChatID:    job.ChatID,
		FirstName: job.FirstName,
		Text:      job.Text,
		Time:      job.SentAt,
	})
	return a.send(job.ChatID, reply)
}

func (a *Adapter) send(chatID int64, reply bot.Reply) error {
	if reply.Document != nil {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  reply.Document.Name,
			Bytes: reply.Document.Data,
		})
		doc.Caption = reply.Text
		if _, err := a.api.Send(doc); err != nil {
			return fmt.Errorf("send: document %s: %w", reply.Document.Name, err)
		}
		return nil
	}

	for _, part := range splitText(reply.Text, maxMessageRunes) {
		if _, err := a.api.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			return fmt.Errorf("send: message to %d: %w", chatID, err)
		}
	}
	return nil
}

// splitText cuts text into chunks of at most n runes, preferring line breaks.
func splitText(text string, n int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	var parts []string
	for len(runes) > n {
		cut := n
		for i := n; i > n/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	return append(parts, string(runes))
}

// Poll removes any webhook and long-polls for updates until ctx is done.
func (a *Adapter) Poll(ctx context.Context) error {
	if _, err := a.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("Poll: deleting webhook: %w", err)
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSeconds
	updates := a.api.GetUpdatesChan(cfg)
	defer a.api.StopReceivingUpdates()

	log := logger.FromContext(ctx)
	log.Info().Msg("Polling for updates")

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if err := a.Enqueue(ctx, u); err != nil {
				log.Error().Err(err).Msg("Failed to enqueue update")
			}
		}
	}
}

// SetWebhook registers url with Telegram. Telegram echoes secret in SecretHeader
// on every update it posts.
func (a *Adapter) SetWebhook(url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	resp, err := a.api.MakeRequest("setWebhook", params)
	if err != nil {
		return fmt.Errorf("SetWebhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("SetWebhook: %s", resp.Description)
	}
	return nil
}

// WebhookHandler accepts updates posted by Telegram. Requests without the
// matching secret are rejected, and an empty secret rejects everything. The
// update is queued and acknowledged at once; the reply is sent by the dispatch
// worker.
func (a *Adapter) WebhookHandler(secret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}

		got := r.Header.Get(SecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			log := logger.FromContext(r.Context())
			log.Warn().Str("remote", r.RemoteAddr).Msg("Rejected webhook request with bad secret")
			middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var u tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid update")
			return
		}

		if err := a.Enqueue(r.Context(), u); err != nil {
			log := logger.FromContext(r.Context())
			log.Error().Err(err).Msg("Failed to enqueue webhook update")
			middleware.WriteError(w, http.StatusServiceUnavailable, "Queue unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}
