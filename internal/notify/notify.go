// Package notify sends human-readable wave announcements to a chat.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier delivers a text message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// sender is the part of *tgbotapi.BotAPI used here.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts messages to one chat through the Bot API.
type Telegram struct {
	bot    sender
	chatID int64
	log    *zap.Logger
}

// requestTimeout caps every Bot API round trip, including the ones
// Notify has stopped waiting for.
const requestTimeout = 30 * time.Second

// NewTelegram authenticates with the Bot API using token.
func NewTelegram(token string, chatID int64, log *zap.Logger) (*Telegram, error) {
	client := &http.Client{Timeout: requestTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	t := newTelegram(bot, chatID, log)
	t.log.Info("telegram authorized", zap.String("account", bot.Self.UserName))
	return t, nil
}

func newTelegram(bot sender, chatID int64, log *zap.Logger) *Telegram {
	if log == nil {
		log = zap.NewNop()
	}
	return &Telegram{bot: bot, chatID: chatID, log: log}
}

// Notify sends text to the configured chat. It returns ctx.Err() if ctx
// is done before the Bot API answers; the request itself is abandoned, not
// cancelled, and ends at the HTTP client timeout.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		t.log.Debug("telegram sent", zap.Int64("chat_id", t.chatID))
		return nil
	case <-ctx.Done():
		t.log.Warn("telegram send abandoned", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

// Nop discards every message.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

// Fake records messages for tests.
type Fake struct {
	mu       sync.Mutex
	Messages []string
	Err      error
}

// Notify records text unless Err is set.
func (f *Fake) Notify(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Messages = append(f.Messages, text)
	return nil
}

// Sent returns a copy of the recorded messages.
func (f *Fake) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Messages...)
}

var (
	_ Notifier = (*Telegram)(nil)
	_ Notifier = Nop{}
	_ Notifier = (*Fake)(nil)
)
