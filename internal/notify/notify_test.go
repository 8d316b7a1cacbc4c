package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.err != nil {
		return tgbotapi.Message{}, b.err
	}
	b.sent = append(b.sent, c)
	return tgbotapi.Message{MessageID: len(b.sent)}, nil
}

func TestTelegramNotify(t *testing.T) {
	bot := &fakeBot{}
	tg := newTelegram(bot, 42, nil)

	require.NoError(t, tg.Notify(context.Background(), "Happy New Year 2025, Tokyo!"))
	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "Happy New Year 2025, Tokyo!", msg.Text)
}

func TestTelegramNotifyError(t *testing.T) {
	tg := newTelegram(&fakeBot{err: errors.New("429 too many requests")}, 1, nil)
	err := tg.Notify(context.Background(), "x")
	assert.ErrorContains(t, err, "telegram send")
}

func TestTelegramNotifyCancelled(t *testing.T) {
	bot := &fakeBot{}
	tg := newTelegram(bot, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tg.Notify(ctx, "x"), context.Canceled)
	assert.Empty(t, bot.sent)
}

type blockingBot struct {
	release chan struct{}
}

func (b *blockingBot) Send(tgbotapi.Chattable) (tgbotapi.Message, error) {
	<-b.release
	return tgbotapi.Message{}, nil
}

func TestTelegramNotifyHonoursDeadline(t *testing.T) {
	bot := &blockingBot{release: make(chan struct{})}
	defer close(bot.release)
	tg := newTelegram(bot, 1, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := tg.Notify(ctx, "Happy New Year 2025, Auckland!")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFake(t *testing.T) {
	f := &Fake{}
	require.NoError(t, f.Notify(context.Background(), "a"))
	require.NoError(t, f.Notify(context.Background(), "b"))
	assert.Equal(t, []string{"a", "b"}, f.Sent())

	f.Err = errors.New("down")
	assert.Error(t, f.Notify(context.Background(), "c"))
	assert.Len(t, f.Sent(), 2)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Notify(context.Background(), "ignored"))
}
