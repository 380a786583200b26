// Package notify delivers announcements to destination chats.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sony/gobreaker"
)

// messageSender is the slice of the bot API the notifier needs, so tests
// can stand in for a live bot.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends messages to Telegram chats. Destination ids are
// string-encoded chat ids. Sends pass through a circuit breaker so a dead
// destination platform degrades to fast logged failures instead of stalling
// every sweep on timeouts.
type TelegramNotifier struct {
	bot     messageSender
	breaker *gobreaker.CircuitBreaker
}

func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return newTelegramNotifier(bot), nil
}

func newTelegramNotifier(bot messageSender) *TelegramNotifier {
	return &TelegramNotifier{
		bot: bot,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "telegram",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Notify delivers one message. A failure means "delivery not confirmed";
// callers log it and continue, and dedup state stays advanced.
func (n *TelegramNotifier) Notify(ctx context.Context, destinationID, text string) error {
	chatID, err := strconv.ParseInt(destinationID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid destination id %q: %w", destinationID, err)
	}

	_, err = n.breaker.Execute(func() (any, error) {
		msg := tgbotapi.NewMessage(chatID, text)
		_, sendErr := n.bot.Send(msg)
		return nil, sendErr
	})
	if err != nil {
		return fmt.Errorf("failed to deliver to destination %s: %w", destinationID, err)
	}
	return nil
}
