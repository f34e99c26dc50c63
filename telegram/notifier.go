package telegram

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/lid_lottery/internal/services"
	"github.com/mroshb/lid_lottery/pkg/logger"
)

const queueSize = 100

// Sender is the part of the bot API the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier tells the admin chat about wins and redemptions. Messages are
// sent from a background goroutine; Emit never blocks on the network.
type Notifier struct {
	sender Sender
	chatID int64

	mu     sync.RWMutex
	closed bool
	queue  chan services.Event
	done   chan struct{}
}

// NewBotSender authorizes against the bot API with token.
func NewBotSender(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = debug

	logger.Info("Authorized on account", "username", api.Self.UserName)
	return api, nil
}

func NewNotifier(sender Sender, chatID int64) *Notifier {
	n := &Notifier{
		sender: sender,
		chatID: chatID,
		queue:  make(chan services.Event, queueSize),
		done:   make(chan struct{}),
	}
	go n.run()
	return n
}

// Emit queues event if it is worth a notification. It fails when the queue
// is full or the notifier is closed.
func (n *Notifier) Emit(_ context.Context, event services.Event) error {
	if formatEvent(event) == "" {
		return nil
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return fmt.Errorf("notifier closed")
	}

	select {
	case n.queue <- event:
		return nil
	default:
		return fmt.Errorf("notification queue full, dropping %s event for %s", event.Kind, event.Code)
	}
}

// Close stops accepting events and waits for queued ones to be sent.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	<-n.done
}

func (n *Notifier) run() {
	defer close(n.done)

	for event := range n.queue {
		msg := tgbotapi.NewMessage(n.chatID, formatEvent(event))
		if _, err := n.sender.Send(msg); err != nil {
			logger.Warn("Failed to send admin notification",
				"kind", event.Kind,
				"code", event.Code,
				"error", err,
			)
		}
	}
}

func formatEvent(event services.Event) string {
	if event.Replayed {
		return ""
	}
	at := event.At.UTC().Format("2006-01-02 15:04:05")
	switch {
	case event.Kind == services.EventPlay && event.Result == string(services.PlayStatusWin):
		return fmt.Sprintf("🎉 Code %s won a coupon (%s UTC)", event.Code, at)
	case event.Kind == services.EventRedeem && event.Result == string(services.RedeemStatusOK):
		return fmt.Sprintf("✅ Coupon of code %s redeemed (%s UTC)", event.Code, at)
	}
	return ""
}
