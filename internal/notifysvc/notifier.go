// Package notifysvc forwards claim and lead notices to operator Telegram
// chats.
package notifysvc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tapchip-services/internal/comm"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends each notice to every configured chat.
type TelegramNotifier struct {
	bot     Sender
	chatIDs []int64
}

func NewTelegramNotifier(bot Sender, chatIDs []int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatIDs: chatIDs}
}

// SendNotification delivers text to all chats and reports every failure.
func (tn *TelegramNotifier) SendNotification(text string) error {
	var errs []error
	for _, chatID := range tn.chatIDs {
		if _, err := tn.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe uses a queue group so replicas do not double-notify.
func (tn *TelegramNotifier) Subscribe(conn *nats.Conn, topic, queueGroup string) (*nats.Subscription, error) {
	return conn.QueueSubscribe(topic, queueGroup, func(m *nats.Msg) {
		if err := tn.handle(m.Data); err != nil {
			log.Errorf("Error notifying %s: %v", topic, err)
		}
	})
}

func (tn *TelegramNotifier) handle(data []byte) error {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(data, message); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	text, err := format(message)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	return tn.SendNotification(text)
}

func format(message *comm.WSMessage) (string, error) {
	switch message.Type {
	case comm.TypeClaimed:
		var n comm.ClaimNotice
		if err := json.Unmarshal(message.Data, &n); err != nil {
			return "", fmt.Errorf("decode claim: %w", err)
		}
		return fmt.Sprintf("Chip %s claimed by user %s", n.UID, n.OwnerID), nil
	case comm.TypeLead:
		var n comm.LeadNotice
		if err := json.Unmarshal(message.Data, &n); err != nil {
			return "", fmt.Errorf("decode lead: %w", err)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "New lead on chip %s: %s", n.ChipID, n.Name)
		if n.Email != "" {
			fmt.Fprintf(&b, " <%s>", n.Email)
		}
		if n.LeadPhone != nil {
			fmt.Fprintf(&b, " tel %s", *n.LeadPhone)
		}
		if n.Sentiment != nil {
			fmt.Fprintf(&b, " (%s)", *n.Sentiment)
		}
		return b.String(), nil
	}
	log.Debugf("ignoring %s message", message.Type)
	return "", nil
}
