package main

import (
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	natsgo "github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/tapchip-services/configs"
	"github.com/avvvet/tapchip-services/internal/comm"
	"github.com/avvvet/tapchip-services/internal/nats"
	"github.com/avvvet/tapchip-services/internal/notifysvc"
)

const SERVICE_NAME = "notify"

func init() {
	config.Bootstrap(SERVICE_NAME)
}

func main() {
	cfg, err := notifysvc.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("Failed to create telegram bot: %v", err)
	}
	log.Infof("Telegram notifier initialized with %d chat IDs", len(cfg.ChatIDs))
	tn := notifysvc.NewTelegramNotifier(bot, cfg.ChatIDs)

	n, err := nats.Connect(cfg.NATS.URL, cfg.NATS.Token, SERVICE_NAME+"-service")
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	var subs []*natsgo.Subscription
	for _, topic := range []string{comm.SubjectClaimed, comm.SubjectLeadCaptured} {
		sub, err := tn.Subscribe(n.Conn, topic, cfg.QueueGroup)
		if err != nil {
			log.Errorf("Error: unable to subscribe to %s %v", topic, err)
			os.Exit(1)
		}
		subs = append(subs, sub)
	}
	log.Infof("%s service running", SERVICE_NAME)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	for _, sub := range subs {
		sub.Drain()
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
