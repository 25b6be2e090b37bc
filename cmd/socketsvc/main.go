package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	natsgo "github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/tapchip-services/configs"
	"github.com/avvvet/tapchip-services/internal/chipsvc/db"
	"github.com/avvvet/tapchip-services/internal/comm"
	"github.com/avvvet/tapchip-services/internal/nats"
	"github.com/avvvet/tapchip-services/internal/socketsvc/broker"
	"github.com/avvvet/tapchip-services/internal/socketsvc/handlers"
	"github.com/avvvet/tapchip-services/internal/socketsvc/routes"
	"github.com/avvvet/tapchip-services/internal/socketsvc/ws"
)

const SERVICE_NAME = "socket"

func init() {
	config.Bootstrap(SERVICE_NAME)
}

func main() {
	cfg, err := ws.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	stores, err := db.Open(context.Background(), cfg.StoreDriver, cfg.StoreTarget())
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer stores.Close()

	// Connect to NATS
	n, err := nats.Connect(cfg.NATS.URL, cfg.NATS.Token, SERVICE_NAME+"-service")
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.AllowedOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Initialize websocket handler
	s := ws.NewWs()
	routes.InitAuth(cfg.JWTSecret)
	h := handlers.NewHandler(s, stores.Users, cfg.AllowedOrigins, cfg.Port)
	routes.SetRoutes(r, h)

	ctx, stopKeepalive := context.WithCancel(context.Background())
	defer stopKeepalive()
	go h.Keepalive(ctx, cfg.PingInterval)

	// relay tap-side events to the owners' sockets
	b := broker.NewBroker(n.Conn, s.GetOwnerSockets, s.Send)

	var subs []*natsgo.Subscription
	for _, topic := range []string{comm.SubjectScan, comm.SubjectClaimed, comm.SubjectLeadCaptured} {
		sub, err := b.Subscribe(topic)
		if err != nil {
			log.Errorf("Error: unable to subscribe to %s %v", topic, err)
			os.Exit(1)
		}
		subs = append(subs, sub)
	}

	// Create server with timeout settings
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	for _, sub := range subs {
		sub.Unsubscribe()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
