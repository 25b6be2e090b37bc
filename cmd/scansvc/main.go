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
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/tapchip-services/configs"
	"github.com/avvvet/tapchip-services/internal/comm"
	"github.com/avvvet/tapchip-services/internal/db"
	nats "github.com/avvvet/tapchip-services/internal/nats"
	"github.com/avvvet/tapchip-services/internal/scansvc"
)

const SERVICE_NAME = "scan"

func init() {
	config.Bootstrap(SERVICE_NAME)
}

func main() {
	cfg, err := scansvc.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	mdb, err := db.ConnectToDB(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mdb.Client().Disconnect(context.Background())
	log.Printf("mongo connection established successfully")

	archive, err := scansvc.NewArchive(ctx, mdb, cfg.Retention())
	if err != nil {
		log.Fatalf("Failed to prepare scan archive: %v", err)
	}

	// Connect to NATS
	n, err := nats.Connect(cfg.NATS.URL, cfg.NATS.Token, SERVICE_NAME+"-service")
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	consumer := scansvc.NewConsumer(n.Conn, archive)
	sub, err := consumer.QueueSubscribe(comm.SubjectScan, cfg.QueueGroup)
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(1)
	}

	// Setup router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	h := scansvc.NewHandler(cfg.JWTSecret, cfg.Port, archive)
	h.SetRoutes(r)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	// drain lets in-flight scans finish before the connection closes
	if err := sub.Drain(); err != nil {
		log.Warnf("drain subscription: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
