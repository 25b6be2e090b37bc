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
	"github.com/avvvet/tapchip-services/internal/chipsvc/broker"
	chipconfig "github.com/avvvet/tapchip-services/internal/chipsvc/config"
	"github.com/avvvet/tapchip-services/internal/chipsvc/db"
	"github.com/avvvet/tapchip-services/internal/chipsvc/handlers"
	"github.com/avvvet/tapchip-services/internal/chipsvc/scanlog"
	"github.com/avvvet/tapchip-services/internal/chipsvc/service"
	nats "github.com/avvvet/tapchip-services/internal/nats"
)

const SERVICE_NAME = "tap"

func init() {
	config.Bootstrap(SERVICE_NAME)
}

func main() {
	cfg, err := chipconfig.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	target := cfg.DBUrl
	if cfg.StoreDriver == chipconfig.DriverSQLite {
		target = cfg.SQLitePath
	}
	stores, err := db.Open(context.Background(), cfg.StoreDriver, target)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer stores.Close()

	var (
		sinks    []scanlog.Sink
		notifier service.Notifier
	)
	if cfg.HasSink(chipconfig.SinkStore) {
		sinks = append(sinks, stores.Scans)
	}

	// NATS is optional for the tap path; without it claims and leads are
	// not announced.
	n, err := nats.Connect(cfg.NATS.URL, cfg.NATS.Token, SERVICE_NAME+"-service")
	if err != nil {
		if cfg.HasSink(chipconfig.SinkNATS) {
			log.Fatalf("Error: unable to connect to NATS server %v", err)
		}
		log.Warnf("NATS unavailable, notices disabled: %v", err)
	} else {
		defer n.Conn.Close()
		log.Printf("NATS connection established successfully %s", n.Url)

		b := broker.NewBroker(n.Conn)
		notifier = b
		if cfg.HasSink(chipconfig.SinkNATS) {
			sinks = append(sinks, b)
		}
	}

	scans := scanlog.NewLogger(cfg.ScanLogTimeout, sinks...)

	chipService, err := service.NewChipService(stores.Chips, stores.Users, stores.Scans)
	if err != nil {
		log.Fatalf("Failed to init chip service: %v", err)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.CORSOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(c.Handler)

	// tap URLs are public and easy to hammer
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(handlers.Options{
		JWTSecret: cfg.JWTSecret,
		Locator:   handlers.Locator{BaseURL: cfg.PublicBaseURL, GhostPath: cfg.GhostPath},
		SignInURL: cfg.SignInURL,
		Port:      cfg.Port,
	},
		service.NewTapService(stores.Chips, scans),
		service.NewClaimService(stores.Chips, stores.Users, notifier),
		chipService,
		service.NewLeadService(stores.Chips, stores.Leads, notifier),
	)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
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

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}

	// let in-flight scan writes land before the stores close
	scans.Wait()
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
