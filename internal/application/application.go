package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/config"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/database"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/handler"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/registry"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/relay"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/router"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/store"
)

// API is the HTTP + WebSocket signaling application.
type API struct {
	cfg *config.Config
	srv *http.Server
	db  *gorm.DB
	hub *relay.Hub
	log *zap.Logger
}

// NewAPI creates the API application: validates config, runs migrations,
// opens DB, builds the relay hub and router.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	logger, _ := zap.NewProduction()
	if cfg.AppEnv == "development" {
		logger, _ = zap.NewDevelopment()
	}

	st := store.New(db)
	hub := relay.NewHub(registry.New(), st, logger)

	signalWS := handler.NewSignalWSHandler(hub, cfg.WSReadBufferSize, cfg.WSWriteBufferSize, cfg.WSMaxMessageSize, logger)
	artifacts := handler.NewArtifactHandler(st, cfg.ArtifactMaxSize)
	health := handler.NewHealthHandler()

	r := router.New(signalWS, artifacts, health)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{cfg: cfg, srv: srv, db: db, hub: hub, log: logger}, nil
}

// Run starts the relay loop and HTTP server and blocks until ctx is
// cancelled; then shuts down gracefully.
func (a *API) Run(ctx context.Context) error {
	defer a.log.Sync()

	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	log.Printf("HTTP server listening on %s", a.srv.Addr)
	log.Printf("  Health:    http://%s:%s/health", host, a.cfg.HTTPPort)
	log.Printf("  Artifacts: http://%s:%s/sessions/:token/artifacts", host, a.cfg.HTTPPort)
	log.Printf("  Signaling: ws://%s:%s/ws/signal", host, a.cfg.HTTPPort)

	go a.hub.Run(ctx)

	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
