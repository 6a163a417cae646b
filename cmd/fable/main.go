package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/antoniostano/fable/internal/config"
	"github.com/antoniostano/fable/internal/engine"
	"github.com/antoniostano/fable/internal/httpapi"
	"github.com/antoniostano/fable/internal/narrator"
	"github.com/antoniostano/fable/internal/observability"
	"github.com/antoniostano/fable/internal/policy"
	"github.com/antoniostano/fable/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	st, err := store.New(ctx, cfg.DatabaseURL, cfg.StateFile, cfg.SessionID)
	if err != nil {
		log.Fatalf("state store init failed: %v", err)
	}
	defer st.Close()
	if cfg.DatabaseURL != "" {
		log.Printf("state store: postgres (session %q)", cfg.SessionID)
	} else {
		log.Printf("state store: file %q", cfg.StateFile)
	}

	client, err := narrator.NewClient(narrator.Config{
		Mode:    cfg.NarratorMode,
		APIKey:  cfg.NarratorAPIKey,
		BaseURL: cfg.NarratorBaseURL,
		Model:   cfg.NarratorModel,
	})
	if err != nil {
		log.Fatalf("narrator init failed: %v", err)
	}
	if _, ok := client.(*narrator.MockClient); ok {
		log.Printf("narrator: mock (no API key configured)")
	} else {
		log.Printf("narrator: %s via %s", cfg.NarratorModel, cfg.NarratorBaseURL)
	}

	hub := httpapi.NewHub(metrics)
	game := engine.New(st, client, hub, metrics, engine.Config{
		HistoryWindow:    cfg.HistoryWindow,
		TurnTimeout:      cfg.TurnTimeout,
		NarrationTimeout: cfg.NarratorRequestTimeout,
		MaxTokens:        cfg.NarratorMaxTokens,
		Temperature:      cfg.NarratorTemperature,
	})

	auth := policy.NewAuthorizer(cfg.AdminToken, cfg.AdminActors)
	api := httpapi.New(cfg, game, hub, st, auth, metrics)

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	go game.RunSupervisor(runCtx, cfg.TimeoutCheckInterval)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
