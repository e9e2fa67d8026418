package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ivankia/aeternal/internal/config"
	"github.com/ivankia/aeternal/internal/eventbus"
	"github.com/ivankia/aeternal/internal/logging"
	"github.com/ivankia/aeternal/pkg/broadcast"
	"github.com/ivankia/aeternal/pkg/subscription"
	"github.com/ivankia/aeternal/pkg/transport/websocket"
)

func main() {
	cfg, err := config.Load(config.LoadOptions{Path: os.Getenv("AETERNAL_CONFIG")})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := eventbus.NewInMemoryBus(256)
	bus.Start(ctx)
	defer bus.Stop()

	bus.Subscribe(eventbus.EventDeliveryFailed, func(event *eventbus.Event) {
		logger.Warn("delivery failed", "data", event.Data)
	})

	registry := subscription.NewRegistry(logger)

	dispatcher := broadcast.NewDispatcher(registry, logger, bus, broadcast.Options{
		Workers:     cfg.Broadcast.Workers,
		QueueSize:   cfg.Broadcast.QueueSize,
		SendTimeout: cfg.Broadcast.SendTimeout,
	})
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	wsServer := websocket.NewServer(
		websocket.WithRegistry(registry),
		websocket.WithLogger(logger),
		websocket.WithEventBus(bus),
	)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ws", wsServer.ServeHTTP)
	r.Get("/status", statusHandler(registry, dispatcher))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("websocket server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// statusHandler reports hub statistics.
func statusHandler(registry *subscription.Registry, dispatcher *broadcast.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := struct {
			ConnectedClients int             `json:"connected_clients"`
			Dispatcher       broadcast.Stats `json:"dispatcher"`
		}{
			ConnectedClients: registry.ClientCount(),
			Dispatcher:       dispatcher.GetStats(),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	}
}
