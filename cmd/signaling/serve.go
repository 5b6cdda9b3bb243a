package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mossy-p/meet-signaling/config"
	"github.com/mossy-p/meet-signaling/internal/handlers"
	"github.com/mossy-p/meet-signaling/internal/logging"
	"github.com/mossy-p/meet-signaling/internal/redis"
	"github.com/mossy-p/meet-signaling/internal/registry"
	"github.com/mossy-p/meet-signaling/internal/relay"
	"github.com/mossy-p/meet-signaling/internal/rooms"
)

const shutdownTimeout = 5 * time.Second

func serve(parent context.Context, cfg *config.Config) error {
	log.Logger = logging.New(cfg)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Workers outlive the signal context so shutdown can drain them in order.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	hub := handlers.NewHub()
	opts := []relay.Option{relay.WithLogger(log.Logger)}

	srv := handlers.Server{Config: cfg, Hub: hub}

	var store *redis.Store
	if cfg.Redis.Enabled {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		var err error
		store, err = redis.Connect(connectCtx, cfg.Redis, log.Logger)
		cancel()
		if err != nil {
			return err
		}
		defer store.Close()
		go store.Run(workCtx)

		opts = append(opts, relay.WithMirror(store))
		srv.Store = store
		log.Info().Str("addr", cfg.Redis.Addr()).Msg("Redis connection established")
	}

	rly := relay.New(registry.New(), rooms.NewTable(), hub, opts...)
	go rly.Run(workCtx)
	srv.Relay = rly

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	logListening(cfg.Port)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	// Hijacked websocket connections are not closed by Shutdown.
	hub.CloseAll()
	if err := hub.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("timed out waiting for websocket clients")
	}
	// Stats runs behind every queued disconnect, so the mirror has seen them.
	if stats, err := rly.Stats(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("relay did not settle before shutdown")
	} else {
		log.Info().Int("connections", stats.Connections).Int("rooms", stats.Rooms).Msg("relay settled")
	}
	cancelWork()
	if store != nil {
		<-store.Done()
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server exited after shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func logListening(port string) {
	ev := log.Info().Str("local", "http://localhost:"+port)
	if ip := networkIP(); ip != "" {
		ev = ev.Str("network", "http://"+ip+":"+port)
	}
	ev.Msg("signaling server listening")
}

// networkIP returns the first non-loopback IPv4 address, or "".
func networkIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return ""
}
