package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/darkvj25/isopos/internal/config"
	"github.com/darkvj25/isopos/internal/httpapi"
	"github.com/darkvj25/isopos/internal/service"
	"github.com/darkvj25/isopos/internal/store"
	"github.com/darkvj25/isopos/internal/store/memory"
	pgstore "github.com/darkvj25/isopos/internal/store/postgres"
	redisstore "github.com/darkvj25/isopos/internal/store/redis"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("invalid store timezone: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adapter, closers, err := openAdapter(ctx, cfg)
	if err != nil {
		log.Fatalf("storage unavailable: %v", err)
	}

	svc, err := service.Open(ctx, adapter,
		service.WithLocation(loc),
		service.WithLowStockThreshold(cfg.LowStockThreshold),
	)
	if err != nil {
		log.Fatalf("load store state: %v", err)
	}
	closers = append([]func() error{svc.Close}, closers...)

	api := httpapi.New(svc, httpapi.NewTokenVerifier(cfg.AuthSecret), cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("POS core listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// openAdapter connects the configured backend. A configured backend that is
// unreachable is an error; there is no silent in-memory fallback.
func openAdapter(ctx context.Context, cfg config.Config) (store.Adapter, []func() error, error) {
	switch cfg.Backend() {
	case config.BackendPostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
		log.Println("repository: postgres")
		return pg, []func() error{pg.Close}, nil
	case config.BackendRedis:
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKeyPrefix)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		log.Println("repository: redis")
		return rs, []func() error{rs.Close}, nil
	default:
		log.Println("repository: in-memory")
		if cfg.SeedSampleCatalog {
			return memory.NewSeeded(), nil, nil
		}
		return memory.New(), nil, nil
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
