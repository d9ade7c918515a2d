package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"qr-dine/internal/common/httpx"
	"qr-dine/internal/common/logger"
	"qr-dine/internal/config"
	"qr-dine/internal/connections/database"
	"qr-dine/internal/connections/rabbitmq"
	"qr-dine/internal/events"
	"qr-dine/internal/handlers"
	"qr-dine/internal/repository"
	"qr-dine/internal/service"
)

func main() {
	lg := logger.New("qr-dine")
	defer lg.Sync()

	if err := run(lg); err != nil {
		lg.Error("fatal", err, nil)
		os.Exit(1)
	}
}

func run(lg *logger.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	lg.Info("postgres_connected", map[string]any{
		"host": cfg.Database.Host, "port": cfg.Database.Port, "database": cfg.Database.Database,
	})

	mq, err := rabbitmq.Dial(rabbitmq.Config{
		Host:     cfg.RabbitMQ.Host,
		Port:     cfg.RabbitMQ.Port,
		User:     cfg.RabbitMQ.User,
		Password: cfg.RabbitMQ.Password,
		VHost:    cfg.RabbitMQ.VHost,
	})
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	defer mq.Close()
	if err := mq.DeclareTopology(); err != nil {
		return fmt.Errorf("declare rabbitmq topology: %w", err)
	}
	lg.Info("rabbitmq_connected", map[string]any{
		"host": cfg.RabbitMQ.Host, "port": cfg.RabbitMQ.Port,
	})

	sessionRepo := repository.NewSessionRepository(pool)
	menuRepo := repository.NewMenuRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	deskRepo := repository.NewDeskRepository(pool)

	publisher := events.NewPublisher(mq)

	sessions := service.NewSessionService(sessionRepo, cfg.SessionTTLHours, lg)
	carts := service.NewCartService(sessions, menuRepo, cartRepo, cfg.ServiceFeeBps, lg)
	orders := service.NewOrderService(sessions, menuRepo, cartRepo, orderRepo, publisher, cfg.ServiceFeeBps, lg)
	desks := service.NewDeskService(deskRepo, publisher, lg)

	h := handlers.New(sessions, carts, orders, desks, lg)
	srv := httpx.New(fmt.Sprintf(":%d", cfg.HTTPPort), h.Routes(cfg.MaxConcurrent))

	lg.Info("service_started", map[string]any{
		"port": cfg.HTTPPort, "max_concurrent": cfg.MaxConcurrent,
	})
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	lg.Info("graceful_shutdown", nil)
	return nil
}
