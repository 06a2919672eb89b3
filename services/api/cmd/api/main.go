package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/app"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/clock"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/config"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/currency"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/events"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/storage/postgres"
	transporthttp "github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/transport/http"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/worker"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/migrations"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if err := run(logger, level); err != nil {
		logger.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, level *slog.LevelVar) error {
	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}
	level.Set(cfg.LogLevel)

	rates := currency.DefaultRates()
	if cfg.ExchangeRatesFile != "" {
		if rates, err = currency.LoadRatesFile(cfg.ExchangeRatesFile); err != nil {
			return err
		}
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		return err
	}
	applied, err := migrations.Apply(startupCtx, pool)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		logger.Info("applied migrations", "names", applied)
	}

	clk := clock.NewSystem()
	opts := []app.BookingServiceOption{
		app.WithOwnerResponseWindow(cfg.OwnerResponseWindow),
		app.WithPaymentWindow(cfg.PaymentWindow),
		app.WithOnlinePaymentPercent(cfg.OnlinePaymentPercent),
		app.WithLogger(logger),
	}

	var publisher *events.Publisher
	if cfg.RabbitURL != "" {
		publisher, err = events.DialPublisher(cfg.RabbitURL, cfg.BookingExchange)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, app.WithEventPublisher(publisher))
	} else {
		logger.Warn("RABBIT_URL not set, booking events are not published")
	}

	bookingSvc := app.NewBookingService(postgres.NewBookingRepository(pool), clk, opts...)
	adminSvc := app.NewAdminService(postgres.NewAdminRepository(pool), clk)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	sweeper := worker.NewExpirySweeper(bookingSvc, clk, logger, cfg.ExpirySweepInterval, cfg.ExpirySweepBatch)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	if cfg.RabbitURL != "" {
		consumer := events.NewPaymentConsumer(bookingSvc, logger)
		if err := consumer.Connect(cfg.RabbitURL, cfg.PaymentExchange, cfg.PaymentQueue); err != nil {
			return err
		}
		defer consumer.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil {
				logger.Error("payment consumer stopped", "err", err)
			}
		}()
	}

	secret := []byte(cfg.JWTSecret)
	authed := func(h http.Handler) http.Handler { return transporthttp.Authenticate(secret, h) }

	mux := http.NewServeMux()
	mux.Handle("/health", transporthttp.HandleHealth(pool))
	mux.Handle("/exchange-rates", authed(transporthttp.HandleExchangeRates(currency.NewEngine(rates))))
	mux.Handle("/bookings", authed(transporthttp.HandleCreateBooking(bookingSvc)))
	mux.Handle("/bookings/", authed(transporthttp.HandleBooking(bookingSvc)))
	mux.Handle("/admin/users", authed(transporthttp.HandleAdminUsers(adminSvc)))
	mux.Handle("/admin/cars", authed(transporthttp.HandleAdminCars(adminSvc)))
	mux.Handle("/", transporthttp.NotFoundHandler())

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           transporthttp.RequestLogger(transporthttp.CORS(cfg.Origins(), mux), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("api listening", "port", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping server")
	}
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", "err", err)
	}
	wg.Wait()
	logger.Info("server stopped")
	return nil
}
