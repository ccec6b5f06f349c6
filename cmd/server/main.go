package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restopos/internal/config"
	"restopos/internal/infra"
	"restopos/internal/metrics"
	"restopos/internal/repository"
	"restopos/internal/router"
	"restopos/internal/service"
	"restopos/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := infra.NewDatabase(cfg.DSN(), infra.DatabaseOptions{
		MaxOpenConns:   cfg.DBMaxOpenConns,
		MaxIdleConns:   cfg.DBMaxIdleConns,
		ConnectTimeout: cfg.ConnectTimeout(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()

	rdb, err := infra.NewRedis(cfg.RedisURL, cfg.ConnectTimeout())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	// Worker handlers are wired here (composition root) so that the pool has
	// access to the mailer and its circuit breaker.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cbCfg := infra.DefaultCBConfig()
	cbCfg.OnStateChange = func(name string, from, to infra.CBState) {
		metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
	}
	smtpCB := infra.NewCircuitBreaker(cbCfg)
	metrics.CircuitBreakerState.WithLabelValues(cbCfg.Name).Set(float64(infra.CBClosed))

	mailer := infra.NewMailer(cfg)
	if !mailer.Configured() {
		log.Warn().Msg("SMTP_HOST not set: closed bills will not be mailed")
	}

	dispatcher := worker.NewDispatcher(rdb)
	pool := worker.NewPool(rdb)
	pool.Handle(worker.QueueCuenta, worker.JobCuenta,
		worker.NewCuentaWorker(mailer, smtpCB, cfg.PDFStoragePath, cfg.RestaurantName))
	pool.Start(ctx, cfg.WorkerPoolSize)

	integridadSvc := service.NewIntegridadService(
		repository.NewIntegridadRepository(db.DB),
		repository.NewMesaRepository(db.DB),
	)
	worker.StartIntegridadCron(ctx, integridadSvc, cfg.IntegridadInterval())

	r := router.New(cfg, db.DB, rdb, dispatcher)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("env", cfg.Env).Msgf("restopos listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	// Stop the workers after the HTTP server so no new jobs are enqueued.
	cancel()
	pool.Wait()
	log.Info().Msg("server exited")
}
