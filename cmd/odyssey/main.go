package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-hotel/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-hotel/internal/app"
	"github.com/odyssey-erp/odyssey-hotel/internal/clients"
	"github.com/odyssey-erp/odyssey-hotel/internal/notify"
	"github.com/odyssey-erp/odyssey-hotel/internal/observability"
	"github.com/odyssey-erp/odyssey-hotel/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-hotel/internal/platform/db"
	"github.com/odyssey-erp/odyssey-hotel/internal/reservation"
	"github.com/odyssey-erp/odyssey-hotel/internal/rooms"
	"github.com/odyssey-erp/odyssey-hotel/internal/shared"
	"github.com/odyssey-erp/odyssey-hotel/jobs"
	"github.com/odyssey-erp/odyssey-hotel/migrations"
)

const usage = "usage: odyssey [serve | migrate | jobs stats|archived|retry]"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "serve":
		if err := serve(ctx, stop, cfg, logger); err != nil {
			logger.Error("serve", slog.Any("error", err))
			os.Exit(1)
		}
	case "migrate":
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		code := cli.MigrateCommand(ctx, pool, cli.MigrateOptions{Logger: logger})
		pool.Close()
		os.Exit(code)
	case "jobs":
		action := ""
		if len(os.Args) > 2 {
			action = os.Args[2]
		}
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
		code := jobsCLI.JobsCommand(ctx, cli.JobsOptions{Action: action})
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
		os.Exit(code)
	default:
		_, _ = os.Stderr.WriteString(usage + "\n")
		os.Exit(2)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	if cfg.MigrateOnStart {
		if _, err := migrations.Apply(ctx, dbpool, logger); err != nil {
			return err
		}
	}

	metrics := observability.NewMetrics()

	clientRepo := clients.NewRepository(dbpool)
	roomStore := rooms.NewStore(dbpool)
	roomService := rooms.NewService(roomStore, logger)

	reservationService := reservation.NewService(
		reservation.NewRepository(dbpool, cfg.Location()),
		clientRepo,
		roomStore,
		reservation.Options{
			Location: cfg.Location(),
			Logger:   logger,
			Policy: reservation.Policy{
				MaxPending:   cfg.ReservationMaxPending,
				SingleActive: cfg.ReservationSingleActive,
				MinNights:    cfg.ReservationMinNights,
				MaxNights:    cfg.ReservationMaxNights,
			},
		},
	)
	reservationService.SetAudit(shared.NewAuditLogger(dbpool))
	reservationService.SetMetrics(metrics)
	roomService.SetInvalidator(reservationService)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, availability cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		reservationService.SetCache(cache.NewVersioned(redisClient, "availability", cfg.AvailabilityCacheTTL))
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	if cfg.NotificationsEnabled {
		queue := jobs.NewClient(redisOpts)
		defer func() {
			if err := queue.Close(); err != nil {
				logger.Warn("queue close", slog.Any("error", err))
			}
		}()
		reservationService.SetNotifier(notify.NewQueueNotifier(queue, logger))
	}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		ReservationHandler: reservation.NewHandler(logger, reservationService),
		RoomsHandler:       rooms.NewHandler(logger, roomService),
		ClientsHandler:     clients.NewHandler(logger, clientRepo),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
