package appServer

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/WB_L3/6/config"
	repository "github.com/ds124wfegd/WB_L3/6/internal/database/postgres"
	"github.com/ds124wfegd/WB_L3/6/internal/entity"
	"github.com/ds124wfegd/WB_L3/6/internal/service"
	"github.com/ds124wfegd/WB_L3/6/internal/transport"
	"github.com/ds124wfegd/WB_L3/6/internal/worker"

	"github.com/ds124wfegd/WB_L3/6/pkg/postgres"
	"github.com/ds124wfegd/WB_L3/6/pkg/queue"
	"github.com/ds124wfegd/WB_L3/6/pkg/rabbitMQ"
	"github.com/ds124wfegd/WB_L3/6/pkg/redis"
	"github.com/ds124wfegd/WB_L3/6/pkg/scheduler"
	"github.com/ds124wfegd/WB_L3/6/pkg/telegram"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12}, // ban on outdate TLS certificate
		ErrorLog:          log.New(logrus.StandardLogger().WriterLevel(logrus.ErrorLevel), "http: ", 0),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func setupLogger(cfg *config.LogConfig) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithField("level", cfg.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func NewServer(cfg *config.Config) {

	setupLogger(&cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := postgres.RunMigrations(ctx, db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	repos := repository.NewRepositories(db)
	transactor := repository.NewTransactor(db)

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logrus.Fatalf("Failed to initialize redis: %v", err)
	}
	defer redisClient.Close()

	// Domain notifications are optional
	var (
		publisher service.NotificationPublisher
		rabbit    *rabbitMQ.Publisher
	)
	if cfg.RabbitMQ.Enabled {
		rabbit, err = rabbitMQ.NewPublisher(rabbitMQ.RabbitMQConfig{
			URL:          cfg.RabbitMQURL(),
			ExchangeName: cfg.RabbitMQ.Exchange,
		})
		if err != nil {
			logrus.Errorf("Failed to initialize RabbitMQ: %v. Continuing without notifications...", err)
			rabbit = nil
		} else {
			defer rabbit.Close()
			publisher = rabbit
		}
	}

	queueConfig := &queue.RedisQueueConfig{
		Prefix:         cfg.Queue.Prefix,
		MaxRetries:     cfg.Queue.MaxRetries,
		BaseDelay:      cfg.Queue.BaseDelay,
		QueueTimeout:   cfg.Queue.PollTimeout,
		AlertThreshold: cfg.Queue.AlertThreshold,
		EnableMetrics:  cfg.Queue.EnableMetrics,
	}

	dlqHandler := queue.NewDefaultDLQHandler(redisClient, queueConfig.DLQ(), queueConfig.MainQueue())

	// Initialize Telegram bot
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		dlqHandler.WithAlerter(telegram.NewBot(cfg.Telegram.BotToken), cfg.Telegram.ChatID)
		logrus.Info("Telegram bot initialized")
	} else {
		logrus.Warn("Telegram bot token not provided, DLQ alerts disabled")
	}

	retryManager := queue.NewRetryManager(cfg.Queue.MaxRetries, cfg.Queue.BaseDelay, entity.IsRetryable)
	redisQueue := queue.NewRedisQueue(redisClient, queueConfig, retryManager, dlqHandler)

	// Initialize services
	waitlistService := service.NewWaitlistService(repos, transactor, publisher, cfg.Booking.PromotionTimeout)
	bookingService := service.NewBookingService(
		repos,
		transactor,
		service.NewQueueAdapter(redisQueue),
		waitlistService,
		publisher,
		cfg.Booking.RequestTimeout,
	)
	eventService := service.NewEventService(repos, transactor, waitlistService)

	// Start queue consumer
	taskHandler := worker.NewTaskHandler(bookingService)
	if err := redisQueue.Subscribe(ctx, taskHandler.HandleTask); err != nil {
		logrus.Fatalf("Queue subscriber error: %v", err)
	}
	logrus.Info("Queue subscriber started")

	// Waitlist sweep, one instance at a time
	sweepLock := redis.NewLock(redisClient, cfg.Waitlist.SweepLockKey, cfg.Waitlist.SweepLockTTL)
	sweepWorker := worker.NewWaitlistSweepWorker(waitlistService, sweepLock)
	sweepScheduler := scheduler.NewScheduler("waitlist_sweep", sweepWorker, cfg.Waitlist.SweepInterval)

	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		sweepScheduler.Start(schedulerCtx)
	}()
	logrus.Info("Waitlist sweep scheduler started")

	// Initialize handlers
	handlers := &transport.Handlers{
		Event:    transport.NewEventHandler(eventService),
		Booking:  transport.NewBookingHandler(bookingService),
		Waitlist: transport.NewWaitlistHandler(waitlistService),
		Admin:    transport.NewAdminHandler(redisQueue, dlqHandler, sweepWorker),
	}

	checks := map[string]transport.HealthChecker{
		"postgres": db.PingContext,
		"redis":    redisQueue.HealthCheck,
	}
	if rabbit != nil {
		checks["rabbitmq"] = func(context.Context) error { return rabbit.HealthCheck() }
	}

	// Setup HTTP server
	if cfg.IsProduction() || cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		err := srv.Run(cfg, transport.InitRoutes(handlers, cfg.Server.Timeout, checks))
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithField("addr", cfg.GetServerAddress()).Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}

	// в обратном порядке: планировщик, консьюмер, фоновые продвижения
	stopScheduler()
	<-schedulerDone

	if err := redisQueue.Close(); err != nil {
		logrus.Errorf("error occured on queue closing: %s", err.Error())
	}

	waitlistService.Wait()
	logrus.Print("App Stopped")
}
