package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/api"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
	"github.com/maheshrc27/crosspost/internal/database"
	"github.com/maheshrc27/crosspost/internal/generator"
	job "github.com/maheshrc27/crosspost/internal/jobs"
	"github.com/maheshrc27/crosspost/internal/logger"
	"github.com/maheshrc27/crosspost/internal/metrics"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/queue"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
)

const queueShutdownMargin = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	logger.SetupDefault(os.Stdout, logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	var (
		db          *sql.DB
		postRepo    repository.PostRepository
		accountRepo repository.AccountRepository
	)
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		if err := database.RunMigrations(cfg.PostgresURI); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		var err error
		db, err = database.Open(ctx, cfg.PostgresURI)
		if err != nil {
			log.Fatalf("Database is unreachable: %v", err)
		}
		postRepo = repository.NewPostRepository(db)
		accountRepo = repository.NewAccountRepository(db, []byte(cfg.SecretKey))
	default:
		slog.Warn("using in-memory storage, data is lost on restart")
		postRepo = repository.NewMemoryPostRepository()
		accountRepo = repository.NewMemoryAccountRepository()
	}

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	adapters := platform.NewRegistry(
		platform.NewFacebookAdapter(platform.FacebookConfig{BaseURL: cfg.FacebookAPIURL}),
		platform.NewInstagramAdapter(platform.InstagramConfig{BaseURL: cfg.InstagramAPIURL}),
		platform.NewTiktokAdapter(platform.TiktokConfig{BaseURL: cfg.TiktokAPIURL}),
		platform.NewYoutubeAdapter(platform.YoutubeConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
		}),
	)

	var (
		store      service.MediaStore
		localMedia *service.MemoryStore
	)
	if cfg.R2.Enabled() {
		r2, err := service.NewR2Store(ctx, service.R2Config{
			AccountID:  cfg.R2.AccountID,
			AccessKey:  cfg.R2.AccessKey,
			SecretKey:  cfg.R2.SecretKey,
			BucketName: cfg.R2.BucketName,
			PublicURL:  cfg.R2.PublicURL,
			Endpoint:   cfg.R2.Endpoint,
		})
		if err != nil {
			log.Fatalf("Failed to set up media storage: %v", err)
		}
		store = r2
	} else {
		localMedia = service.NewMemoryStore(cfg.BaseURL + "/media")
		store = localMedia
	}

	var contentGenerator service.ContentGenerator
	if cfg.GeminiAPIKey != "" {
		gemini, err := generator.NewGemini(ctx, generator.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
		if err != nil {
			log.Fatalf("Failed to set up content generator: %v", err)
		}
		contentGenerator = gemini
	}

	var (
		asynqClient *asynq.Client
		enqueuer    service.PublishEnqueuer
	)
	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	if cfg.RedisURI != "" {
		asynqClient = asynq.NewClient(redisConn)
		defer asynqClient.Close()
		enqueuer = queue.NewClient(asynqClient)
	}

	accountRegistry := service.NewAccountRegistry(accountRepo, adapters)
	dispatcher := service.NewDispatcher(postRepo, accountRegistry, adapters, service.DispatcherConfig{
		PublishTimeout: cfg.PublishTimeout,
		Metrics:        collector,
	})
	composer := service.NewComposer(contentGenerator)
	postService := service.NewPostService(postRepo, accountRegistry, dispatcher, composer, store, enqueuer)

	scheduler := job.NewScheduler(postRepo, accountRegistry, dispatcher, job.SchedulerConfig{
		Interval: cfg.SchedulerInterval,
		Metrics:  collector,
		Logger:   slog.Default().With(slog.String("component", "scheduler")),
	})
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// cron jobs
	refreshJob := job.NewProfileRefreshJob(accountRegistry)
	c := cron.New()
	if err := c.AddFunc(fmt.Sprintf("@every %s", cfg.ProfileRefreshInterval), refreshJob.RefreshProfiles); err != nil {
		log.Fatalf("Failed to schedule profile refresh: %v", err)
	}
	c.Start()

	var (
		asynqServer *asynq.Server
		queueW      *queue.Queue
	)
	if cfg.RedisURI != "" {
		asynqServer = asynq.NewServer(redisConn, asynq.Config{
			Concurrency: cfg.QueueConcurrency,
			// Long enough for a running publish to record its outcome.
			ShutdownTimeout: cfg.PublishTimeout + queueShutdownMargin,
		})

		queueW = queue.NewQueue(postService)
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

		go func() {
			log.Println("Starting the Asynq server...")
			if err := asynqServer.Run(mux); err != nil {
				log.Fatalf("Could not start Asynq server: %v", err)
			}
		}()
	}

	deps := api.Deps{
		Accounts:   accountRegistry,
		Posts:      postService,
		Composer:   composer,
		Scheduler:  scheduler,
		Metrics:    metrics.Handler(prometheus.DefaultGatherer),
		Auth:       middleware.NewAuthMiddleware(*cfg).AuthMiddleware(),
		RequestLog: true,
	}
	if localMedia != nil {
		deps.Media = localMedia
	}
	app := api.NewApp(deps)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	drainTimeout := max(5*time.Minute, cfg.PublishTimeout+queueShutdownMargin)
	gracefulShutdown(app, scheduler, c, asynqServer, queueW, db, drainTimeout)
}

func closeDB(db *sql.DB) {
	if db == nil {
		return
	}
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, scheduler *job.Scheduler, c *cron.Cron, asynqServer *asynq.Server, queueW *queue.Queue, db *sql.DB, drainTimeout time.Duration) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}

	c.Stop()
	if asynqServer != nil {
		asynqServer.Shutdown()
	}

	// Dispatches in flight finish and record their outcome before the
	// database goes away.
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := scheduler.Stop(ctx); err != nil {
		log.Printf("Scheduler did not drain: %v", err)
	}
	if queueW != nil {
		if err := queueW.Drain(ctx); err != nil {
			log.Printf("Queue did not drain: %v", err)
		}
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
