package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/maheshrc27/crosspost/internal/api/handlers"
	"github.com/maheshrc27/crosspost/internal/service"
)

type Deps struct {
	Accounts  service.AccountRegistry
	Posts     service.PostService
	Composer  *service.Composer
	Scheduler handlers.SchedulerState
	// Media is set when uploads are kept in process.
	Media   handlers.MediaSource
	Metrics http.Handler
	Auth    fiber.Handler
	// RequestLog enables fiber's access log.
	RequestLog bool
}

func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				slog.Error("unhandled error", slog.String("path", c.Path()), slog.String("error", err.Error()))
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	if d.RequestLog {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/health", handlers.Health)
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics))
	}
	if d.Media != nil {
		media := handlers.NewMediaHandler(d.Media)
		app.Get("/media/:key", media.GetMedia)
	}

	api := app.Group("/api")
	if d.Auth != nil {
		api.Use(d.Auth)
	}

	accounts := handlers.NewAccountHandler(d.Accounts)
	api.Get("/accounts", accounts.ListAccounts)
	api.Post("/accounts", accounts.AddAccount)
	api.Get("/accounts/:id", accounts.GetAccount)
	api.Patch("/accounts/:id", accounts.UpdateAccount)
	api.Delete("/accounts/:id", accounts.RemoveAccount)
	api.Post("/accounts/:id/refresh", accounts.RefreshAccount)

	posts := handlers.NewPostHandler(d.Posts)
	api.Get("/posts", posts.ListPosts)
	api.Post("/posts", posts.CreatePost)
	api.Get("/posts/:id", posts.GetPost)
	api.Delete("/posts/:id", posts.RemovePost)
	api.Post("/posts/:id/publish", posts.PublishPost)

	compose := handlers.NewComposeHandler(d.Composer)
	api.Post("/compose/preview", compose.Preview)
	api.Post("/compose/generate", compose.Generate)

	scheduler := handlers.NewSchedulerHandler(d.Scheduler)
	api.Get("/scheduler", scheduler.Status)

	return app
}
