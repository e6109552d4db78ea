package server

import (
	"log"
	"time"

	"dota-report-be/internal/bootstrap"
	"dota-report-be/internal/config"
	"dota-report-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// RouteRegistrar mounts a group of endpoints under /api.
type RouteRegistrar interface {
	RegisterRoutes(r fiber.Router)
}

type Server struct {
	app  *fiber.App
	port string
}

func New(cfg *config.Config, c *bootstrap.Container) *Server {
	return newServer(cfg, c.WebSocketHub.ClientCount,
		c.ReportController,
		c.MetadataController,
		c.FrontendHandler,
	)
}

// newServer builds the app from its parts; clients reports live websocket
// connections for /health.
func newServer(cfg *config.Config, clients func() int, routes ...RouteRegistrar) *Server {
	app := fiber.New(fiber.Config{
		AppName:     "dota-report-be",
		BodyLimit:   64 * 1024,
		IdleTimeout: 60 * time.Second,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.App.CorsAllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, X-Client-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(ctx *fiber.Ctx) bool {
		// Not traced: probes and progress polls.
		return ctx.Path() == "/health" || ctx.Path() == "/api/report/progress"
	})))
	app.Use(serverutils.ErrorHandlerMiddleware())

	app.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(serverutils.SuccessResponse("ok", fiber.Map{
			"status":            "ok",
			"websocket_clients": clients(),
		}))
	})

	api := app.Group("/api")
	for _, r := range routes {
		r.RegisterRoutes(api)
	}

	return &Server{app: app, port: cfg.App.Port}
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("Server listening on :%s", s.port)
	return s.app.Listen(":" + s.port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
