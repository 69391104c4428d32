// Package server exposes the analysis results and pipeline triggers
// over HTTP.
package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
)

// PullFunc runs the full crawl, clean, and load pipeline, returning the
// number of rows inserted.
type PullFunc func(ctx context.Context) (int, error)

// QueryFunc computes the analysis answers.
type QueryFunc func(ctx context.Context) (map[string]string, error)

// Server wires the HTTP surface over injected pipeline callables so
// tests can swap in fakes.
type Server struct {
	app   *fiber.App
	busy  BusyState
	pull  PullFunc
	query QueryFunc
}

// New builds the fiber app with its routes and middleware.
func New(busy BusyState, pull PullFunc, query QueryFunc) *Server {
	s := &Server{busy: busy, pull: pull, query: query}

	s.app = fiber.New(fiber.Config{
		AppName:               "GradHarvest API",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "UTC",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	s.app.Get("/healthz", s.health)
	s.app.Get("/analysis", s.analysis)
	s.app.Post("/pull-data", s.pullData)
	s.app.Post("/update-analysis", s.updateAnalysis)

	return s
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	log.Info().Str("addr", addr).Msg("Starting server")
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "gradharvest",
		"busy":    s.busy.Busy(),
	})
}

// analysis runs the queries live; it never mutates state and so is not
// gated on the busy flag.
func (s *Server) analysis(c *fiber.Ctx) error {
	answers, err := s.query(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("Analysis queries failed")
		return fiber.NewError(fiber.StatusServiceUnavailable, "analysis unavailable")
	}
	return c.JSON(fiber.Map{"answers": answers})
}

// pullData runs the scrape-clean-load pipeline. Only one run at a time;
// concurrent triggers get a conflict answer.
func (s *Server) pullData(c *fiber.Ctx) error {
	if !s.busy.TryAcquire() {
		return fiber.NewError(fiber.StatusConflict, "a data pull is already running")
	}
	defer s.busy.Release()

	inserted, err := s.pull(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("Data pull failed")
		return fiber.NewError(fiber.StatusInternalServerError, "data pull failed")
	}
	return c.JSON(fiber.Map{"inserted": inserted})
}

// updateAnalysis recomputes the answers, refusing while a pull is
// still writing.
func (s *Server) updateAnalysis(c *fiber.Ctx) error {
	if s.busy.Busy() {
		return fiber.NewError(fiber.StatusConflict, "busy pulling data, try again later")
	}

	answers, err := s.query(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("Analysis refresh failed")
		return fiber.NewError(fiber.StatusServiceUnavailable, "analysis unavailable")
	}
	return c.JSON(fiber.Map{"answers": answers})
}
