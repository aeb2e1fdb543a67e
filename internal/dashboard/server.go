// Package dashboard serves the stored documents over a read-only HTTP API.
// It is the only surface the dashboard collaborator touches; no write path
// is exposed.
package dashboard

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"repopulse/internal/data"
	"repopulse/internal/store"
)

type Server struct {
	app   *fiber.App
	store store.Store
	log   *zap.SugaredLogger
}

func NewServer(st store.Store, log *zap.SugaredLogger) *Server {
	s := &Server{
		store: st,
		log:   log.Named("dashboard"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "repopulse dashboard",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(requestid.New())

	api := app.Group("/api")
	api.Get("/snapshots", s.listSnapshots)
	api.Get("/snapshots/:owner/:repo", s.getSnapshot)
	api.Get("/repos/:owner/:repo/pulls", s.listPullRequests)
	app.Get("/healthz", s.health)

	s.app = app
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.log.Infow("dashboard listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) listSnapshots(c *fiber.Ctx) error {
	snaps, err := s.store.ListSnapshots(c.Context())
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(fiber.Map{"snapshots": snaps, "count": len(snaps)})
}

func (s *Server) getSnapshot(c *fiber.Ctx) error {
	target := data.ScanTarget{Owner: c.Params("owner"), Repo: c.Params("repo")}
	snap, err := s.store.GetSnapshot(c.Context(), target)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(snap)
}

func (s *Server) listPullRequests(c *fiber.Ctx) error {
	repository := c.Params("owner") + "/" + c.Params("repo")
	prs, err := s.store.ListPullRequests(c.Context(), repository)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(fiber.Map{"pull_requests": prs, "count": len(prs)})
}

func (s *Server) writeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	s.log.Errorw("dashboard read failed", "path", c.Path(), "error", err)
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
