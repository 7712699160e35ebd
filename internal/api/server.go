// Package api exposes the import pipeline over HTTP.
package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/fintrack-dev/fintrack/internal/buildinfo"
	"github.com/fintrack-dev/fintrack/internal/importer"
	"github.com/fintrack-dev/fintrack/internal/logger"
	"github.com/fintrack-dev/fintrack/internal/pipeline"
	"github.com/fintrack-dev/fintrack/internal/store"
)

// UserHeader carries the caller's user id. Authentication happens in front
// of this server.
const UserHeader = "X-User-ID"

// MaxUploadSize bounds statement uploads.
const MaxUploadSize = 32 << 20

// Config wires the server to its collaborators.
type Config struct {
	Service *pipeline.Service
	Store   store.Store
	// DefaultUser is used when a request has no X-User-ID header.
	DefaultUser string
	// DefaultBank is used for PDF uploads that name no bank; empty means detect.
	DefaultBank string
	Log         zerolog.Logger
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	svc         *pipeline.Service
	store       store.Store
	defaultUser string
	defaultBank string
	log         zerolog.Logger
}

// New builds the fiber app with every route registered.
func New(cfg Config) *fiber.App {
	h := &Handler{
		svc:         cfg.Service,
		store:       cfg.Store,
		defaultUser: cfg.DefaultUser,
		defaultBank: cfg.DefaultBank,
		log:         cfg.Log,
	}
	app := fiber.New(fiber.Config{
		AppName:               "fintrack " + buildinfo.Version,
		BodyLimit:             MaxUploadSize,
		DisableStartupMessage: true,
		ErrorHandler:          h.handleError,
	})
	app.Use(h.requestLog)
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.Health)

	api := app.Group("/api", h.requireUser)
	api.Post("/detect", h.Detect)

	api.Post("/imports", h.CreateImport)
	api.Get("/imports/:id", h.GetImport)
	api.Delete("/imports/:id", h.DeleteImport)
	api.Patch("/imports/:id/records/:index", h.UpdateRecord)
	api.Put("/imports/:id/account", h.SetAccount)
	api.Put("/imports/:id/mappings", h.MapAccounts)
	api.Post("/imports/:id/commit", h.Commit)

	api.Get("/accounts", h.ListAccounts)
	api.Post("/accounts", h.CreateAccount)
	api.Get("/categories", h.ListCategories)
}

// Health reports liveness and the build version.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "version": buildinfo.Version})
}

const userKey = "user_id"

func (h *Handler) requireUser(c *fiber.Ctx) error {
	user := strings.TrimSpace(c.Get(UserHeader))
	if user == "" {
		user = h.defaultUser
	}
	if user == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing "+UserHeader+" header")
	}
	c.Locals(userKey, user)
	return c.Next()
}

func userID(c *fiber.Ctx) string {
	s, _ := c.Locals(userKey).(string)
	return s
}

func (h *Handler) requestLog(c *fiber.Ctx) error {
	start := time.Now()
	log := h.log.With().Str("method", c.Method()).Str("path", c.Path()).Logger()
	c.SetUserContext(logger.WithContext(c.UserContext(), log))

	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	ev := log.Info()
	if status >= fiber.StatusInternalServerError {
		ev = log.Error().Err(err)
	}
	ev.Int("status", status).Dur("duration", time.Since(start)).Msg("request")
	return err
}

func (h *Handler) handleError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "internal error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// statusFor maps pipeline and store errors onto HTTP statuses.
func statusFor(err error) int {
	var fe *fiber.Error
	var pe *importer.ParseError
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &pe), errors.Is(err, importer.ErrUnknownFormat):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrInvalidEdit), errors.Is(err, pipeline.ErrNoTargetAccount):
		// Checked before not-found: an edit naming a missing account wraps both.
		return fiber.StatusBadRequest
	case errors.Is(err, pipeline.ErrSessionNotFound), errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, pipeline.ErrAlreadyCommitted):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}
