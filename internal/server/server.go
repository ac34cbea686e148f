// server.go
//
// Student project showcase backend
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of kiosek.
// kiosek is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// kiosek is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with kiosek.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package server assembles the fiber application and its route table.
package server

import (
	"errors"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/localnerve/kiosek/internal/config"
	"github.com/localnerve/kiosek/internal/handlers"
	"github.com/localnerve/kiosek/internal/identity"
	"github.com/localnerve/kiosek/internal/media"
	"github.com/localnerve/kiosek/internal/middleware"
	"github.com/localnerve/kiosek/internal/services"
	"github.com/localnerve/kiosek/internal/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps is everything the routes need
type Deps struct {
	Config     *config.Config
	Log        *zap.Logger
	DB         *gorm.DB
	Store      services.SessionStore
	Sessions   *services.SessionRegistry
	Guard      *services.AuthorizationGuard
	Tags       *services.TagCatalog
	Projects   *services.ProjectStore
	Moderation *services.ModerationWorkflow
	Verifier   identity.Verifier
	Storage    *media.Storage

	// Metrics is optional; when set it is served at /metrics
	Metrics *fiberprometheus.FiberPrometheus
}

// New creates the fiber app with global middleware, static uploads, docs,
// health and the /api routes
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler(d.Log),
		BodyLimit:             d.Config.MaxUploadMB * 1024 * 1024,
		DisableStartupMessage: true,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(d.Log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.Config.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(compress.New())

	// Prometheus metrics
	if d.Metrics != nil {
		d.Metrics.RegisterAt(app, "/metrics")
		app.Use(d.Metrics.Middleware)
	}

	// Uploaded thumbnails and media
	app.Static("/uploads", d.Storage.Dir())

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		result := services.HealthCheck(c.UserContext(), d.Config, d.DB, d.Store, d.Log)
		status := fiber.StatusOK
		if result.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	})

	Routes(app.Group("/api"), d)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	return app
}

// Routes registers the /api route table on api
func Routes(api fiber.Router, d Deps) {
	authenticated := middleware.RequireAuthenticated(d.Guard)
	admin := middleware.RequireAdmin(d.Guard)
	owner := middleware.RequireOwner(d.Guard, d.Projects)

	authHandler := &handlers.AuthHandler{Verifier: d.Verifier, Sessions: d.Sessions, Log: d.Log}
	tagHandler := &handlers.TagHandler{Tags: d.Tags, Moderation: d.Moderation}
	checkHandler := &handlers.CheckHandler{Projects: d.Projects, Moderation: d.Moderation}
	projectHandler := &handlers.ProjectHandler{Projects: d.Projects, Storage: d.Storage, Log: d.Log}
	previewHandler := &handlers.PreviewHandler{Projects: d.Projects}

	// Session routes
	api.Post("/auth/login", authHandler.Login)
	api.Get("/auth/validate", authenticated, authHandler.Validate)
	api.Get("/auth/validateOwner", owner, authHandler.ValidateOwner)
	api.Get("/auth/validate/admin", admin, authHandler.ValidateAdmin)

	// Tags
	api.Get("/tags", authenticated, tagHandler.GetApproved)

	// Moderation routes (admin only)
	api.Get("/check/tags", admin, tagHandler.GetAll)
	api.Post("/check/tags/review", admin, tagHandler.Review)
	api.Get("/check/projects", admin, checkHandler.GetProjects)
	api.Post("/check/projects/review", admin, checkHandler.Review)

	// Projects
	api.Get("/project", projectHandler.Get)
	api.Post("/project", authenticated, projectHandler.Submit)
	api.Post("/project/update", owner, projectHandler.Update)
	api.Get("/project/edit", owner, projectHandler.GetForEdit)

	// Project lists
	api.Get("/preview/projects", previewHandler.AllProjects)
	api.Get("/preview/my-projects", authenticated, previewHandler.MyProjects)
}

// ErrorHandler renders every error in the common envelope. Unexpected errors
// are logged and reported with a generic message.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "An error occurred"
		errorType := "unknown"

		var custom *types.CustomError
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &custom):
			code = custom.Code
			message = custom.Message
			errorType = custom.Type
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			message = fiberErr.Message
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("url", c.OriginalURL()),
				zap.Error(err),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"status":    code,
			"message":   message,
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
			"type":      errorType,
		})
	}
}
