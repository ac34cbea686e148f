// main.go
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

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/kiosek/internal/bootstrap"
	"github.com/localnerve/kiosek/internal/config"
	"github.com/localnerve/kiosek/internal/logging"
	"github.com/samber/do"
	"go.uber.org/zap"

	_ "github.com/localnerve/kiosek/docs/api" // Swagger docs
)

// @title Kiosek API
// @version 1.0.0
// @description Student project showcase: submissions, moderation and public previews
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/kiosek
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:5148
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	inj := bootstrap.BuildContainer(cfg, logger)
	defer func() {
		if err := bootstrap.Close(inj); err != nil {
			logger.Warn("failed to close connections", zap.Error(err))
		}
	}()

	// Connects the database, migrates and seeds admins on the way
	app, err := do.Invoke[*fiber.App](inj)
	if err != nil {
		logger.Fatal("failed to build app", zap.Error(err))
	}

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Info("gracefully shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	// Start server
	logger.Info("starting server",
		zap.String("port", cfg.Port),
		zap.String("db", cfg.DBType),
		zap.String("sessions", cfg.SessionStore),
		zap.String("identity", cfg.IdentityProvider),
	)
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}
