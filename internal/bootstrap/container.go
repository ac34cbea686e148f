// container.go
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

// Package bootstrap wires the service graph in a samber/do container.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/kiosek/internal/config"
	"github.com/localnerve/kiosek/internal/database"
	"github.com/localnerve/kiosek/internal/identity"
	"github.com/localnerve/kiosek/internal/media"
	"github.com/localnerve/kiosek/internal/server"
	"github.com/localnerve/kiosek/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BuildContainer registers every provider. Nothing is constructed until it is
// first invoked, so tests can override single providers beforehand.
func BuildContainer(cfg *config.Config, log *zap.Logger) *do.Injector {
	inj := do.New()

	do.ProvideValue(inj, cfg)
	do.ProvideValue(inj, log)

	// Metrics registry
	do.ProvideValue[prometheus.Registerer](inj, prometheus.DefaultRegisterer)

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)

		db, err := database.Connect(cfg, log)
		if err != nil {
			return nil, err
		}
		if cfg.DBAutoMigrate {
			if err := database.AutoMigrate(db); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		if err := database.EnsureAdmins(context.Background(), db, cfg.AdminUsernames); err != nil {
			return nil, fmt.Errorf("failed to seed admins: %w", err)
		}
		return db, nil
	})

	// Redis, only resolved for the redis session store
	do.Provide(inj, func(i *do.Injector) (redis.UniversalClient, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), nil
	})

	// Session store
	do.Provide(inj, func(i *do.Injector) (services.SessionStore, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.SessionStore {
		case "redis":
			return services.NewRedisStore(do.MustInvoke[redis.UniversalClient](i)), nil
		case "memory":
			return services.NewMemoryStore(), nil
		}
		return nil, fmt.Errorf("unsupported session store: %s", cfg.SessionStore)
	})

	// Identity verifier
	do.Provide(inj, func(i *do.Injector) (identity.Verifier, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		switch cfg.IdentityProvider {
		case "authorizer":
			return identity.NewAuthorizerVerifier(cfg.AuthzClientID, cfg.AuthzURL, cfg.TokenAudience, log)
		case "portal":
			return identity.NewPortalVerifier(cfg.PortalURL, cfg.PortalTimeout(), log)
		}
		return nil, fmt.Errorf("unsupported identity provider: %s", cfg.IdentityProvider)
	})

	// Upload storage
	do.Provide(inj, func(i *do.Injector) (*media.Storage, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return media.NewStorage(cfg.UploadsDir, media.Options{
			MaxWidth:  cfg.ThumbnailMaxWidth,
			MaxHeight: cfg.ThumbnailMaxHeight,
			Quality:   cfg.ThumbnailQuality,
		}, do.MustInvoke[*zap.Logger](i)), nil
	})

	// Services
	do.Provide(inj, func(i *do.Injector) (*services.SessionRegistry, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return services.NewSessionRegistry(
			do.MustInvoke[services.SessionStore](i),
			services.SessionOptions{
				Secret:   cfg.TokenSecret,
				Issuer:   cfg.TokenIssuer,
				Audience: cfg.TokenAudience,
				Validity: cfg.TokenValidity(),
			},
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.TagCatalog, error) {
		return services.NewTagCatalog(
			do.MustInvoke[*gorm.DB](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.MediaLedger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return services.NewMediaLedger(cfg.UploadsDir, do.MustInvoke[*zap.Logger](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.ProjectStore, error) {
		return services.NewProjectStore(
			do.MustInvoke[*gorm.DB](i),
			do.MustInvoke[*services.TagCatalog](i),
			do.MustInvoke[*services.MediaLedger](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.AuthorizationGuard, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return services.NewAuthorizationGuard(
			do.MustInvoke[*services.SessionRegistry](i),
			do.MustInvoke[*services.ProjectStore](i),
			do.MustInvoke[*gorm.DB](i),
			cfg.AdminCacheTTL(),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*services.ModerationWorkflow, error) {
		return services.NewModerationWorkflow(
			do.MustInvoke[*services.AuthorizationGuard](i),
			do.MustInvoke[*services.ProjectStore](i),
			do.MustInvoke[*services.TagCatalog](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	// HTTP metrics
	do.Provide(inj, func(i *do.Injector) (*fiberprometheus.FiberPrometheus, error) {
		registry := do.MustInvoke[prometheus.Registerer](i)
		return fiberprometheus.NewWithRegistry(registry, "kiosek", "http", "", nil), nil
	})

	// App
	do.Provide(inj, func(i *do.Injector) (*fiber.App, error) {
		return server.New(server.Deps{
			Config:     do.MustInvoke[*config.Config](i),
			Log:        do.MustInvoke[*zap.Logger](i),
			DB:         do.MustInvoke[*gorm.DB](i),
			Store:      do.MustInvoke[services.SessionStore](i),
			Sessions:   do.MustInvoke[*services.SessionRegistry](i),
			Guard:      do.MustInvoke[*services.AuthorizationGuard](i),
			Tags:       do.MustInvoke[*services.TagCatalog](i),
			Projects:   do.MustInvoke[*services.ProjectStore](i),
			Moderation: do.MustInvoke[*services.ModerationWorkflow](i),
			Verifier:   do.MustInvoke[identity.Verifier](i),
			Storage:    do.MustInvoke[*media.Storage](i),
			Metrics:    do.MustInvoke[*fiberprometheus.FiberPrometheus](i),
		}), nil
	})

	return inj
}

// Close releases the connections opened by the container
func Close(inj *do.Injector) error {
	var firstErr error
	if db, err := do.Invoke[*gorm.DB](inj); err == nil {
		firstErr = database.Close(db)
	}
	cfg := do.MustInvoke[*config.Config](inj)
	if cfg.SessionStore == "redis" {
		if client, err := do.Invoke[redis.UniversalClient](inj); err == nil {
			if err := client.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
