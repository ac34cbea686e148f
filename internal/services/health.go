// health.go
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

package services

import (
	"context"
	"fmt"

	"github.com/localnerve/kiosek/internal/config"
	"github.com/localnerve/kiosek/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status           string            `json:"status"`
	Database         string            `json:"database"`
	SessionStore     string            `json:"sessionStore"`
	IdentityProvider string            `json:"identityProvider"`
	Details          map[string]string `json:"details,omitempty"`
	ErrorMessage     string            `json:"error,omitempty"`
}

// IdentityProviderURL is the address the configured identity provider is reached at
func IdentityProviderURL(cfg *config.Config) string {
	if cfg.IdentityProvider == "authorizer" {
		return cfg.AuthzURL
	}
	return cfg.PortalURL
}

// Pinger is implemented by session stores that live outside the process
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck reports database, session store and identity provider reachability.
// A nil store, or one that is not a Pinger, is reported as ok.
func HealthCheck(ctx context.Context, cfg *config.Config, db *gorm.DB, store SessionStore, log *zap.Logger) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	fail := func(msg string) {
		result.Status = "unhealthy"
		if result.ErrorMessage == "" {
			result.ErrorMessage = msg
		} else {
			result.ErrorMessage += "; " + msg
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		result.Database = "error"
		result.Details["database_error"] = err.Error()
		fail(fmt.Sprintf("Database connection error: %v", err))
		log.Warn("health check failed - database connection", zap.Error(err))
	} else if err := sqlDB.PingContext(ctx); err != nil {
		result.Database = "unreachable"
		result.Details["database_ping_error"] = err.Error()
		fail(fmt.Sprintf("Database ping failed: %v", err))
		log.Warn("health check failed - database ping", zap.Error(err))
	} else {
		result.Database = "ok"
		result.Details["database_type"] = cfg.DBType
		result.Details["database_name"] = cfg.DBDatabase
	}

	result.SessionStore = "ok"
	result.Details["session_store"] = cfg.SessionStore
	if pinger, ok := store.(Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			result.SessionStore = "unreachable"
			result.Details["session_store_error"] = err.Error()
			fail(fmt.Sprintf("Session store ping failed: %v", err))
			log.Warn("health check failed - session store ping", zap.Error(err))
		}
	}

	providerURL := IdentityProviderURL(cfg)
	if err := utils.PingIdentityProvider(ctx, providerURL); err != nil {
		result.IdentityProvider = "unreachable"
		result.Details["identity_provider_error"] = err.Error()
		fail(fmt.Sprintf("Identity provider ping failed: %v", err))
		log.Warn("health check failed - identity provider ping", zap.Error(err))
	} else {
		result.IdentityProvider = "ok"
		result.Details["identity_provider"] = cfg.IdentityProvider
		result.Details["identity_provider_url"] = providerURL
	}

	if result.Status == "healthy" {
		log.Debug("health check passed")
	}

	return result
}
