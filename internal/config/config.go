// config.go
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

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port        string
	Environment string
	LogLevel    string
	CORSOrigins string

	// Database configuration
	DBType            string // mysql, mariadb, postgres, sqlite, sqlite3, sqlserver
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int
	DBAutoMigrate     bool

	// Session tokens
	TokenSecret       string
	TokenIssuer       string
	TokenAudience     string
	TokenValidityDays int

	// Session store
	SessionStore  string // memory, redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Uploads
	UploadsDir         string
	ThumbnailMaxWidth  int
	ThumbnailMaxHeight int
	ThumbnailQuality   int
	MaxUploadMB        int

	// Identity verification
	IdentityProvider     string // portal, authorizer
	PortalURL            string
	PortalTimeoutSeconds int
	AuthzURL             string
	AuthzClientID        string

	// Administrators
	AdminUsernames       []string
	AdminCacheTTLSeconds int
}

const (
	minTokenValidityDays = 1
	maxTokenValidityDays = 7
)

// Load loads configuration from environment variables.
// A .env file (ENV_FILE, or ./.env) is applied first when present.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("No env file loaded from %s, using environment variables", envFile)
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "5148"),
		Environment:          getEnv("APP_ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		CORSOrigins:          getEnv("CORS_ORIGINS", "*"),
		DBType:               getEnv("DB_TYPE", "mysql"),
		DBHost:               getEnv("DB_HOST", "127.0.0.1"),
		DBPort:               getEnv("DB_PORT", "3306"),
		DBDatabase:           getEnv("DB_DATABASE", "kiosek"),
		DBUser:               getEnv("DB_USER", "root"),
		DBPassword:           getEnv("DB_PASSWORD", ""),
		DBConnectionLimit:    getEnvAsInt("DB_CONNECTION_LIMIT", 10),
		DBAutoMigrate:        getEnvAsBool("DB_AUTO_MIGRATE", true),
		TokenSecret:          getEnv("TOKEN_SECRET", ""),
		TokenIssuer:          getEnv("TOKEN_ISSUER", "http://localhost:5148"),
		TokenAudience:        getEnv("TOKEN_AUDIENCE", "http://localhost:3000"),
		TokenValidityDays:    getEnvAsInt("TOKEN_VALIDITY_DAYS", maxTokenValidityDays),
		SessionStore:         getEnv("SESSION_STORE", "memory"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvAsInt("REDIS_DB", 0),
		UploadsDir:           getEnv("UPLOADS_DIR", "uploads"),
		ThumbnailMaxWidth:    getEnvAsInt("THUMBNAIL_MAX_WIDTH", 800),
		ThumbnailMaxHeight:   getEnvAsInt("THUMBNAIL_MAX_HEIGHT", 600),
		ThumbnailQuality:     getEnvAsInt("THUMBNAIL_QUALITY", 80),
		MaxUploadMB:          getEnvAsInt("MAX_UPLOAD_MB", 64),
		IdentityProvider:     getEnv("IDENTITY_PROVIDER", "portal"),
		PortalURL:            getEnv("PORTAL_URL", "https://www.spsejecna.cz"),
		PortalTimeoutSeconds: getEnvAsInt("PORTAL_TIMEOUT_SECONDS", 15),
		AuthzURL:             getEnv("AUTHZ_URL", ""),
		AuthzClientID:        getEnv("AUTHZ_CLIENT_ID", ""),
		AdminUsernames:       getEnvAsList("ADMIN_USERNAMES"),
		AdminCacheTTLSeconds: getEnvAsInt("ADMIN_CACHE_TTL_SECONDS", 30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required values and normalises bounded ones
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.DBDatabase == "" {
		return fmt.Errorf("DB_DATABASE is required")
	}
	if c.TokenSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("TOKEN_SECRET is required in production")
		}
		c.TokenSecret = "kiosek-development-secret"
	}

	switch c.SessionStore {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis session store")
		}
	default:
		return fmt.Errorf("unsupported session store: %s", c.SessionStore)
	}

	switch c.IdentityProvider {
	case "portal":
		if c.PortalURL == "" {
			return fmt.Errorf("PORTAL_URL is required for the portal identity provider")
		}
	case "authorizer":
		if c.AuthzURL == "" {
			return fmt.Errorf("AUTHZ_URL is required for the authorizer identity provider")
		}
		if c.AuthzClientID == "" {
			return fmt.Errorf("AUTHZ_CLIENT_ID is required for the authorizer identity provider")
		}
	default:
		return fmt.Errorf("unsupported identity provider: %s", c.IdentityProvider)
	}

	if c.TokenValidityDays < minTokenValidityDays {
		c.TokenValidityDays = minTokenValidityDays
	}
	if c.TokenValidityDays > maxTokenValidityDays {
		c.TokenValidityDays = maxTokenValidityDays
	}

	return nil
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// TokenValidity is the lifetime of an issued session token
func (c *Config) TokenValidity() time.Duration {
	return time.Duration(c.TokenValidityDays) * 24 * time.Hour
}

// PortalTimeout bounds a single login attempt against the portal
func (c *Config) PortalTimeout() time.Duration {
	return time.Duration(c.PortalTimeoutSeconds) * time.Second
}

// AdminCacheTTL is how long an admin lookup is trusted
func (c *Config) AdminCacheTTL() time.Duration {
	return time.Duration(c.AdminCacheTTLSeconds) * time.Second
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated environment variable
func getEnvAsList(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
